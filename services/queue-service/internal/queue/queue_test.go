package queue

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func join(entries []Entry, id string) []Entry {
	return append(entries, Entry{ID: id, QueueNumber: NextNumber(MaxNumber(entries)), Status: StatusWaiting})
}

func inProgress(entries []Entry) []string {
	var ids []string
	for _, e := range entries {
		if e.Status == StatusInProgress {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusWaiting, StatusCalled, true},
		{StatusWaiting, StatusInProgress, true},
		{StatusWaiting, StatusCancelled, true},
		{StatusWaiting, StatusCompleted, false},
		{StatusCalled, StatusInProgress, true},
		{StatusCalled, StatusCancelled, true},
		{StatusCalled, StatusWaiting, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusCalled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusWaiting, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStartServiceDemotesCurrent(t *testing.T) {
	var entries []Entry
	for _, id := range []string{"a", "b", "c"} {
		entries = join(entries, id)
	}
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].QueueNumber, entries[1].QueueNumber, entries[2].QueueNumber})

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	plan, err := PlanTransition(entries, "a", StatusInProgress)
	require.NoError(t, err)
	entries = Apply(entries, plan, now)

	plan, err = PlanTransition(entries, "b", StatusInProgress)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, Change{EntryID: "a", From: StatusInProgress, To: StatusCalled, Demotion: true}, plan[0])
	assert.Equal(t, Change{EntryID: "b", From: StatusWaiting, To: StatusInProgress}, plan[1])

	entries = Apply(entries, plan, now)
	assert.Equal(t, []string{"b"}, inProgress(entries))
	assert.Equal(t, StatusCalled, entries[0].Status)
	assert.Nil(t, entries[0].NotifiedAt)
}

func TestApplyStampsNotifiedAtOnlyWhenCalled(t *testing.T) {
	earlier := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	now := earlier.Add(time.Hour)
	entries := []Entry{
		{ID: "a", QueueNumber: 1, Status: StatusInProgress, NotifiedAt: &earlier},
		{ID: "b", QueueNumber: 2, Status: StatusWaiting},
		{ID: "c", QueueNumber: 3, Status: StatusWaiting},
	}

	plan, err := PlanTransition(entries, "b", StatusCalled)
	require.NoError(t, err)
	assert.True(t, plan[0].CallsCustomer())
	entries = Apply(entries, plan, now)
	require.NotNil(t, entries[1].NotifiedAt)
	assert.Equal(t, now, *entries[1].NotifiedAt)

	plan, err = PlanTransition(entries, "c", StatusInProgress)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.False(t, plan[0].CallsCustomer())
	entries = Apply(entries, plan, now.Add(time.Hour))
	assert.Equal(t, earlier, *entries[0].NotifiedAt)
	assert.Nil(t, entries[2].NotifiedAt)
}

func TestPlanTransitionErrors(t *testing.T) {
	entries := []Entry{{ID: "a", QueueNumber: 1, Status: StatusCompleted}}

	_, err := PlanTransition(entries, "missing", StatusCalled)
	assert.True(t, apperr.IsNotFound(err))

	_, err = PlanTransition(entries, "a", StatusInProgress)
	assert.True(t, apperr.IsConflict(err))
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	entries := []Entry{{ID: "a", QueueNumber: 1, Status: StatusWaiting}}
	plan, err := PlanTransition(entries, "a", StatusCalled)
	require.NoError(t, err)

	out := Apply(entries, plan, time.Now())
	assert.Equal(t, StatusWaiting, entries[0].Status)
	assert.Equal(t, StatusCalled, out[0].Status)
}

func TestNextNumber(t *testing.T) {
	assert.Equal(t, 1, NextNumber(0))
	assert.Equal(t, 1, NextNumber(MaxNumber(nil)))
	assert.Equal(t, 8, NextNumber(7))
}

func TestCallNextPicksLowestWaiting(t *testing.T) {
	entries := []Entry{
		{ID: "c", QueueNumber: 3, Status: StatusWaiting},
		{ID: "a", QueueNumber: 1, Status: StatusCancelled},
		{ID: "b", QueueNumber: 2, Status: StatusWaiting},
	}
	next, ok := CallNext(entries)
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)

	_, ok = CallNext([]Entry{{ID: "x", QueueNumber: 1, Status: StatusCalled}})
	assert.False(t, ok)
}

func TestEstimateWaitCountsActiveEntriesOnly(t *testing.T) {
	entries := []Entry{
		{ServiceID: "cut", Status: StatusInProgress},
		{ServiceID: "color", Status: StatusWaiting},
		{ServiceID: "cut", Status: StatusCompleted},
		{ServiceID: "gone", Status: StatusCalled},
	}
	assert.Equal(t, 120, EstimateWait(entries, map[string]int{"cut": 30, "color": 90}))
}

func TestBuildBoard(t *testing.T) {
	entries := []Entry{
		{ID: "c", QueueNumber: 3, Status: StatusWaiting},
		{ID: "a", QueueNumber: 1, Status: StatusCompleted},
		{ID: "b", QueueNumber: 2, Status: StatusInProgress},
		{ID: "d", QueueNumber: 4, Status: StatusWaiting},
	}
	b := BuildBoard("2026-03-02", entries)

	assert.Equal(t, "a", b.Entries[0].ID)
	require.NotNil(t, b.CurrentlyServing)
	assert.Equal(t, "b", b.CurrentlyServing.ID)
	require.NotNil(t, b.Next)
	assert.Equal(t, "c", b.Next.ID)
	assert.Equal(t, 2, b.Waiting)
	assert.Equal(t, 1, b.Served)
}
