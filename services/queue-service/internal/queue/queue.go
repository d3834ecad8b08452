// Package queue is the walk-in queue state machine. It works on snapshots of
// one business day and returns plans; applying them is up to storage.
package queue

import (
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusCalled     Status = "called"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusWaiting:    {StatusCalled, StatusInProgress, StatusCancelled},
	StatusCalled:     {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusWaiting, StatusCalled, StatusInProgress, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown queue status %q", raw)
	}
}

// Active entries still hold a place in the line.
func (s Status) Active() bool {
	return s == StatusWaiting || s == StatusCalled || s == StatusInProgress
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Entry struct {
	ID                   string     `json:"id"`
	BusinessID           string     `json:"business_id"`
	CustomerName         string     `json:"customer_name"`
	CustomerPhone        string     `json:"customer_phone"`
	ServiceID            string     `json:"service_id"`
	ServiceName          string     `json:"service_name,omitempty"`
	QueueNumber          int        `json:"queue_number"`
	QueueDate            string     `json:"queue_date"`
	Status               Status     `json:"status"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	NotifiedAt           *time.Time `json:"notified_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Change is one status write. Demotion marks the system move of a previous
// in_progress entry back to called, which is outside the user table.
type Change struct {
	EntryID  string `json:"entry_id"`
	From     Status `json:"from"`
	To       Status `json:"to"`
	Demotion bool   `json:"demotion,omitempty"`
}

// CallsCustomer reports whether the write tells the customer it is their turn.
// A demotion returns someone to called without calling them again.
func (c Change) CallsCustomer() bool {
	return c.To == StatusCalled && !c.Demotion
}

// PlanTransition validates moving entry id to status to and returns the
// writes in order. Starting service on an entry first demotes whoever else
// is in progress that day, so at most one entry is ever being served.
func PlanTransition(entries []Entry, id string, to Status) ([]Change, error) {
	target, ok := find(entries, id)
	if !ok {
		return nil, apperr.NotFound("queue entry not found")
	}
	if !CanTransition(target.Status, to) {
		return nil, apperr.Conflict("queue entry cannot move from %s to %s", target.Status, to)
	}

	var plan []Change
	if to == StatusInProgress {
		for _, e := range entries {
			if e.ID != id && e.Status == StatusInProgress {
				plan = append(plan, Change{EntryID: e.ID, From: StatusInProgress, To: StatusCalled, Demotion: true})
			}
		}
	}
	return append(plan, Change{EntryID: id, From: target.Status, To: to}), nil
}

// Apply returns a copy of entries with plan applied. now stamps NotifiedAt on
// entries called for the first time; demotions leave it alone.
func Apply(entries []Entry, plan []Change, now time.Time) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for _, c := range plan {
		for i := range out {
			if out[i].ID != c.EntryID {
				continue
			}
			out[i].Status = c.To
			if c.CallsCustomer() && out[i].NotifiedAt == nil {
				at := now
				out[i].NotifiedAt = &at
			}
		}
	}
	return out
}

// NextNumber is the ticket after highest; the first ticket of a day is 1.
func NextNumber(highest int) int {
	if highest < 1 {
		return 1
	}
	return highest + 1
}

func MaxNumber(entries []Entry) int {
	highest := 0
	for _, e := range entries {
		if e.QueueNumber > highest {
			highest = e.QueueNumber
		}
	}
	return highest
}

// CallNext picks the lowest numbered waiting entry.
func CallNext(entries []Entry) (Entry, bool) {
	var next Entry
	found := false
	for _, e := range entries {
		if e.Status != StatusWaiting {
			continue
		}
		if !found || e.QueueNumber < next.QueueNumber {
			next, found = e, true
		}
	}
	return next, found
}

// EstimateWait sums the service durations of everyone still ahead in line.
// Services missing from durations count as zero.
func EstimateWait(entries []Entry, durations map[string]int) int {
	total := 0
	for _, e := range entries {
		if e.Status.Active() {
			total += durations[e.ServiceID]
		}
	}
	return total
}

type Board struct {
	Date             string  `json:"date"`
	Entries          []Entry `json:"entries"`
	CurrentlyServing *Entry  `json:"currently_serving"`
	Next             *Entry  `json:"next"`
	Waiting          int     `json:"waiting"`
	Served           int     `json:"served"`
}

// BuildBoard orders a day's entries by ticket number and summarises them for
// the display.
func BuildBoard(date string, entries []Entry) Board {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].QueueNumber < sorted[j].QueueNumber })

	b := Board{Date: date, Entries: sorted}
	for i := range sorted {
		e := &sorted[i]
		switch e.Status {
		case StatusInProgress:
			if b.CurrentlyServing == nil {
				b.CurrentlyServing = e
			}
		case StatusWaiting:
			b.Waiting++
			if b.Next == nil {
				b.Next = e
			}
		case StatusCompleted:
			b.Served++
		}
	}
	return b
}

func find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
