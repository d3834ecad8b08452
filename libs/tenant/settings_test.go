package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettingsDefaults(t *testing.T) {
	s := ParseSettings(nil)
	assert.Equal(t, DefaultSettings(), s)

	s = ParseSettings([]byte(`{"timezone":7,"slot_minutes":"x"}`))
	assert.Equal(t, DefaultSettings(), s)

	s = ParseSettings([]byte(`{"timezone":"Europe/Berlin"}`))
	assert.Equal(t, "Europe/Berlin", s.Timezone)
	assert.Equal(t, 30, s.SlotMinutes)
	assert.Len(t, s.Hours, 7)
	assert.True(t, s.Notifications.Reminder)
}

func TestParseSettingsPartialHoursLeavesOtherDaysClosed(t *testing.T) {
	s := ParseSettings([]byte(`{"hours":{"1":{"open":"10:00","close":"16:00"}}}`))
	open, close, ok := s.Hours.For(time.Monday).Bounds()
	require.True(t, ok)
	assert.Equal(t, 600, open)
	assert.Equal(t, 960, close)

	_, _, ok = s.Hours.For(time.Tuesday).Bounds()
	assert.False(t, ok)
}

func TestParseSettingsMalformedHoursAreClosed(t *testing.T) {
	docs := []string{
		`{"hours":{"1":{"open":900,"close":1900}}}`,
		`{"hours":{"monday":{"open":"09:00","close":"19:00"}}}`,
		`{"hours":"closed"}`,
		`{"hours":null}`,
		`not json`,
	}
	for _, doc := range docs {
		s := ParseSettings([]byte(doc))
		for d := time.Sunday; d <= time.Saturday; d++ {
			_, _, ok := s.Hours.For(d).Bounds()
			assert.False(t, ok, "%s: %s open", doc, d)
		}
		assert.Equal(t, DefaultSlotMinutes, s.SlotMinutes, doc)
		assert.Equal(t, DefaultTimezone, s.Timezone, doc)
	}
}

func TestParseSettingsKeepsOtherFieldsWhenHoursAreBad(t *testing.T) {
	s := ParseSettings([]byte(`{"timezone":"Europe/Berlin","slot_minutes":15,"hours":"closed"}`))
	assert.Equal(t, "Europe/Berlin", s.Timezone)
	assert.Equal(t, 15, s.SlotMinutes)
	assert.Empty(t, s.Hours)
}

func TestParseWeekHours(t *testing.T) {
	week, err := ParseWeekHours([]byte(`{"1":{"open":"10:00","close":"12:00"},"2":{"open":9},"9":{"open":"10:00","close":"12:00"}}`))
	require.NoError(t, err)
	assert.Len(t, week, 2)
	assert.Equal(t, DayHours{Open: "10:00", Close: "12:00"}, week[time.Monday])
	assert.Equal(t, DayHours{Closed: true}, week[time.Tuesday])

	_, err = ParseWeekHours([]byte(`[]`))
	assert.Error(t, err)
}

func TestDayHoursBoundsTreatsMalformedAsClosed(t *testing.T) {
	cases := []DayHours{
		{Closed: true, Open: "09:00", Close: "17:00"},
		{Open: "9am", Close: "17:00"},
		{Open: "17:00", Close: "09:00"},
		{Open: "24:00", Close: "25:00"},
		{},
	}
	for _, c := range cases {
		_, _, ok := c.Bounds()
		assert.False(t, ok, "%+v", c)
	}
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.SlotMinutes = 7
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.Hours[time.Friday] = DayHours{Open: "18:00", Close: "08:00"}
	assert.Error(t, bad.Validate())

	ok := DefaultSettings()
	ok.Hours[time.Sunday] = DayHours{Closed: true}
	assert.NoError(t, ok.Validate())
}

func TestSettingsRoundTripKeepsWeekdays(t *testing.T) {
	in := DefaultSettings()
	in.Hours[time.Sunday] = DayHours{Closed: true}
	raw, err := in.Marshal()
	require.NoError(t, err)
	assert.Equal(t, in, ParseSettings(raw))
}

func TestStaffHoursOverride(t *testing.T) {
	business := DefaultHours()
	st := Staff{Hours: WeekHours{time.Monday: {Open: "12:00", Close: "14:00"}}}
	assert.Equal(t, DayHours{Open: "12:00", Close: "14:00"}, st.HoursFor(time.Monday, business))
	assert.Equal(t, business[time.Tuesday], st.HoursFor(time.Tuesday, business))
}

func TestClock(t *testing.T) {
	m, ok := ParseClock("09:30")
	require.True(t, ok)
	assert.Equal(t, 570, m)
	assert.Equal(t, "09:30", FormatClock(m))
}
