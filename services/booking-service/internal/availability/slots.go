package availability

import (
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
)

// Request describes one staff member's day. Date is midnight of the target day
// in the business location; Booked are the start times of that staff member's
// active appointments.
type Request struct {
	Hours  tenant.DayHours
	Date   time.Time
	Step   time.Duration
	Booked []time.Time
}

// Generate returns the bookable start times as ascending "HH:MM" strings.
//
// Candidates run every Step from opening time (inclusive) while the start is
// before closing time. A candidate is dropped when a booked appointment starts
// at the same local clock time on the same date. Service length is not taken
// into account, so a long service may be booked into the last slot of the day.
// A closed or malformed day yields an empty list.
func Generate(req Request) []string {
	open, close, ok := req.Hours.Bounds()
	if !ok {
		return []string{}
	}
	step := int(req.Step / time.Minute)
	if step <= 0 {
		return []string{}
	}

	loc := req.Date.Location()
	y, m, d := req.Date.Date()
	taken := make(map[int]bool, len(req.Booked))
	for _, b := range req.Booked {
		local := b.In(loc)
		by, bm, bd := local.Date()
		if by != y || bm != m || bd != d {
			continue
		}
		taken[local.Hour()*60+local.Minute()] = true
	}

	slots := make([]string, 0, (close-open)/step+1)
	for start := open; start < close; start += step {
		if taken[start] {
			continue
		}
		slots = append(slots, tenant.FormatClock(start))
	}
	return slots
}

// At combines a day and an "HH:MM" clock time in the day's location.
func At(date time.Time, clock string) (time.Time, bool) {
	minutes, ok := tenant.ParseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, date.Location()), true
}
