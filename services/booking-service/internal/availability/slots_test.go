package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
)

var nineToSeven = tenant.DayHours{Open: "09:00", Close: "19:00"}

func TestGenerate_OneBookingAtTen(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots := Generate(Request{
		Hours:  nineToSeven,
		Date:   day,
		Step:   30 * time.Minute,
		Booked: []time.Time{day.Add(10 * time.Hour)},
	})

	if len(slots) != 19 {
		t.Fatalf("expected 19 slots, got %d: %v", len(slots), slots)
	}
	if slots[0] != "09:00" || slots[1] != "09:30" {
		t.Fatalf("expected 09:00, 09:30 first, got %v", slots[:2])
	}
	if slots[2] != "10:30" {
		t.Fatalf("expected 10:00 excluded and 10:30 next, got %s", slots[2])
	}
	if last := slots[len(slots)-1]; last != "18:30" {
		t.Fatalf("expected last slot 18:30, got %s", last)
	}
	for _, s := range slots {
		if s == "10:00" || s == "19:00" {
			t.Fatalf("unexpected slot %s", s)
		}
	}
}

func TestGenerate_CancellingFreesOnlyItsOwnSlot(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	x := day.Add(11 * time.Hour)
	other := day.Add(14*time.Hour + 30*time.Minute)

	before := Generate(Request{Hours: nineToSeven, Date: day, Step: 30 * time.Minute, Booked: []time.Time{x, other}})
	after := Generate(Request{Hours: nineToSeven, Date: day, Step: 30 * time.Minute, Booked: []time.Time{other}})

	if len(after) != len(before)+1 {
		t.Fatalf("expected exactly one slot freed, before=%d after=%d", len(before), len(after))
	}
	seen := map[string]bool{}
	for _, s := range before {
		seen[s] = true
	}
	for _, s := range after {
		if !seen[s] && s != "11:00" {
			t.Fatalf("unexpected freed slot %s", s)
		}
		if s == "14:30" {
			t.Fatal("other appointment's slot must stay taken")
		}
	}
}

func TestGenerate_ClosedAndMalformedDays(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, h := range []tenant.DayHours{
		{Closed: true, Open: "09:00", Close: "19:00"},
		{Open: "nine", Close: "19:00"},
		{Open: "19:00", Close: "09:00"},
		{},
	} {
		slots := Generate(Request{Hours: h, Date: day, Step: 30 * time.Minute})
		if slots == nil || len(slots) != 0 {
			t.Fatalf("expected empty slice for %+v, got %v", h, slots)
		}
	}
}

func TestGenerate_BookingsMatchInBusinessLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	// 15:00 UTC is 10:00 in New York on that date.
	booked := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	// Same clock time on another day must not block.
	otherDay := time.Date(2026, 3, 3, 16, 0, 0, 0, loc)

	slots := Generate(Request{Hours: nineToSeven, Date: day, Step: 30 * time.Minute, Booked: []time.Time{booked, otherDay}})
	for _, s := range slots {
		if s == "10:00" {
			t.Fatal("10:00 local should be taken")
		}
	}
	found := false
	for _, s := range slots {
		if s == "16:00" {
			found = true
		}
	}
	if !found {
		t.Fatal("16:00 should be free: the booking is on another day")
	}
}

func TestGenerate_OffGridBookingDoesNotBlock(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots := Generate(Request{Hours: tenant.DayHours{Open: "09:00", Close: "10:00"}, Date: day, Step: 30 * time.Minute,
		Booked: []time.Time{day.Add(9*time.Hour + 15*time.Minute)}})
	if len(slots) != 2 {
		t.Fatalf("expected 09:00 and 09:30, got %v", slots)
	}
}

func TestAt(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Berlin")
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, loc)
	got, ok := At(day, "13:30")
	if !ok {
		t.Fatal("expected valid clock")
	}
	if got.Hour() != 13 || got.Minute() != 30 || got.Location() != loc {
		t.Fatalf("unexpected %s", got)
	}
	if _, ok := At(day, "25:00"); ok {
		t.Fatal("expected invalid clock")
	}
}
