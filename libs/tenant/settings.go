// Package tenant holds the business-scoped entities shared by every service:
// the business itself with its typed settings, its staff and its services.
package tenant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimezone    = "UTC"
	DefaultPhoneRegion = "US"
	DefaultSlotMinutes = 30
)

// DayHours is the opening window for one weekday, clock times as "HH:MM".
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// Bounds returns the window as minutes after midnight. ok is false for a closed
// day or any malformed or inverted window.
func (d DayHours) Bounds() (open, close int, ok bool) {
	if d.Closed {
		return 0, 0, false
	}
	open, ok1 := ParseClock(d.Open)
	close, ok2 := ParseClock(d.Close)
	if !ok1 || !ok2 || close <= open {
		return 0, 0, false
	}
	return open, close, true
}

// WeekHours maps time.Weekday (0 = Sunday) to that day's window.
// A missing weekday is closed.
type WeekHours map[time.Weekday]DayHours

func (w WeekHours) For(day time.Weekday) DayHours {
	if w == nil {
		return DayHours{Closed: true}
	}
	h, ok := w[day]
	if !ok {
		return DayHours{Closed: true}
	}
	return h
}

type Notifications struct {
	Confirmation bool `json:"confirmation"`
	Reminder     bool `json:"reminder"`
}

type Settings struct {
	Timezone      string        `json:"timezone"`
	PhoneRegion   string        `json:"phone_region"`
	SlotMinutes   int           `json:"slot_minutes"`
	Hours         WeekHours     `json:"hours"`
	Notifications Notifications `json:"notifications"`
}

// DefaultHours is 09:00-19:00 every day.
func DefaultHours() WeekHours {
	h := WeekHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		h[d] = DayHours{Open: "09:00", Close: "19:00"}
	}
	return h
}

func DefaultSettings() Settings {
	return Settings{
		Timezone:      DefaultTimezone,
		PhoneRegion:   DefaultPhoneRegion,
		SlotMinutes:   DefaultSlotMinutes,
		Hours:         DefaultHours(),
		Notifications: Notifications{Confirmation: true, Reminder: true},
	}
}

// ParseSettings decodes the stored settings document. Fields absent from the
// document or of the wrong shape keep their defaults. A document without
// "hours" gets the default week, a partial "hours" object leaves the other
// days closed, and unreadable hours close every day.
func ParseSettings(raw []byte) Settings {
	s := DefaultSettings()
	if len(raw) == 0 {
		return s
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.Hours = WeekHours{}
		return s
	}
	decodeField(doc, "timezone", &s.Timezone)
	decodeField(doc, "phone_region", &s.PhoneRegion)
	decodeField(doc, "slot_minutes", &s.SlotMinutes)
	decodeField(doc, "notifications", &s.Notifications)
	if hours, ok := doc["hours"]; ok {
		week, err := ParseWeekHours(hours)
		if err != nil {
			week = WeekHours{}
		}
		s.Hours = week
	}
	return s.withDefaults()
}

func decodeField(doc map[string]json.RawMessage, key string, dst any) {
	if v, ok := doc[key]; ok {
		_ = json.Unmarshal(v, dst)
	}
}

// ParseWeekHours decodes an hours object keyed by weekday number ("0" is
// Sunday). Keys outside 0-6 are dropped and an entry that does not decode
// becomes a closed day. A value that is not an object is an error.
func ParseWeekHours(raw []byte) (WeekHours, error) {
	var days map[string]json.RawMessage
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("hours: %w", err)
	}
	if days == nil {
		return nil, fmt.Errorf("hours: null")
	}
	week := WeekHours{}
	for key, v := range days {
		n, err := strconv.Atoi(key)
		if err != nil || n < int(time.Sunday) || n > int(time.Saturday) {
			continue
		}
		var h DayHours
		if err := json.Unmarshal(v, &h); err != nil {
			h = DayHours{Closed: true}
		}
		week[time.Weekday(n)] = h
	}
	return week, nil
}

// ClosedWeek marks all seven days closed.
func ClosedWeek() WeekHours {
	h := WeekHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		h[d] = DayHours{Closed: true}
	}
	return h
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.Timezone) == "" {
		s.Timezone = DefaultTimezone
	}
	if strings.TrimSpace(s.PhoneRegion) == "" {
		s.PhoneRegion = DefaultPhoneRegion
	}
	if s.SlotMinutes <= 0 {
		s.SlotMinutes = DefaultSlotMinutes
	}
	return s
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s Settings) SlotStep() time.Duration {
	if s.SlotMinutes <= 0 {
		return DefaultSlotMinutes * time.Minute
	}
	return time.Duration(s.SlotMinutes) * time.Minute
}

// Validate is applied when settings are written. Reads never fail on bad data.
func (s Settings) Validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return fmt.Errorf("timezone %q is not a valid IANA zone", s.Timezone)
	}
	if len(s.PhoneRegion) != 2 {
		return fmt.Errorf("phone_region must be a two-letter region code")
	}
	if s.SlotMinutes < 5 || s.SlotMinutes > 240 || 24*60%s.SlotMinutes != 0 {
		return fmt.Errorf("slot_minutes must divide a day and lie between 5 and 240")
	}
	return s.Hours.Validate()
}

// Validate rejects unknown weekdays and open days without a usable window.
func (w WeekHours) Validate() error {
	for day, h := range w {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("hours: weekday %d out of range", day)
		}
		if h.Closed {
			continue
		}
		if _, _, ok := h.Bounds(); !ok {
			return fmt.Errorf("hours: %s needs open before close as HH:MM", day)
		}
	}
	return nil
}

func (s Settings) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// ParseClock parses "HH:MM" (24h) into minutes after midnight.
func ParseClock(v string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(v), ":")
	if !found || len(hh) != 2 || len(mm) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
