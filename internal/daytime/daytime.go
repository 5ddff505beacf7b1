// Package daytime parses and manipulates wall-clock trigger times ("HH:MM").
package daytime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/cadence/errors"
)

// TimeOfDay is a minute-resolution wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Parse reads "HH:MM" in 24-hour range. Single-digit hours ("8:00") are accepted.
func Parse(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 || !digits(hh) || !digits(mm) {
		return TimeOfDay{}, errors.NewInvalidConfigError("trigger time %q: want HH:MM", s)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, errors.NewInvalidConfigError("trigger time %q: hour out of range 00-23", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, errors.NewInvalidConfigError("trigger time %q: minute out of range 00-59", s)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// digits reports whether s is made only of ASCII digits.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseSet parses a trigger list. The result is non-empty, deduplicated and
// sorted; any invalid entry rejects the whole list.
func ParseSet(values []string) ([]TimeOfDay, error) {
	if len(values) == 0 {
		return nil, errors.NewInvalidConfigError("schedule needs at least one trigger time")
	}

	seen := make(map[TimeOfDay]bool, len(values))
	out := make([]TimeOfDay, 0, len(values))
	for _, v := range values {
		t, err := Parse(v)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Strings renders a trigger list back to "HH:MM" form.
func Strings(times []TimeOfDay) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.String()
	}
	return out
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before orders times within a day.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.minutes() < o.minutes()
}

// On returns the instant this time of day occurs on the calendar date of
// day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Next returns the first occurrence strictly after now.
func (t TimeOfDay) Next(now time.Time, loc *time.Location) time.Time {
	at := t.On(now, loc)
	if !at.After(now) {
		at = t.On(now.In(loc).AddDate(0, 0, 1), loc)
	}
	return at
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// DateKey formats the calendar date of ts in loc as YYYY-MM-DD.
func DateKey(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format("2006-01-02")
}

// DayBounds returns [start, end) of the calendar day containing ts in loc.
func DayBounds(ts time.Time, loc *time.Location) (time.Time, time.Time) {
	d := ts.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Relative renders a positive duration as "in 3h 5m", "in 12m" or "now".
func Relative(d time.Duration) string {
	if d < time.Minute {
		return "now"
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("in %dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("in %dh", h)
	default:
		return fmt.Sprintf("in %dm", m)
	}
}
