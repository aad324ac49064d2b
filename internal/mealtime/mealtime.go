// Package mealtime defines the meal types served by the canteen and the
// clock windows during which each meal may be confirmed.  All window
// checks are evaluated in a single canonical time zone so that behavior
// does not depend on the caller's locale.
package mealtime

import (
	"fmt"
	"strings"
	"time"
)

// MealType identifies one of the three daily meals.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// All lists every meal type in serving order.  Reporting code iterates
// over this slice to produce a stable per-meal breakdown.
var All = []MealType{Breakfast, Lunch, Dinner}

// Parse validates a raw meal type string.  Input is trimmed and
// lower-cased before comparison.
func Parse(raw string) (MealType, error) {
	switch MealType(strings.ToLower(strings.TrimSpace(raw))) {
	case Breakfast:
		return Breakfast, nil
	case Lunch:
		return Lunch, nil
	case Dinner:
		return Dinner, nil
	}
	return "", fmt.Errorf("unsupported meal type %q", raw)
}

// Label returns a display name for the meal type.
func (m MealType) Label() string {
	switch m {
	case Breakfast:
		return "breakfast"
	case Lunch:
		return "lunch"
	case Dinner:
		return "dinner"
	}
	return string(m)
}

// DateLayout is the calendar date format used for dining dates across
// the API and the database.
const DateLayout = "2006-01-02"

// ParseDate validates a dining date string against DateLayout.
func ParseDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return s, nil
}

// Window is a clock range within a single day, expressed as minutes
// since midnight.  End is exclusive of nothing: a time equal to either
// bound is inside the window.
type Window struct {
	StartMin int
	EndMin   int
}

// String renders the window as "HH:MM-HH:MM" for error messages.
func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartMin/60, w.StartMin%60, w.EndMin/60, w.EndMin%60)
}

// Contains reports whether the given clock time (minutes since
// midnight) falls inside the window, bounds included.
func (w Window) Contains(min int) bool {
	return min >= w.StartMin && min <= w.EndMin
}

// ParseWindow parses a "HH:MM-HH:MM" specification.  The start must
// precede the end; windows never span midnight.
func ParseWindow(spec string) (Window, error) {
	parts := strings.SplitN(strings.TrimSpace(spec), "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid window %q, expected HH:MM-HH:MM", spec)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %v", spec, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %v", spec, err)
	}
	if start >= end {
		return Window{}, fmt.Errorf("invalid window %q: start must precede end", spec)
	}
	return Window{StartMin: start, EndMin: end}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad clock time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Schedule maps each meal type to its confirmation window and carries
// the canonical location in which "today" and clock times are computed.
type Schedule struct {
	loc     *time.Location
	windows map[MealType]Window
}

// DefaultWindows are used when no per-meal override is configured.
var DefaultWindows = map[MealType]Window{
	Breakfast: {StartMin: 6*60 + 30, EndMin: 9*60 + 30},
	Lunch:     {StartMin: 11 * 60, EndMin: 13*60 + 30},
	Dinner:    {StartMin: 17 * 60, EndMin: 19*60 + 30},
}

// NewSchedule builds a schedule from the given location and window
// table.  Meals missing from windows fall back to DefaultWindows.
func NewSchedule(loc *time.Location, windows map[MealType]Window) *Schedule {
	if loc == nil {
		loc = time.UTC
	}
	ws := make(map[MealType]Window, len(All))
	for _, m := range All {
		if w, ok := windows[m]; ok {
			ws[m] = w
		} else {
			ws[m] = DefaultWindows[m]
		}
	}
	return &Schedule{loc: loc, windows: ws}
}

// WindowFor returns the confirmation window for a meal type.
func (s *Schedule) WindowFor(meal MealType) (Window, bool) {
	w, ok := s.windows[meal]
	return w, ok
}

// Today formats the given instant as a dining date in the canonical
// location.
func (s *Schedule) Today(at time.Time) string {
	return at.In(s.loc).Format(DateLayout)
}

// InWindow reports whether the given instant falls inside the meal's
// confirmation window, evaluated in the canonical location.
func (s *Schedule) InWindow(meal MealType, at time.Time) bool {
	w, ok := s.windows[meal]
	if !ok {
		return false
	}
	local := at.In(s.loc)
	return w.Contains(local.Hour()*60 + local.Minute())
}
