// Package calendar holds the date arithmetic behind the month view: the
// 42-cell grid, day keys and 12-hour time formatting.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"monthcal/internal/model"
)

const (
	// GridCells is six full weeks, enough for any month.
	GridCells = 42

	// CellEventLimit is how many events a grid cell shows before "+N more".
	CellEventLimit = 2

	// UpcomingLimit caps the sidebar list.
	UpcomingLimit = 5

	dayKeyLayout = "2006-01-02"
	time24Layout = "15:04"
	time12Layout = "3:04 PM"
	monthLayout  = "2006-01"
)

// Date truncates t to its calendar date at midnight UTC. All grid math works
// on these values so DST transitions never shorten or stretch a day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves a month start by delta months. Working from the first of the
// month avoids the Jan 31 + 1 month = Mar 3 overflow.
func AddMonths(month time.Time, delta int) time.Time {
	return MonthStart(month).AddDate(0, delta, 0)
}

// GridStart is the Sunday on or before the first of ref's month.
func GridStart(ref time.Time) time.Time {
	first := MonthStart(ref)
	return first.AddDate(0, 0, -int(first.Weekday()))
}

// Grid returns the 42 consecutive dates shown for ref's month.
func Grid(ref time.Time) []time.Time {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   GridCells,
		Dtstart: GridStart(ref),
	})
	if err != nil {
		// Only reachable with an invalid option set, which the literal above is not.
		panic(fmt.Sprintf("calendar: grid rule: %v", err))
	}
	return r.All()
}

// DayKey formats t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD key. Out-of-range days (2023-02-30) are
// rejected.
func ParseDayKey(s string) (time.Time, error) {
	t, err := time.Parse(dayKeyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", s, err)
	}
	return t, nil
}

// ValidDayKey reports whether s is a well-formed calendar date.
func ValidDayKey(s string) bool {
	_, err := ParseDayKey(s)
	return err == nil
}

// MonthKey formats the month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(monthLayout)
}

// ParseMonthKey parses YYYY-MM into the first of that month.
func ParseMonthKey(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t, nil
}

// Today returns the current calendar date in loc as a UTC date.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Date(now.In(loc))
}

var errEmptyTime = errors.New("empty time")

// ParseTime24 validates a zero-padded HH:MM string.
func ParseTime24(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errEmptyTime
	}
	t, err := time.Parse(time24Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	// time.Parse accepts "9:00" for "15:04".
	if t.Format(time24Layout) != s {
		return time.Time{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return t, nil
}

// FormatTime12 turns "14:05" into "2:05 PM". Invalid input is returned as is.
func FormatTime12(time24 string) string {
	t, err := ParseTime24(time24)
	if err != nil {
		return time24
	}
	return t.Format(time12Layout)
}

// Cell is one day slot of the month grid.
type Cell struct {
	Date      time.Time
	Key       string
	Day       int
	InMonth   bool
	IsToday   bool
	Events    []model.Event
	MoreCount int
}

// EventLookup returns the events stored on a day key.
type EventLookup func(dayKey string) []model.Event

// MonthCells builds the tagged grid for ref's month.
func MonthCells(ref, today time.Time, lookup EventLookup) []Cell {
	days := Grid(ref)
	month := MonthStart(ref).Month()
	todayKey := DayKey(today)

	cells := make([]Cell, 0, len(days))
	for _, d := range days {
		key := DayKey(d)
		c := Cell{
			Date:    d,
			Key:     key,
			Day:     d.Day(),
			InMonth: d.Month() == month,
			IsToday: key == todayKey,
		}
		if lookup != nil {
			evs := lookup(key)
			if len(evs) > CellEventLimit {
				c.MoreCount = len(evs) - CellEventLimit
				evs = evs[:CellEventLimit]
			}
			c.Events = evs
		}
		cells = append(cells, c)
	}
	return cells
}

// Weeks splits cells into rows of seven.
func Weeks(cells []Cell) [][]Cell {
	out := make([][]Cell, 0, len(cells)/7)
	for i := 0; i+7 <= len(cells); i += 7 {
		out = append(out, cells[i:i+7])
	}
	return out
}
