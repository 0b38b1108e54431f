// Package timerange resolves coarse time strings into inclusive hour windows
package timerange

import (
	"strconv"
	"strings"
	"time"

	perr "appimagefinder/internal/platform/errors"
)

// Precision is the granularity a time string was written at
type Precision int

const (
	// Year is "yyyy"
	Year Precision = iota + 1
	// Month is "yyyy-mm"
	Month
	// Day is "yyyy-mm-dd"
	Day
	// Hour is "yyyy-mm-dd-hh"
	Hour
)

func (p Precision) String() string {
	switch p {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	case Hour:
		return "hour"
	default:
		return "unknown"
	}
}

// Window is an inclusive [Start, End] range in UTC
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the window, bounds included
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Hours returns the number of hour slots the window spans, 0 when End precedes Start
func (w Window) Hours() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return int(w.End.Sub(w.Start)/time.Hour) + 1
}

// Parse reads yyyy[-mm[-dd[-hh]]] as a UTC instant at the start of the named period
func Parse(s string) (time.Time, Precision, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if s == "" || len(parts) > 4 {
		return time.Time{}, 0, perr.InvalidArgf("time %q: want yyyy, yyyy-mm, yyyy-mm-dd or yyyy-mm-dd-hh", s)
	}

	// month and day default to 1, hour to 0
	vals := [4]int{0, 1, 1, 0}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, 0, perr.InvalidArgf("time %q: component %q is not a number", s, p)
		}
		vals[i] = n
	}

	t := time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, so a round trip catches 2024-13 or 2024-02-30
	if t.Year() != vals[0] || int(t.Month()) != vals[1] || t.Day() != vals[2] || t.Hour() != vals[3] {
		return time.Time{}, 0, perr.InvalidArgf("time %q: no such date", s)
	}
	return t, Precision(len(parts)), nil
}

// AdjustEnd moves t to the last hour of the period it was written at
func AdjustEnd(t time.Time, p Precision) time.Time {
	switch p {
	case Year:
		return time.Date(t.Year(), time.December, 31, 23, 0, 0, 0, time.UTC)
	case Month:
		// day 0 of the next month is the last day of this one
		return time.Date(t.Year(), t.Month()+1, 0, 23, 0, 0, 0, time.UTC)
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// Resolve parses both bounds and expands end to cover its whole period
func Resolve(start, end string) (Window, error) {
	s, _, err := Parse(start)
	if err != nil {
		return Window{}, perr.WithField(err, "start")
	}
	e, p, err := Parse(end)
	if err != nil {
		return Window{}, perr.WithField(err, "end")
	}
	w := Window{Start: s, End: AdjustEnd(e, p)}
	if w.End.Before(w.Start) {
		return Window{}, perr.InvalidArgf("end %s is before start %s", w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return w, nil
}
