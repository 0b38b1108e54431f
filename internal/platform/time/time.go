// Package time contains time related helpers
package time

import (
	"fmt"
	"time"
)

// Layout is the second-precision UTC form used by GH Archive payloads and our outputs
const Layout = "2006-01-02T15:04:05Z"

// Parse reads a Layout timestamp. Offsets and fractional seconds are rejected.
// time.Parse accepts a fractional field after seconds even when the layout has
// none, so the length is checked first
func Parse(s string) (time.Time, error) {
	if len(s) != len(Layout) {
		return time.Time{}, fmt.Errorf("parsing time %q: want layout %q", s, Layout)
	}
	return time.Parse(Layout, s)
}

// Format renders t in UTC using Layout
func Format(t time.Time) string { return t.UTC().Format(Layout) }

// Hour truncates t to the start of its UTC hour
func Hour(t time.Time) time.Time { return t.UTC().Truncate(time.Hour) }

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
