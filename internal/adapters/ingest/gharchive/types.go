package gharchive

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"appimagefinder/internal/core/timerange"
)

// HourRef identifies a GH Archive hour (UTC).
type HourRef struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// NewHourRef creates an HourRef from a time.Time, converting to UTC
func NewHourRef(t time.Time) HourRef {
	ut := t.UTC()
	return HourRef{Year: ut.Year(), Month: int(ut.Month()), Day: ut.Day(), Hour: ut.Hour()}
}

// String returns the string representation of the HourRef in GH Archive format
func (h HourRef) String() string {
	// Matches GH Archive naming: YYYY-MM-DD-H.json.gz
	return fmt.Sprintf("%04d-%02d-%02d-%d", h.Year, h.Month, h.Day, h.Hour)
}

// FileName is the dump name for the hour
func (h HourRef) FileName() string { return h.String() + ".json.gz" }

// Time returns the start of the hour
func (h HourRef) Time() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// Hours lists every hour from w.Start to w.End inclusive; empty when End precedes Start
func Hours(w timerange.Window) []HourRef {
	n := w.Hours()
	out := make([]HourRef, 0, n)
	start := w.Start.UTC().Truncate(time.Hour)
	for t := start; !t.After(w.End); t = t.Add(time.Hour) {
		out = append(out, NewHourRef(t))
	}
	return out
}

// parseHourFromName parses YYYY-MM-DD-H from a dump filename
func parseHourFromName(name string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02-15", strings.TrimSuffix(name, ".json.gz"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EventEnvelope is the outer event format GH Archive stores per line.
// We keep only the fields we need for extraction; Payload is raw for type-specific decode.
// CreatedAt stays a string so a bad timestamp is a skip, not a decode failure
type EventEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Repo      Repo            `json:"repo"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// Repo is the repository the event occurred in
type Repo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"` // owner/name
}

// DecodeLoose unmarshals b into v. Syntax errors are returned; type mismatches are
// not, and leave the offending fields at their zero value. mismatch reports whether
// any field was dropped
func DecodeLoose(b []byte, v any) (mismatch bool, err error) {
	err = json.Unmarshal(b, v)
	if err == nil {
		return false, nil
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return true, nil
	}
	return false, err
}
