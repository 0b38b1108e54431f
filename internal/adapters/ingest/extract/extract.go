// Package extract turns GH Archive event envelopes into release events carrying AppImage candidates
package extract

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"appimagefinder/internal/adapters/ingest/gharchive"
	"appimagefinder/internal/core/appimage"
	"appimagefinder/internal/core/timerange"
	ptime "appimagefinder/internal/platform/time"
)

// ReleaseEventType is the GH Archive type of a published release
const ReleaseEventType = "ReleaseEvent"

// ReleaseEvent is one in-window release with its raw asset list
type ReleaseEvent struct {
	EventID   string
	CreatedAt time.Time
	Release   appimage.ReleaseInput
	Assets    []appimage.Asset
}

// Envelopes is the reader seam; *gharchive.Reader satisfies it
type Envelopes interface {
	Next() (gharchive.EventEnvelope, error)
}

// SkipStats counts records dropped by reason
type SkipStats struct {
	OtherType  int // not a ReleaseEvent
	BadTime    int // created_at missing or unparseable
	OutOfRange int // created_at outside the window
	NoRelease  int // payload.release missing or assets not an array
	NoRepo     int // repo.name missing
}

// Add folds o into s
func (s *SkipStats) Add(o SkipStats) {
	s.OtherType += o.OtherType
	s.BadTime += o.BadTime
	s.OutOfRange += o.OutOfRange
	s.NoRelease += o.NoRelease
	s.NoRepo += o.NoRepo
}

// Total is the number of skipped records of any reason
func (s SkipStats) Total() int {
	return s.OtherType + s.BadTime + s.OutOfRange + s.NoRelease + s.NoRepo
}

// ReleaseStream lazily yields release events within a window
type ReleaseStream struct {
	src    Envelopes
	window timerange.Window
	skips  SkipStats
	yield  int
}

// NewReleaseStream wraps src
func NewReleaseStream(src Envelopes, w timerange.Window) *ReleaseStream {
	return &ReleaseStream{src: src, window: w}
}

// Next returns the next release event; io.EOF when the source is exhausted.
// Source errors are returned unchanged
func (s *ReleaseStream) Next() (ReleaseEvent, error) {
	for {
		env, err := s.src.Next()
		if err != nil {
			return ReleaseEvent{}, err
		}
		ev, ok := s.fromEnvelope(env)
		if !ok {
			continue
		}
		s.yield++
		return ev, nil
	}
}

// Skipped returns the skip counters so far
func (s *ReleaseStream) Skipped() SkipStats { return s.skips }

// Yielded returns how many release events were returned so far
func (s *ReleaseStream) Yielded() int { return s.yield }

// releasePayload models the parts of a ReleaseEvent payload we read.
// Pointer fields distinguish absent from empty
type releasePayload struct {
	Release json.RawMessage `json:"release"`
}

type releaseBody struct {
	Name        *string         `json:"name"`
	TagName     *string         `json:"tag_name"`
	PublishedAt *string         `json:"published_at"`
	Assets      json.RawMessage `json:"assets"`
}

func (s *ReleaseStream) fromEnvelope(env gharchive.EventEnvelope) (ReleaseEvent, bool) {
	if env.Type != ReleaseEventType {
		s.skips.OtherType++
		return ReleaseEvent{}, false
	}
	// a missing or bad timestamp never falls back to the window start
	at, err := ptime.Parse(env.CreatedAt)
	if err != nil {
		s.skips.BadTime++
		return ReleaseEvent{}, false
	}
	if !s.window.Contains(at) {
		s.skips.OutOfRange++
		return ReleaseEvent{}, false
	}

	body, assets, ok := decodeRelease(env.Payload)
	if !ok {
		s.skips.NoRelease++
		return ReleaseEvent{}, false
	}
	if env.Repo.Name == "" {
		s.skips.NoRepo++
		return ReleaseEvent{}, false
	}

	in := appimage.ReleaseInput{Repo: env.Repo.Name, Name: body.Name, TagName: body.TagName}
	if body.PublishedAt != nil {
		in.PublishedAt = *body.PublishedAt
	}
	return ReleaseEvent{EventID: env.ID, CreatedAt: at, Release: in, Assets: assets}, true
}

// decodeRelease extracts payload.release and its assets array. Shape mismatches
// report !ok instead of an error
func decodeRelease(payload json.RawMessage) (releaseBody, []appimage.Asset, bool) {
	var p releasePayload
	if _, err := gharchive.DecodeLoose(payload, &p); err != nil || !isObject(p.Release) {
		return releaseBody{}, nil, false
	}
	var body releaseBody
	if _, err := gharchive.DecodeLoose(p.Release, &body); err != nil || !isArray(body.Assets) {
		return releaseBody{}, nil, false
	}
	// elements that are not objects decode to empty assets and never match a suffix
	var assets []appimage.Asset
	if _, err := gharchive.DecodeLoose(body.Assets, &assets); err != nil {
		return releaseBody{}, nil, false
	}
	if assets == nil {
		assets = []appimage.Asset{}
	}
	return body, assets, true
}

func isObject(b json.RawMessage) bool { return firstByte(b) == '{' }
func isArray(b json.RawMessage) bool  { return firstByte(b) == '[' }

func firstByte(b []byte) byte {
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// Drain collects every release event from s; handy for tests and small inputs
func Drain(s *ReleaseStream) ([]ReleaseEvent, error) {
	var out []ReleaseEvent
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
