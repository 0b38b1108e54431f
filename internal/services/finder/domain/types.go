// Package domain holds the ports and data shapes of the finder service
package domain

import (
	"io"
	"time"

	"appimagefinder/internal/adapters/ingest/extract"
	"appimagefinder/internal/adapters/ingest/gharchive"
	"appimagefinder/internal/core/appimage"
	"appimagefinder/internal/core/timerange"
)

// EventEnvelope re-exports the envelope shape produced by the reader
type EventEnvelope = gharchive.EventEnvelope

// HourRef re-exports the archive hour reference
type HourRef = gharchive.HourRef

// Scan describes one run: the window plus the asset filters
type Scan struct {
	Window           timerange.Window
	Mode             appimage.ArchMode
	IncludeChecksums bool
}

// Source is one caller supplied dump stream; Name is used in logs and errors
type Source struct {
	Name string
	Body io.ReadCloser
}

// FileStats summarizes one processed dump file
type FileStats struct {
	Name      string
	Events    int
	Bytes     int64
	Releases  int // in-window release events
	Accepted  int // entries produced before dedup
	Skipped   extract.SkipStats
	Mismatch  int // lines with an unexpected field shape
	ReadMS    int
	ElapsedMS int
}

// RunStats aggregates a whole scan
type RunStats struct {
	Files    int
	Missing  int // hours skipped because the archive has no file
	Events   int
	Releases int
	Accepted int
	Kept     int
	Skipped  extract.SkipStats
	Mismatch int
	Elapsed  time.Duration
}

// Add folds one file into the run totals
func (s *RunStats) Add(f FileStats) {
	s.Files++
	s.Events += f.Events
	s.Releases += f.Releases
	s.Accepted += f.Accepted
	s.Skipped.Add(f.Skipped)
	s.Mismatch += f.Mismatch
}
