package domain

import (
	"context"
	"io"

	"appimagefinder/internal/core/appimage"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	RunRange(ctx context.Context, scan Scan) ([]appimage.Release, error)
	RunFiles(ctx context.Context, scan Scan, files []Source) ([]appimage.Release, error)
}

// Fetcher is the hour file acquisition interface
type Fetcher interface {
	Fetch(ctx context.Context, hr HourRef) (io.ReadCloser, error)
}

// ReaderPort is the event reader interface
type ReaderPort interface {
	Next() (EventEnvelope, error)
	Close() error
	Stats() (events int, bytes int64)
	Mismatched() int
}

// ReaderFactory is the event reader factory interface; source names the stream in errors
type ReaderFactory interface {
	New(rc io.ReadCloser, source string) (ReaderPort, error)
}
