// Package guardrails holds time budget helpers for finder runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for one hour file.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// File is the overall budget for fetching and scanning one hour file
	File time.Duration

	// Fetch caps the acquisition step
	Fetch time.Duration

	// Read caps the decompress and scan step
	Read time.Duration
}

// WithFile returns a context limited by the file budget without extending any parent deadline
func WithFile(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.File)
}

// ForFetch returns a sub context for the fetch phase bounded by Fetch and any remaining parent budget
func ForFetch(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Fetch)
}

// ForRead returns a sub context for the read phase bounded by Read and any remaining parent budget
func ForRead(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Read)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout picks the tighter of d and the parent remainder; zero d only adds a cancel
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
