// Package ingest holds adapter shims for finder ingest ports
package ingest

import (
	"context"
	"io"

	"appimagefinder/internal/adapters/ingest/gharchive"
	"appimagefinder/internal/modkit"
	"appimagefinder/internal/services/finder/domain"
)

// fetcher implements domain.Fetcher over a gharchive source
type fetcher struct {
	f gharchive.Fetcher
}

// NewFetcher builds a domain.Fetcher from config under CORE_INGEST_*.
// Config reading stays here so the service only sees ports
func NewFetcher(deps modkit.Deps) (domain.Fetcher, error) {
	f, err := gharchive.NewSource(gharchive.SourceFromConfig(deps.Cfg.Prefix("CORE_INGEST_")))
	if err != nil {
		return nil, err
	}
	return &fetcher{f: f}, nil
}

// WrapFetcher adapts an existing gharchive fetcher, mostly for tests and custom wiring
func WrapFetcher(f gharchive.Fetcher) domain.Fetcher { return &fetcher{f: f} }

func (f *fetcher) Fetch(ctx context.Context, hr domain.HourRef) (io.ReadCloser, error) {
	return f.f.Fetch(ctx, hr)
}
