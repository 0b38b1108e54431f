// Package module wires the finder service from config
package module

import (
	"appimagefinder/internal/core/timerange"
	"appimagefinder/internal/modkit"
	"appimagefinder/internal/modkit/httpkit"
	"appimagefinder/internal/services/finder/domain"
	"appimagefinder/internal/services/finder/ingest"
	"appimagefinder/internal/services/finder/service"
)

// Ports defines the finder module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the finder module
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *service.Service
	ports Ports
}

// New constructs the finder module from deps.Cfg. It does not mount any routes
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fetch, err := ingest.NewFetcher(deps) // CORE_INGEST_*
	if err != nil {
		return nil, err
	}
	return NewWithFetcher(deps, opts, fetch), nil
}

// NewWithFetcher wires the module around an explicit fetcher
func NewWithFetcher(deps modkit.Deps, opts Options, fetch domain.Fetcher) *Module {
	svc := service.New(fetch, ingest.NewReaderFactory(), service.Config{
		Mode:             opts.Mode(),
		IncludeChecksums: opts.IncludeChecksums,
		DelayPerHour:     opts.DelayPerHour,
		MaxRetries:       opts.MaxRetries,
		RetryBase:        opts.RetryBase,
		FileTimeout:      opts.FileTimeout,
		FetchTimeout:     opts.FetchTimeout,
		ReadTimeout:      opts.ReadTimeout,
		MaxRangeHours:    opts.MaxRangeHours,
		SkipMissing:      opts.SkipMissing,
	})

	m := &Module{deps: deps, opts: opts, svc: svc}
	m.ports = Ports{Runner: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "finder" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module. Routes live in the api releases module
func (m *Module) MountRoutes(httpkit.Router) {}

var _ modkit.Module = (*Module)(nil)

// Runner returns the scan port
func (m *Module) Runner() domain.RunnerPort { return m.ports.Runner }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// DefaultScan returns a scan over w using the configured filters
func (m *Module) DefaultScan(w timerange.Window) domain.Scan {
	return m.svc.DefaultScan(w)
}
