// Package service runs finder scans on behalf of API requests
package service

import (
	"context"
	"strings"
	"time"

	"appimagefinder/internal/adapters/output"
	"appimagefinder/internal/core/appimage"
	"appimagefinder/internal/core/timerange"
	perr "appimagefinder/internal/platform/errors"
	"appimagefinder/internal/platform/logger"
	"appimagefinder/internal/services/api/releases/domain"
	finderdom "appimagefinder/internal/services/finder/domain"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// settle is how long after an hour ends before its dump is treated as final
const settle = 2 * time.Hour

// Config configures the releases service
type Config struct {
	// Defaults supplies the arch mode and checksum flag used when a query leaves them out
	Defaults finderdom.Scan
	// CacheSize bounds the result cache for settled windows, 0 disables it
	CacheSize int
}

type cacheKey struct {
	start, end time.Time
	mode       appimage.ArchMode
	checksums  bool
}

// Service serializes scans; the finder has no concurrency model so only one runs at a time
type Service struct {
	runner   finderdom.RunnerPort
	defaults finderdom.Scan
	busy     chan struct{}
	cache    *lru.Cache[cacheKey, []appimage.Release]

	// seams for tests
	newID func() string
	now   func() time.Time
}

// New returns a Service over runner
func New(runner finderdom.RunnerPort, cfg Config) *Service {
	defaults := cfg.Defaults
	if defaults.Mode == "" {
		defaults.Mode = appimage.ModeAll
	}
	s := &Service{
		runner:   runner,
		defaults: defaults,
		busy:     make(chan struct{}, 1),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	if cfg.CacheSize > 0 {
		// lru.New only fails on a non-positive size
		s.cache, _ = lru.New[cacheKey, []appimage.Release](cfg.CacheSize)
	}
	return s
}

// Search resolves q into a scan, waits for any running scan to finish, then runs it
func (s *Service) Search(ctx context.Context, q domain.Query) (domain.Result, error) {
	if s.runner == nil {
		return domain.Result{}, perr.Unavailablef("releases: finder not wired")
	}
	scan, err := s.scanOf(q)
	if err != nil {
		return domain.Result{}, err
	}

	select {
	case s.busy <- struct{}{}:
	case <-ctx.Done():
		return domain.Result{}, perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "releases: waiting for running scan")
	}
	defer func() { <-s.busy }()

	id := s.newID()
	ctx = logger.WithRun(ctx, id)
	log := logger.C(ctx).With().Str("component", "releases").Logger()

	key := cacheKey{start: scan.Window.Start, end: scan.Window.End, mode: scan.Mode, checksums: scan.IncludeChecksums}
	if rs, ok := s.cached(key); ok {
		log.Info().Int("count", len(rs)).Msg("releases: served from cache")
		return s.result(id, scan, rs, true), nil
	}

	start := s.now()
	log.Info().
		Time("start", scan.Window.Start).
		Time("end", scan.Window.End).
		Str("arch", string(scan.Mode)).
		Bool("checksums", scan.IncludeChecksums).
		Msg("releases: scan start")

	rs, err := s.runner.RunRange(ctx, scan)
	if err != nil {
		log.Warn().Err(err).Msg("releases: scan failed")
		return domain.Result{}, err
	}
	if rs == nil {
		rs = []appimage.Release{}
	}
	output.Sort(rs)

	log.Info().Int("count", len(rs)).Dur("elapsed", s.now().Sub(start)).Msg("releases: scan done")
	if s.cache != nil && scan.Window.End.Add(settle).Before(s.now()) {
		s.cache.Add(key, rs)
	}
	return s.result(id, scan, rs, false), nil
}

func (s *Service) cached(k cacheKey) ([]appimage.Release, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(k)
}

// result copies rs so callers cannot mutate cached entries
func (s *Service) result(id string, scan finderdom.Scan, rs []appimage.Release, cached bool) domain.Result {
	out := make([]appimage.Release, len(rs))
	copy(out, rs)
	return domain.Result{
		RunID:    id,
		Start:    scan.Window.Start,
		End:      scan.Window.End,
		Arch:     scan.Mode,
		Cached:   cached,
		Count:    len(out),
		Releases: out,
	}
}

func (s *Service) scanOf(q domain.Query) (finderdom.Scan, error) {
	w, err := timerange.Resolve(q.Start, q.End)
	if err != nil {
		return finderdom.Scan{}, err
	}
	scan := s.defaults
	scan.Window = w
	if strings.TrimSpace(q.Arch) != "" {
		mode, err := appimage.ParseArchMode(q.Arch)
		if err != nil {
			return finderdom.Scan{}, err
		}
		scan.Mode = mode
	}
	if q.IncludeChecksums != nil {
		scan.IncludeChecksums = *q.IncludeChecksums
	}
	return scan, nil
}
