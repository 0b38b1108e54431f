// Package service provides the finder scan pipeline
package service

import (
	"context"
	"io"
	"math/rand"
	"strings"
	"time"

	"appimagefinder/internal/adapters/ingest/extract"
	"appimagefinder/internal/adapters/ingest/gharchive"
	"appimagefinder/internal/core/appimage"
	"appimagefinder/internal/core/timerange"
	perr "appimagefinder/internal/platform/errors"
	"appimagefinder/internal/platform/logger"
	"appimagefinder/internal/services/finder/domain"
	"appimagefinder/internal/services/finder/guardrails"
)

// Config holds configuration options for the finder service
type Config struct {
	// Default filters for scans built with DefaultScan
	Mode             appimage.ArchMode
	IncludeChecksums bool

	// Pacing between consecutive hours
	DelayPerHour time.Duration

	// Fetch retry
	MaxRetries int           // attempts per hour; <=0 -> 1
	RetryBase  time.Duration // base backoff; <=0 -> 500ms

	// Timeouts applied via guardrails. FileTimeout bounds fetch plus scan of one
	// hour; ReadTimeout bounds the scan and is checked between records
	FileTimeout  time.Duration
	FetchTimeout time.Duration
	ReadTimeout  time.Duration

	// Range guard
	MaxRangeHours int // 0 = unlimited

	// SkipMissing logs and skips hours the archive does not have instead of failing the run
	SkipMissing bool
}

// Service runs scans one file at a time. A Service is safe to share but
// callers must not overlap scans that write the same cache directory
type Service struct {
	Fetch  domain.Fetcher
	Reader domain.ReaderFactory
	Cfg    Config

	sleep func(context.Context, time.Duration) error // seam
}

// New constructs the finder service. f may be nil when only RunFiles is used
func New(f domain.Fetcher, rf domain.ReaderFactory, cfg Config) *Service {
	if rf == nil {
		panic("finder.Service requires a non nil ReaderFactory")
	}
	if cfg.Mode == "" {
		cfg.Mode = appimage.ModeAll
	}
	return &Service{Fetch: f, Reader: rf, Cfg: cfg, sleep: sleepCtx}
}

// DefaultScan builds a scan over w using the configured filters
func (s *Service) DefaultScan(w timerange.Window) domain.Scan {
	return domain.Scan{Window: w, Mode: s.Cfg.Mode, IncludeChecksums: s.Cfg.IncludeChecksums}
}

// RunRange fetches and scans every hour of the window in order and returns
// the deduplicated entries. An empty window yields an empty result
func (s *Service) RunRange(ctx context.Context, scan domain.Scan) ([]appimage.Release, error) {
	scan = s.normalize(scan)
	n := scan.Window.Hours()
	if s.Cfg.MaxRangeHours > 0 && n > s.Cfg.MaxRangeHours {
		return nil, perr.WithField(perr.InvalidArgf("range of %d hours exceeds limit %d", n, s.Cfg.MaxRangeHours), "end")
	}
	if s.Fetch == nil {
		return nil, perr.Internalf("finder: no fetcher configured")
	}

	log := named(ctx)
	start := time.Now()
	var stats domain.RunStats
	var acc []appimage.Release

	hours := gharchive.Hours(scan.Window)
	for i, hr := range hours {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fs, rs, err := s.scanHour(ctx, scan, hr)
		if err != nil {
			if s.Cfg.SkipMissing && perr.IsCode(err, perr.ErrorCodeNotFound) {
				stats.Missing++
				log.Warn().Str("hour", hr.String()).Msg("finder: hour not archived, skipping")
				continue
			}
			return nil, err
		}
		stats.Add(fs)
		acc = append(acc, rs...)

		if s.Cfg.DelayPerHour > 0 && i < len(hours)-1 {
			if err := s.sleep(ctx, s.Cfg.DelayPerHour); err != nil {
				return nil, err
			}
		}
	}

	return s.finish(ctx, stats, start, acc), nil
}

// RunFiles scans caller supplied streams in order and returns the
// deduplicated entries. RunFiles takes ownership of every Body
func (s *Service) RunFiles(ctx context.Context, scan domain.Scan, files []domain.Source) (out []appimage.Release, retErr error) {
	scan = s.normalize(scan)
	next := 0
	defer func() {
		// close whatever an early return left unread
		for _, f := range files[next:] {
			if f.Body != nil {
				_ = f.Body.Close()
			}
		}
	}()

	start := time.Now()
	var stats domain.RunStats
	var acc []appimage.Release
	for next < len(files) {
		f := files[next]
		next++
		if f.Body == nil {
			return nil, perr.WithField(perr.InvalidArgf("finder: %s: no stream", f.Name), "files")
		}
		if err := ctx.Err(); err != nil {
			_ = f.Body.Close()
			return nil, err
		}
		fs, rs, err := s.scanFile(ctx, scan, f.Name, f.Body)
		if err != nil {
			return nil, err
		}
		stats.Add(fs)
		acc = append(acc, rs...)
	}
	return s.finish(ctx, stats, start, acc), nil
}

// scanHour fetches and scans one hour inside the per file budget
func (s *Service) scanHour(ctx context.Context, scan domain.Scan, hr domain.HourRef) (domain.FileStats, []appimage.Release, error) {
	fctx, cancel := guardrails.WithFile(ctx, guardrails.Timeouts{File: s.Cfg.FileTimeout})
	defer cancel()

	rc, err := s.fetchWithRetry(fctx, hr)
	if err != nil {
		return domain.FileStats{Name: hr.FileName()}, nil, fileErr(hr.FileName(), err)
	}
	return s.scanFile(fctx, scan, hr.FileName(), rc)
}

func (s *Service) normalize(scan domain.Scan) domain.Scan {
	if scan.Mode == "" {
		scan.Mode = s.Cfg.Mode
	}
	return scan
}

func (s *Service) finish(ctx context.Context, stats domain.RunStats, start time.Time, acc []appimage.Release) []appimage.Release {
	out := appimage.KeepLatest(acc)
	stats.Kept = len(out)
	stats.Elapsed = time.Since(start)
	named(ctx).Info().
		Int("files", stats.Files).
		Int("missing", stats.Missing).
		Int("events", stats.Events).
		Int("releases", stats.Releases).
		Int("accepted", stats.Accepted).
		Int("kept", stats.Kept).
		Int("skipped", stats.Skipped.Total()).
		Int("bad_time", stats.Skipped.BadTime).
		Int("mismatch", stats.Mismatch).
		Dur("elapsed", stats.Elapsed).
		Msg("finder: scan done")
	return out
}

// scanFile streams one dump and classifies its release events. rc is closed
func (s *Service) scanFile(ctx context.Context, scan domain.Scan, name string, rc io.ReadCloser) (fs domain.FileStats, out []appimage.Release, retErr error) {
	tos := guardrails.Timeouts{Read: s.Cfg.ReadTimeout}
	t0 := time.Now()
	fs.Name = name

	rd, err := s.Reader.New(rc, name)
	if err != nil {
		return fs, nil, fileErr(name, err)
	}
	defer func() {
		if cerr := rd.Close(); cerr != nil && retErr == nil {
			retErr = fileErr(name, perr.Wrap(cerr, perr.ErrorCodeIO, "close"))
		}
	}()

	readCtx, cancel := guardrails.ForRead(ctx, tos)
	defer cancel()

	stream := extract.NewReleaseStream(ctxEnvelopes{ctx: readCtx, r: rd}, scan.Window)
	for {
		ev, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fs, nil, fileErr(name, err)
		}
		out = append(out, appimage.Classify(ev.Release, ev.Assets, scan.IncludeChecksums, scan.Mode)...)
	}

	fs.Events, fs.Bytes = rd.Stats()
	fs.Releases = stream.Yielded()
	fs.Accepted = len(out)
	fs.Skipped = stream.Skipped()
	fs.Mismatch = rd.Mismatched()
	fs.ReadMS = int(time.Since(t0).Milliseconds())
	fs.ElapsedMS = fs.ReadMS

	named(ctx).Info().
		Str("hour", name).
		Int("events", fs.Events).
		Int("releases", fs.Releases).
		Int("accepted", fs.Accepted).
		Int("skipped", fs.Skipped.Total()).
		Int("out_of_range", fs.Skipped.OutOfRange).
		Int("bad_time", fs.Skipped.BadTime).
		Int("mismatch", fs.Mismatch).
		Int("elapsed_ms", fs.ElapsedMS).
		Msg("finder: file scanned")
	return fs, out, nil
}

// fetchWithRetry retries only retryable fetch failures, with exponential
// backoff and jitter capped at 30s. The returned body keeps its fetch context
// alive until closed
func (s *Service) fetchWithRetry(ctx context.Context, hr domain.HourRef) (io.ReadCloser, error) {
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	tos := guardrails.Timeouts{Fetch: s.Cfg.FetchTimeout}

	var last error
	for i := range attempts {
		fctx, cancel := guardrails.ForFetch(ctx, tos)
		rc, err := s.Fetch.Fetch(fctx, hr)
		if err == nil {
			return cancelOnClose{ReadCloser: rc, cancel: cancel}, nil
		}
		cancel()
		last = err

		if !perr.Retryable(err) {
			return nil, last
		}
		if i == attempts-1 {
			break
		}

		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		named(ctx).Warn().Err(err).Str("hour", hr.String()).Int("attempt", i+1).Dur("backoff", j).Msg("finder: fetch failed, retrying")
		if se := s.sleep(ctx, j); se != nil {
			return nil, se
		}
	}
	return nil, last
}

// ctxEnvelopes stops the stream once ctx is done
type ctxEnvelopes struct {
	ctx context.Context
	r   domain.ReaderPort
}

func (c ctxEnvelopes) Next() (domain.EventEnvelope, error) {
	if err := c.ctx.Err(); err != nil {
		return domain.EventEnvelope{}, err
	}
	return c.r.Next()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// fileErr makes sure err names the file it came from
func fileErr(name string, err error) error {
	if !strings.Contains(err.Error(), name) {
		err = perr.Wrapf(err, perr.CodeOf(err), "finder: %s", name)
	}
	return perr.WithOp(err, "finder.scan")
}

func named(ctx context.Context) *logger.Logger {
	l := logger.C(ctx).With().Str("component", "finder").Logger()
	return &l
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
