package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"appimagefinder/internal/core/appimage"
	"appimagefinder/internal/core/timerange"
	perr "appimagefinder/internal/platform/errors"
	kit "appimagefinder/internal/platform/testkit"
	"appimagefinder/internal/services/finder/domain"
	"appimagefinder/internal/services/finder/ingest"
)

var day = timerange.Window{
	Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC),
}

// rel builds one ReleaseEvent line
func rel(created, repo, name, tag, published string, assets ...string) string {
	type asset struct {
		Name string `json:"name"`
		URL  string `json:"browser_download_url"`
	}
	as := make([]asset, 0, len(assets))
	for _, a := range assets {
		as = append(as, asset{Name: a, URL: "https://dl/" + a})
	}
	b, _ := json.Marshal(map[string]any{
		"id":         "1",
		"type":       "ReleaseEvent",
		"created_at": created,
		"repo":       map[string]any{"name": repo},
		"payload": map[string]any{"release": map[string]any{
			"name": name, "tag_name": tag, "published_at": published, "assets": as,
		}},
	})
	return string(b)
}

type fakeFetcher struct {
	files map[string][]byte
	errs  map[string][]error
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, hr domain.HourRef) (io.ReadCloser, error) {
	key := hr.String()
	f.calls = append(f.calls, key)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q := f.errs[key]; len(q) > 0 {
		f.errs[key] = q[1:]
		return nil, q[0]
	}
	b, ok := f.files[key]
	if !ok {
		return nil, perr.NotFoundf("gharchive: %s not found", hr.FileName())
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type trackCloser struct {
	io.Reader
	closed bool
}

func (c *trackCloser) Close() error { c.closed = true; return nil }

func newSvc(f domain.Fetcher, cfg Config) (*Service, *[]time.Duration) {
	s := New(f, ingest.NewReaderFactory(), cfg)
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return s, &slept
}

func source(t *testing.T, name string, lines ...string) domain.Source {
	t.Helper()
	return domain.Source{Name: name, Body: io.NopCloser(bytes.NewReader(kit.GzipLines(t, lines...)))}
}

func byKey(rs []appimage.Release) map[appimage.Key]appimage.Release {
	out := make(map[appimage.Key]appimage.Release, len(rs))
	for _, r := range rs {
		out[appimage.KeyOf(r)] = r
	}
	return out
}

func TestRunFiles_DedupAcrossFiles(t *testing.T) {
	s, _ := newSvc(nil, Config{})
	files := []domain.Source{
		source(t, "2024-01-01-1.json.gz",
			rel("2024-01-01T01:00:00Z", "Owner/App", "App 1.2", "v1.2.0", "2024-01-01T00:59:00Z",
				"App-1.2.0-x86_64.AppImage", "App-1.2.0-aarch64.AppImage"),
			`{"type":"PushEvent","created_at":"2024-01-01T01:00:01Z","repo":{"name":"o/p"}}`,
		),
		source(t, "2024-01-01-2.json.gz",
			rel("2024-01-01T02:00:00Z", "Owner/App", "App 1.3", "v1.3.0", "2024-01-01T01:59:00Z",
				"App-1.3.0-x86_64.AppImage"),
			rel("2024-01-01T02:10:00Z", "Roll/Nightly", "Nightly build", "nightly", "2024-01-01T02:09:00Z",
				"n-x86_64.AppImage"),
		),
	}

	got, err := s.RunFiles(context.Background(), domain.Scan{Window: day, Mode: appimage.ModeAll}, files)
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d (%+v)", len(got), got)
	}
	m := byKey(got)
	x := m[appimage.Key{Repo: "Owner/App", Architecture: appimage.ArchX86_64}]
	if x.AssetName != "App-1.3.0-x86_64.AppImage" || x.Version != "1.3.0.0" {
		t.Fatalf("x86_64 entry = %+v", x)
	}
	a := m[appimage.Key{Repo: "Owner/App", Architecture: appimage.ArchAarch64}]
	if a.AssetName != "App-1.2.0-aarch64.AppImage" || a.PackageName != "io.github.owner.app" {
		t.Fatalf("aarch64 entry = %+v", a)
	}
}

func TestRunFiles_ModeAndChecksums(t *testing.T) {
	s, _ := newSvc(nil, Config{})
	line := rel("2024-01-01T03:00:00Z", "o/tool", "Tool", "2.0.1", "2024-01-01T03:00:00Z",
		"tool.AppImage", "tool-arm64.AppImage", "tool.AppImage.sha256sum", "tool.tar.gz")

	got, err := s.RunFiles(context.Background(),
		domain.Scan{Window: day, Mode: appimage.ModeAarch64, IncludeChecksums: true},
		[]domain.Source{source(t, "f.json.gz", line)})
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	// the checksum pairs with tool.AppImage even though that binary is filtered out
	m := byKey(got)
	if len(got) != 2 {
		t.Fatalf("aarch64 mode = %+v", got)
	}
	if r := m[appimage.Key{Repo: "o/tool", Architecture: appimage.ArchAarch64}]; r.AssetName != "tool-arm64.AppImage" || r.Version != "2.0.1.0" {
		t.Fatalf("binary entry = %+v", r)
	}
	if r := m[appimage.Key{Repo: "o/tool", Architecture: appimage.ArchUnknown}]; r.AssetName != "tool.AppImage.sha256sum" {
		t.Fatalf("checksum entry = %+v", r)
	}
}

func TestRunFiles_Empty(t *testing.T) {
	s, _ := newSvc(nil, Config{})
	got, err := s.RunFiles(context.Background(), s.DefaultScan(day), nil)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty input = %v, %v", got, err)
	}
}

func TestRunFiles_DecodeErrorAbortsAndNamesFile(t *testing.T) {
	s, _ := newSvc(nil, Config{})
	rest := &trackCloser{Reader: strings.NewReader("")}
	files := []domain.Source{
		source(t, "good.json.gz", rel("2024-01-01T01:00:00Z", "o/a", "A", "1.0.0", "2024-01-01T01:00:00Z", "a.AppImage")),
		source(t, "broken.json.gz", `{"type":"ReleaseEvent"`),
		{Name: "never.json.gz", Body: rest},
	}
	got, err := s.RunFiles(context.Background(), s.DefaultScan(day), files)
	if err == nil || got != nil {
		t.Fatalf("expected abort, got %v, %v", got, err)
	}
	if !perr.IsCode(err, perr.ErrorCodeDecode) {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
	kit.MustContain(t, err.Error(), "broken.json.gz")
	if !rest.closed {
		t.Fatalf("unread body should be closed on abort")
	}
}

func TestRunFiles_NilBody(t *testing.T) {
	s, _ := newSvc(nil, Config{})
	_, err := s.RunFiles(context.Background(), s.DefaultScan(day), []domain.Source{{Name: "x"}})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestRunRange_FetchesEveryHourAndPaces(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{
		"2024-01-01-0": kit.GzipLines(t),
		"2024-01-01-1": kit.GzipLines(t, rel("2024-01-01T01:30:00Z", "o/a", "A", "1.0.0", "2024-01-01T01:30:00Z", "a-x86_64.AppImage")),
		"2024-01-01-2": kit.GzipLines(t),
	}}
	s, slept := newSvc(f, Config{DelayPerHour: 200 * time.Millisecond})
	w := timerange.Window{Start: day.Start, End: day.Start.Add(2 * time.Hour)}

	got, err := s.RunRange(context.Background(), s.DefaultScan(w))
	if err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	if len(got) != 1 || got[0].Repo != "o/a" {
		t.Fatalf("got %+v", got)
	}
	if strings.Join(f.calls, ",") != "2024-01-01-0,2024-01-01-1,2024-01-01-2" {
		t.Fatalf("calls = %v", f.calls)
	}
	if len(*slept) != 2 {
		t.Fatalf("pacing sleeps = %v, want 2", *slept)
	}
}

func TestRunRange_RetriesRetryable(t *testing.T) {
	f := &fakeFetcher{
		files: map[string][]byte{"2024-01-01-0": kit.GzipLines(t)},
		errs: map[string][]error{"2024-01-01-0": {
			perr.Unavailablef("HTTP 503"),
			perr.New(perr.ErrorCodeTooManyRequests, "HTTP 429"),
		}},
	}
	s, slept := newSvc(f, Config{MaxRetries: 3, RetryBase: 10 * time.Millisecond})
	w := timerange.Window{Start: day.Start, End: day.Start}

	if _, err := s.RunRange(context.Background(), s.DefaultScan(w)); err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(f.calls))
	}
	if len(*slept) != 2 {
		t.Fatalf("backoff sleeps = %d, want 2", len(*slept))
	}
	for i, d := range *slept {
		hi := 10 * time.Millisecond << i
		if d < hi/2 || d > hi {
			t.Fatalf("backoff[%d] = %v, want within [%v, %v]", i, d, hi/2, hi)
		}
	}
}

func TestRunRange_GivesUpAfterRetries(t *testing.T) {
	f := &fakeFetcher{errs: map[string][]error{"2024-01-01-0": {
		perr.Unavailablef("a"), perr.Unavailablef("b"),
	}}}
	s, _ := newSvc(f, Config{MaxRetries: 2, RetryBase: time.Millisecond})
	_, err := s.RunRange(context.Background(), s.DefaultScan(timerange.Window{Start: day.Start, End: day.Start}))
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
	kit.MustContain(t, err.Error(), "2024-01-01-0.json.gz")
}

func TestRunRange_NotFound(t *testing.T) {
	w := timerange.Window{Start: day.Start, End: day.Start.Add(time.Hour)}

	t.Run("aborts", func(t *testing.T) {
		f := &fakeFetcher{files: map[string][]byte{"2024-01-01-1": kit.GzipLines(t)}}
		s, _ := newSvc(f, Config{MaxRetries: 3})
		_, err := s.RunRange(context.Background(), s.DefaultScan(w))
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("want not found, got %v", err)
		}
		if len(f.calls) != 1 {
			t.Fatalf("not found must not be retried, calls = %v", f.calls)
		}
	})

	t.Run("skip missing", func(t *testing.T) {
		f := &fakeFetcher{files: map[string][]byte{"2024-01-01-1": kit.GzipLines(t)}}
		s, _ := newSvc(f, Config{SkipMissing: true})
		got, err := s.RunRange(context.Background(), s.DefaultScan(w))
		if err != nil || got == nil {
			t.Fatalf("skip missing = %v, %v", got, err)
		}
	})
}

type stallFetcher struct{}

func (stallFetcher) Fetch(ctx context.Context, _ domain.HourRef) (io.ReadCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunRange_FileBudget(t *testing.T) {
	s, _ := newSvc(stallFetcher{}, Config{FileTimeout: 20 * time.Millisecond, MaxRetries: 3})
	w := timerange.Window{Start: day.Start, End: day.Start}

	_, err := s.RunRange(context.Background(), s.DefaultScan(w))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	kit.MustContain(t, err.Error(), "2024-01-01-0.json.gz")
}

func TestRunRange_FileBudgetCoversScan(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{
		"2024-01-01-0": kit.GzipLines(t, rel("2024-01-01T00:00:00Z", "o/a", "A", "1.0.0", "2024-01-01T00:00:00Z", "a-x86_64.AppImage")),
	}}
	s, _ := newSvc(f, Config{FileTimeout: time.Minute})
	got, err := s.RunRange(context.Background(), s.DefaultScan(timerange.Window{Start: day.Start, End: day.Start}))
	if err != nil || len(got) != 1 {
		t.Fatalf("RunRange = %v, %v", got, err)
	}
}

func TestRunRange_Guards(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := newSvc(f, Config{MaxRangeHours: 24})

	week := timerange.Window{Start: day.Start, End: day.Start.Add(7 * 24 * time.Hour)}
	_, err := s.RunRange(context.Background(), s.DefaultScan(week))
	if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeInvalidArgument || e.Field() != "end" {
		t.Fatalf("want invalid end, got %v", err)
	}

	reversed := timerange.Window{Start: day.End, End: day.Start}
	got, err := s.RunRange(context.Background(), s.DefaultScan(reversed))
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("reversed window = %v, %v", got, err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("no fetches expected, got %v", f.calls)
	}

	noFetch, _ := newSvc(nil, Config{})
	if _, err := noFetch.RunRange(context.Background(), noFetch.DefaultScan(day)); err == nil {
		t.Fatalf("missing fetcher should fail")
	}
}

func TestRunRange_Canceled(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{"2024-01-01-0": kit.GzipLines(t)}}
	s, _ := newSvc(f, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.RunRange(ctx, s.DefaultScan(day))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestNew_RequiresReaderFactory(t *testing.T) {
	kit.MustPanic(t, func() { _ = New(nil, nil, Config{}) })
	s := New(nil, ingest.NewReaderFactory(), Config{})
	if s.Cfg.Mode != appimage.ModeAll {
		t.Fatalf("default mode = %q", s.Cfg.Mode)
	}
}

func TestSleepCtx(t *testing.T) {
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled sleep: %v", err)
	}
}
