package ingest

import (
	"bytes"
	"context"
	"io"
	"testing"

	"appimagefinder/internal/adapters/ingest/gharchive"
	"appimagefinder/internal/modkit"
	"appimagefinder/internal/platform/config"
	perr "appimagefinder/internal/platform/errors"
	kit "appimagefinder/internal/platform/testkit"
)

type stubFetcher struct {
	got gharchive.HourRef
}

func (s *stubFetcher) Fetch(_ context.Context, hr gharchive.HourRef) (io.ReadCloser, error) {
	s.got = hr
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func TestWrapFetcher_Delegates(t *testing.T) {
	sf := &stubFetcher{}
	f := WrapFetcher(sf)
	hr := gharchive.HourRef{Year: 2024, Month: 1, Day: 2, Hour: 3}
	rc, err := f.Fetch(context.Background(), hr)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	_ = rc.Close()
	if sf.got != hr {
		t.Fatalf("hour = %+v, want %+v", sf.got, hr)
	}
}

func TestNewFetcher_FromConfig(t *testing.T) {
	t.Setenv("CORE_INGEST_CACHE_DIR", t.TempDir())
	if _, err := NewFetcher(modkit.Deps{Cfg: config.New()}); err != nil {
		t.Fatalf("NewFetcher http: %v", err)
	}

	t.Setenv("CORE_INGEST_SOURCE", "s3")
	_, err := NewFetcher(modkit.Deps{Cfg: config.New()})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("s3 without bucket should fail validation, got %v", err)
	}
}

func TestReaderFactory_NamesSource(t *testing.T) {
	data := kit.GzipLines(t, `{"id":"1","type":"PushEvent","repo":{"name":"a/b"},"created_at":"2024-01-02T03:00:00Z"}`)
	rp, err := NewReaderFactory().New(io.NopCloser(bytes.NewReader(data)), "2024-01-02-3.json.gz")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = rp.Close() }()

	ev, err := rp.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Type != "PushEvent" || ev.Repo.Name != "a/b" {
		t.Fatalf("unexpected envelope %+v", ev)
	}
	if _, err := rp.Next(); err != io.EOF {
		t.Fatalf("want io.EOF, got %v", err)
	}
	if n, _ := rp.Stats(); n != 1 {
		t.Fatalf("events = %d", n)
	}
}

func TestReaderFactory_BadGzip(t *testing.T) {
	_, err := NewReaderFactory().New(io.NopCloser(bytes.NewReader([]byte("not gzip"))), "x.json.gz")
	if !perr.IsCode(err, perr.ErrorCodeDecode) {
		t.Fatalf("want decode error, got %v", err)
	}
}
