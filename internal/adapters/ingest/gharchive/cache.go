package gharchive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	perr "appimagefinder/internal/platform/errors"
	"appimagefinder/internal/platform/logger"
)

// DefaultCacheDir is where hour files land when no directory is configured
const DefaultCacheDir = "gharchive_tmp"

// CachedFetcher fetches GH Archive hours with on disk caching
// Local dir holds one .json.gz per hour plus a .meta sidecar
// An hour already on disk is served without a request, except recent hours which
// are revalidated with ETag and Last Modified
// Optional retention by max age and total bytes
type CachedFetcher struct {
	dir             string
	http            *HTTPFetcher
	refreshRecent   time.Duration
	retainMaxAge    time.Duration
	retainMaxBytes  int64
	now             func() time.Time
	lastCleanupUnix atomic.Int64
	hits            atomic.Int64
	misses          atomic.Int64
}

// cacheMeta is a tiny sidecar json with fields we actually use
type cacheMeta struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	LastChecked  time.Time `json:"last_checked"`
}

// CachedOption configures the fetcher
type CachedOption func(*CachedFetcher)

// WithRefreshRecent enables conditional GET for hours within d of now
func WithRefreshRecent(d time.Duration) CachedOption {
	return func(c *CachedFetcher) { c.refreshRecent = d }
}

// WithRetention sets optional age and size retention
// Pass zero to disable either dimension
func WithRetention(maxAge time.Duration, maxBytes int64) CachedOption {
	return func(c *CachedFetcher) {
		c.retainMaxAge = maxAge
		c.retainMaxBytes = maxBytes
	}
}

// NewCachedFetcher builds a fetcher caching under dir (DefaultCacheDir when empty)
// base may be nil, in which case requests go to DefaultBaseURL
func NewCachedFetcher(dir string, base *HTTPFetcher, opts ...CachedOption) (*CachedFetcher, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultCacheDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "gharchive: create cache dir %s", dir)
	}
	if base == nil {
		base = &HTTPFetcher{BaseURL: DefaultBaseURL}
	}
	c := &CachedFetcher{dir: dir, http: base, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Dir returns the cache directory
func (c *CachedFetcher) Dir() string { return c.dir }

// Stats returns cache hits and misses since construction
func (c *CachedFetcher) Stats() (hits, misses int64) { return c.hits.Load(), c.misses.Load() }

// Fetch returns a reader for the gzip file for the given hour
// Serves from disk when present and may revalidate recent hours
func (c *CachedFetcher) Fetch(ctx context.Context, hour HourRef) (io.ReadCloser, error) {
	path := filepath.Join(c.dir, hour.FileName())
	metaPath := path + ".meta"

	// file exists path
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		c.hits.Add(1)
		if c.shouldRevalidate(hour) {
			rc, err := c.tryConditionalFetch(ctx, hour, path, metaPath)
			if err == nil {
				c.maybeCleanup()
				return rc, nil
			}
			// fall back to the local copy
			logger.Named("gharchive").Debug().Err(err).Str("hour", hour.String()).Msg("gharchive: revalidate failed; using cached file")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeIO, "gharchive: open cached %s", path)
		}
		c.maybeCleanup()
		return f, nil
	}

	// cache miss path
	c.misses.Add(1)
	return c.downloadAndStore(ctx, hour, path, metaPath)
}

func (c *CachedFetcher) shouldRevalidate(hour HourRef) bool {
	if c.refreshRecent <= 0 {
		return false
	}
	return c.now().Sub(hour.Time()) <= c.refreshRecent
}

// tryConditionalFetch issues a GET with If None Match and If Modified Since when available.
// Returns a reader from cache on 304 or a fresh reader after writing cache on 200
func (c *CachedFetcher) tryConditionalFetch(ctx context.Context, hour HourRef, path, metaPath string) (io.ReadCloser, error) {
	meta, _ := loadMeta(metaPath)

	hdr := http.Header{}
	if meta != nil {
		if meta.ETag != "" {
			hdr.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			hdr.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.http.get(ctx, hour, hdr)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		_ = resp.Body.Close()
		if meta == nil {
			meta = &cacheMeta{}
		}
		meta.LastChecked = c.now().UTC()
		_ = saveMeta(metaPath, meta)
		f, err := os.Open(path)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeIO, "gharchive: open cached %s", path)
		}
		return f, nil

	case http.StatusOK:
		// overwrite cache with new bytes
		return c.writeResponseToCache(resp, path, metaPath)

	default:
		_ = resp.Body.Close()
		return nil, statusError(resp.StatusCode, c.http.URL(hour))
	}
}

func (c *CachedFetcher) downloadAndStore(ctx context.Context, hour HourRef, path, metaPath string) (io.ReadCloser, error) {
	resp, err := c.http.get(ctx, hour, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, statusError(resp.StatusCode, c.http.URL(hour))
	}
	rc, err := c.writeResponseToCache(resp, path, metaPath)
	if err != nil {
		return nil, err
	}
	c.maybeCleanup()
	return rc, nil
}

// writeResponseToCache saves body atomically and writes meta then returns a reader
// A partial download never replaces an existing file
func (c *CachedFetcher) writeResponseToCache(resp *http.Response, path, metaPath string) (io.ReadCloser, error) {
	defer func() { _ = resp.Body.Close() }()

	tmp := path + ".part"
	defer func() { _ = os.Remove(tmp) }()

	out, err := os.Create(tmp)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "gharchive: create %s", tmp)
	}
	n, werr := io.Copy(out, resp.Body)
	cerr := out.Close()
	if werr != nil {
		// the body broke mid-stream, worth another attempt
		return nil, perr.Wrapf(werr, perr.ErrorCodeUnavailable, "gharchive: download %s", filepath.Base(path))
	}
	if cerr != nil {
		return nil, perr.Wrapf(cerr, perr.ErrorCodeIO, "gharchive: close %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "gharchive: rename %s", tmp)
	}

	now := c.now().UTC()
	meta := &cacheMeta{
		ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
		LastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
		Size:         n,
		FetchedAt:    now,
		LastChecked:  now,
	}
	if err := saveMeta(metaPath, meta); err != nil {
		logger.Named("gharchive").Warn().Err(err).Str("path", metaPath).Msg("gharchive: write meta failed")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "gharchive: open %s", path)
	}
	return f, nil
}

// loadMeta reads a sidecar json file
func loadMeta(path string) (*cacheMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m cacheMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// saveMeta writes the sidecar json atomically
func saveMeta(path string, m *cacheMeta) error {
	tmp := path + ".part"
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// maybeCleanup throttles retention cleanup to once per ten minutes
func (c *CachedFetcher) maybeCleanup() {
	if c.retainMaxAge <= 0 && c.retainMaxBytes <= 0 {
		return
	}
	now := c.now().Unix()
	last := c.lastCleanupUnix.Load()
	if last != 0 && now-last < 600 {
		return
	}
	if !c.lastCleanupUnix.CompareAndSwap(last, now) {
		return
	}
	if removed, err := c.cleanupOnce(); err != nil {
		logger.Named("gharchive").Warn().Err(err).Str("dir", c.dir).Msg("gharchive: cache cleanup failed")
	} else if removed > 0 {
		logger.Named("gharchive").Info().Int("removed", removed).Str("dir", c.dir).Msg("gharchive: cache cleanup")
	}
}

// cleanupOnce applies age and size retention, returning how many hour files it removed
func (c *CachedFetcher) cleanupOnce() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	type item struct {
		Path   string
		Size   int64
		HourTS time.Time
	}
	var (
		items   []item
		total   int64
		removed int
	)
	cutoff := c.now().Add(-c.retainMaxAge)

	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json.gz") {
			continue
		}
		full := filepath.Join(c.dir, name)
		fi, err := os.Stat(full)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		hr, ok := parseHourFromName(name)
		if !ok {
			continue
		}
		if c.retainMaxAge > 0 && hr.Before(cutoff) {
			_ = os.Remove(full)
			_ = os.Remove(full + ".meta")
			removed++
			continue
		}
		items = append(items, item{Path: full, Size: fi.Size(), HourTS: hr})
		total += fi.Size()
	}

	if c.retainMaxBytes > 0 && total > c.retainMaxBytes {
		// oldest hours go first
		sort.Slice(items, func(i, j int) bool { return items[i].HourTS.Before(items[j].HourTS) })
		for _, it := range items {
			if total <= c.retainMaxBytes {
				break
			}
			_ = os.Remove(it.Path)
			_ = os.Remove(it.Path + ".meta")
			total -= it.Size
			removed++
		}
	}
	return removed, nil
}
