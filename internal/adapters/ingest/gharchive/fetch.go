package gharchive

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	perr "appimagefinder/internal/platform/errors"
)

// DefaultBaseURL is the public GH Archive host
const DefaultBaseURL = "https://data.gharchive.org"

// Fetcher fetches a reader for a given hour
type Fetcher interface {
	Fetch(ctx context.Context, hour HourRef) (io.ReadCloser, error)
}

// HTTPFetcher fetches directly from gharchive.org
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string // defaults to DefaultBaseURL
}

// NewHTTPFetcherWithTimeout creates a new HTTPFetcher with default settings
func NewHTTPFetcherWithTimeout(d time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: d}, BaseURL: DefaultBaseURL}
}

// URL returns the download location of the hour
func (f *HTTPFetcher) URL(hour HourRef) string {
	base := DefaultBaseURL
	if f != nil && f.BaseURL != "" {
		base = strings.TrimRight(f.BaseURL, "/")
	}
	return base + "/" + hour.FileName()
}

func (f *HTTPFetcher) client() *http.Client {
	if f != nil && f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// Fetch returns a reader for the gzip file for the given hour
func (f *HTTPFetcher) Fetch(ctx context.Context, hour HourRef) (io.ReadCloser, error) {
	resp, err := f.get(ctx, hour, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, statusError(resp.StatusCode, f.URL(hour))
	}
	return resp.Body, nil
}

// get issues the request with optional extra headers; transport failures are
// reported as Unavailable so callers may retry
func (f *HTTPFetcher) get(ctx context.Context, hour HourRef, hdr http.Header) (*http.Response, error) {
	url := f.URL(hour)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "gharchive: build request for %s", url)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := f.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnavailable, "gharchive: GET %s", url), "gharchive.fetch")
	}
	return resp, nil
}

// statusError maps an upstream status onto our error codes
func statusError(status int, url string) error {
	code := perr.ErrorCodeUnknown
	switch {
	case status == http.StatusNotFound:
		code = perr.ErrorCodeNotFound
	case status == http.StatusTooManyRequests:
		code = perr.ErrorCodeTooManyRequests
	case status >= 500:
		code = perr.ErrorCodeUnavailable
	}
	return perr.WithOp(perr.Newf(code, "gharchive: unexpected status %d for %s", status, url), "gharchive.fetch")
}
