package gharchive

import (
	"time"

	"appimagefinder/internal/platform/config"
	perr "appimagefinder/internal/platform/errors"
)

// Source kinds
const (
	SourceHTTP = "http"
	SourceS3   = "s3"
)

// SourceOptions selects and configures the hour fetcher
type SourceOptions struct {
	Kind           string
	BaseURL        string
	CacheDir       string
	NoCache        bool
	HTTPTimeout    time.Duration
	RefreshRecent  time.Duration
	RetainMaxAge   time.Duration
	RetainMaxBytes int64
	S3             S3Config
}

// SourceFromConfig reads CORE_INGEST_* style keys from cfg
func SourceFromConfig(cfg config.Conf) SourceOptions {
	return SourceOptions{
		Kind:           cfg.MayEnum("SOURCE", SourceHTTP, SourceHTTP, SourceS3),
		BaseURL:        cfg.MayString("BASE_URL", DefaultBaseURL),
		CacheDir:       cfg.MayString("CACHE_DIR", DefaultCacheDir),
		NoCache:        cfg.MayBool("NO_CACHE", false),
		HTTPTimeout:    time.Duration(cfg.MayInt("HTTP_TIMEOUT_SECONDS", 0)) * time.Second,
		RefreshRecent:  time.Duration(cfg.MayInt("REFRESH_RECENT_HOURS", 0)) * time.Hour,
		RetainMaxAge:   time.Duration(cfg.MayInt("RETAIN_MAX_DAYS", 0)) * 24 * time.Hour,
		RetainMaxBytes: cfg.MayInt64("RETAIN_MAX_BYTES", 0),
		S3: S3Config{
			Endpoint:  cfg.MayString("S3_ENDPOINT", ""),
			Region:    cfg.MayString("S3_REGION", "us-east-1"),
			AccessKey: cfg.MayString("S3_ACCESS_KEY", ""),
			SecretKey: cfg.MayString("S3_SECRET_KEY", ""),
			Bucket:    cfg.MayString("S3_BUCKET", ""),
			Prefix:    cfg.MayString("S3_PREFIX", ""),
			UseSSL:    cfg.MayBool("S3_USE_SSL", true),
		},
	}
}

// NewSource builds the fetcher named by opts.Kind
func NewSource(opts SourceOptions) (Fetcher, error) {
	switch opts.Kind {
	case SourceS3:
		s, err := NewS3Fetcher(opts.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case SourceHTTP, "":
		h := NewHTTPFetcherWithTimeout(opts.HTTPTimeout)
		if opts.BaseURL != "" {
			h.BaseURL = opts.BaseURL
		}
		if opts.NoCache {
			return h, nil
		}
		c, err := NewCachedFetcher(opts.CacheDir, h,
			WithRefreshRecent(opts.RefreshRecent),
			WithRetention(opts.RetainMaxAge, opts.RetainMaxBytes),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown ingest source %q", opts.Kind), "SOURCE")
	}
}
