package gharchive

import (
	"testing"

	"appimagefinder/internal/platform/config"
	perr "appimagefinder/internal/platform/errors"
	kit "appimagefinder/internal/platform/testkit"

	"github.com/minio/minio-go/v7"
)

func TestSourceFromConfig_Defaults(t *testing.T) {
	opts := SourceFromConfig(config.New().Prefix("TEST_INGEST_"))
	if opts.Kind != SourceHTTP || opts.CacheDir != DefaultCacheDir || opts.BaseURL != DefaultBaseURL {
		t.Fatalf("defaults = %+v", opts)
	}
	if opts.S3.Region != "us-east-1" || !opts.S3.UseSSL {
		t.Fatalf("s3 defaults = %+v", opts.S3)
	}
}

func TestSourceFromConfig_Env(t *testing.T) {
	t.Setenv("TEST_INGEST_SOURCE", "S3")
	t.Setenv("TEST_INGEST_REFRESH_RECENT_HOURS", "6")
	t.Setenv("TEST_INGEST_RETAIN_MAX_DAYS", "2")
	t.Setenv("TEST_INGEST_S3_BUCKET", "mirror")
	opts := SourceFromConfig(config.New().Prefix("TEST_INGEST_"))
	if opts.Kind != SourceS3 || opts.S3.Bucket != "mirror" {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.RefreshRecent.Hours() != 6 || opts.RetainMaxAge.Hours() != 48 {
		t.Fatalf("durations = %v %v", opts.RefreshRecent, opts.RetainMaxAge)
	}

	t.Setenv("TEST_INGEST_SOURCE", "ftp")
	kit.MustPanic(t, func() { _ = SourceFromConfig(config.New().Prefix("TEST_INGEST_")) })
}

func TestNewSource(t *testing.T) {
	f, err := NewSource(SourceOptions{Kind: SourceHTTP, CacheDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewSource http: %v", err)
	}
	if _, ok := f.(*CachedFetcher); !ok {
		t.Fatalf("http source should be cached, got %T", f)
	}

	f, err = NewSource(SourceOptions{Kind: SourceHTTP, NoCache: true})
	if err != nil {
		t.Fatalf("NewSource nocache: %v", err)
	}
	if _, ok := f.(*HTTPFetcher); !ok {
		t.Fatalf("got %T", f)
	}

	if _, err := NewSource(SourceOptions{Kind: SourceS3}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("s3 without endpoint should fail validation, got %v", err)
	}
	f, err = NewSource(SourceOptions{Kind: SourceS3, S3: S3Config{
		Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "gh", Prefix: "/hours/",
	}})
	if err != nil {
		t.Fatalf("NewSource s3: %v", err)
	}
	s3f, ok := f.(*S3Fetcher)
	if !ok || s3f.Key(testHour) != "hours/2024-01-02-3.json.gz" {
		t.Fatalf("got %T key=%v", f, s3f)
	}

	if _, err := NewSource(SourceOptions{Kind: "ftp"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown kind err = %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	if got := objectKey("", testHour); got != "2024-01-02-3.json.gz" {
		t.Fatalf("got %q", got)
	}
	if got := objectKey("a/b", testHour); got != "a/b/2024-01-02-3.json.gz" {
		t.Fatalf("got %q", got)
	}
}

func TestS3ErrorMapping(t *testing.T) {
	tests := []struct {
		resp minio.ErrorResponse
		want perr.ErrorCode
	}{
		{minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, perr.ErrorCodeNotFound},
		{minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, perr.ErrorCodeTooManyRequests},
		{minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, perr.ErrorCodeInvalidArgument},
		{minio.ErrorResponse{Code: "InternalError", StatusCode: 500}, perr.ErrorCodeUnavailable},
	}
	for _, tt := range tests {
		if got := perr.CodeOf(s3Error(tt.resp, "b", "k")); got != tt.want {
			t.Fatalf("%s -> %v, want %v", tt.resp.Code, got, tt.want)
		}
	}
}
