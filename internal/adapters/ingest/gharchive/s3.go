package gharchive

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	perr "appimagefinder/internal/platform/errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config points at an S3-compatible bucket mirroring GH Archive hour files
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // key prefix, e.g. "gharchive/"
	UseSSL    bool
}

// S3Fetcher reads hour files from a mirror bucket
type S3Fetcher struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Fetcher validates cfg and builds a client. No request is made until Fetch
func NewS3Fetcher(cfg S3Config) (*S3Fetcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, perr.WithField(perr.New(perr.ErrorCodeValidation, "s3 endpoint is required"), "S3_ENDPOINT")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, perr.WithField(perr.New(perr.ErrorCodeValidation, "s3 access key and secret key are required"), "S3_ACCESS_KEY")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, perr.WithField(perr.New(perr.ErrorCodeValidation, "s3 bucket is required"), "S3_BUCKET")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "init s3 client")
	}
	return &S3Fetcher{client: client, bucket: bucket, prefix: strings.TrimSpace(cfg.Prefix)}, nil
}

// Key returns the object key holding the hour
func (s *S3Fetcher) Key(hour HourRef) string { return objectKey(s.prefix, hour) }

// Fetch opens the hour object. The object is stat'ed first so a missing key
// surfaces here as NotFound rather than on the first read
func (s *S3Fetcher) Fetch(ctx context.Context, hour HourRef) (io.ReadCloser, error) {
	key := s.Key(hour)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s3Error(err, s.bucket, key)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, s3Error(err, s.bucket, key)
	}
	return obj, nil
}

func objectKey(prefix string, hour HourRef) string {
	p := strings.Trim(prefix, "/")
	if p == "" {
		return hour.FileName()
	}
	return path.Join(p, hour.FileName())
}

// s3Error maps minio error responses onto our codes
func s3Error(err error, bucket, key string) error {
	resp := minio.ToErrorResponse(err)
	code := perr.ErrorCodeUnavailable
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		code = perr.ErrorCodeNotFound
	case resp.Code == "SlowDown" || resp.StatusCode == http.StatusTooManyRequests:
		code = perr.ErrorCodeTooManyRequests
	case resp.StatusCode == http.StatusForbidden || resp.Code == "AccessDenied":
		code = perr.ErrorCodeInvalidArgument
	}
	return perr.WithOp(perr.Wrapf(err, code, "gharchive: s3://%s/%s", bucket, key), "gharchive.s3")
}
