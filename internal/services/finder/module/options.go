package module

import (
	"time"

	"appimagefinder/internal/core/appimage"
	"appimagefinder/internal/platform/config"
	"appimagefinder/internal/platform/net/http/bind"
)

// Options holds configuration options for the finder service
type Options struct {
	Arch             string `validate:"oneof=x86_64 aarch64 all"`
	IncludeChecksums bool
	DelayPerHour     time.Duration `validate:"min=0s"`
	MaxRetries       int           `validate:"min=0,max=20"`
	RetryBase        time.Duration `validate:"min=0s"`
	FileTimeout      time.Duration `validate:"min=0s"`
	FetchTimeout     time.Duration `validate:"min=0s"`
	ReadTimeout      time.Duration `validate:"min=0s"`
	MaxRangeHours    int           `validate:"min=0"`
	SkipMissing      bool
}

// FromConfig reads the finder options from config with CORE_FINDER_ prefix
func FromConfig(cfg config.Conf) Options {
	f := cfg.Prefix("CORE_FINDER_")
	return Options{
		Arch:             f.MayEnum("ARCH", string(appimage.ModeAll), appimage.Modes...),
		IncludeChecksums: f.MayBool("INCLUDE_CHECKSUMS", false),
		DelayPerHour:     f.MayDuration("DELAY", 200*time.Millisecond),
		MaxRetries:       f.MayInt("RETRIES", 3),
		RetryBase:        f.MayDuration("RETRY_BASE", 500*time.Millisecond),
		FileTimeout:      f.MayDuration("FILE_TIMEOUT", 0),
		FetchTimeout:     f.MayDuration("FETCH_TIMEOUT", 10*time.Minute),
		ReadTimeout:      f.MayDuration("READ_TIMEOUT", 10*time.Minute),
		MaxRangeHours:    f.MayInt("MAX_RANGE_HOURS", 0),
		SkipMissing:      f.MayBool("SKIP_MISSING", false),
	}
}

// Validate checks option bounds
func (o Options) Validate() error { return bind.Struct(o) }

// Mode returns the parsed architecture mode; Validate guarantees it is known
func (o Options) Mode() appimage.ArchMode {
	m, err := appimage.ParseArchMode(o.Arch)
	if err != nil {
		return appimage.ModeAll
	}
	return m
}
