package httpkit

import (
	"net/http"
	"time"

	"appimagefinder/internal/platform/config"
	"appimagefinder/internal/platform/net/middleware"

	"github.com/klauspost/compress/flate"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	// Timeout cancels request contexts after this long, 0 disables it
	Timeout time.Duration
	// Slow marks access log lines at warn level, 0 disables it
	Slow time.Duration
	// Origins are the CORS allowed origins, empty means any
	Origins []string
	// MaxInFlight caps concurrent requests, 0 disables throttling
	MaxInFlight int
}

// StackFromConfig reads TIMEOUT, SLOW, CORS_ORIGINS, and MAX_IN_FLIGHT (typically under CORE_API_)
func StackFromConfig(cfg config.Conf) StackOptions {
	return StackOptions{
		Timeout:     cfg.MayDuration("TIMEOUT", 0),
		Slow:        cfg.MayDuration("SLOW", 5*time.Second),
		Origins:     cfg.MayCSV("CORS_ORIGINS", nil),
		MaxInFlight: cfg.MayInt("MAX_IN_FLIGHT", 0),
	}
}

// CommonStack returns the baseline middleware slice for API routes
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		// correlation
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.LogContext(),

		// safety
		middleware.RecoverJSON,

		middleware.AccessLog(middleware.AccessLogOptions{Slow: o.Slow}),
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.Origins}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
	}
	if o.MaxInFlight > 0 {
		mws = append(mws, middleware.Throttle(o.MaxInFlight, o.MaxInFlight*4, time.Minute))
	}
	if o.Timeout > 0 {
		mws = append(mws, middleware.Timeout(o.Timeout))
	}
	return mws
}
