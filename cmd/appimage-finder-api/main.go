// Command appimage-finder-api serves release scans over HTTP
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appimagefinder/internal/platform/config"
	"appimagefinder/internal/platform/logger"
	phttp "appimagefinder/internal/platform/net/http"
	"appimagefinder/internal/platform/net/middleware"

	"appimagefinder/internal/services/api"

	"github.com/go-chi/chi/v5"
)

func main() {
	loaded, envErr := config.LoadDotEnv()
	l := logger.Get()
	for _, f := range loaded {
		l.Debug().Str("file", f).Msg("loaded env file")
	}
	if envErr != nil {
		l.Warn().Err(envErr).Msg("env file not loaded")
	}

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// http server (reads CORE_API_ADDR, CORE_API_READ_HEADER_TIMEOUT, CORE_API_WRITE_TIMEOUT)
	srv := phttp.NewServer(apiCfg, func(m *chi.Mux) {
		// load balancer probe outside the versioned stack
		m.Use(middleware.Heartbeat("/health"))
	})

	if err := api.Mount(srv.Router(), api.Options{Config: root}); err != nil {
		l.Panic().Err(err).Msg("api.Mount failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, apiCfg.MayDuration("SHUTDOWN_GRACE", 15*time.Second)); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
