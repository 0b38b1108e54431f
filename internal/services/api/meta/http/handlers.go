// Package http provides meta endpoints
package http

import (
	"net/http"
	"time"

	"appimagefinder/internal/core/version"
	"appimagefinder/internal/modkit/httpkit"
)

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time

	// now is a test seam
	now func() time.Time
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.now == nil {
		d.now = time.Now
	}
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/version", h.version)
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK      bool              `json:"ok"`
	Service string            `json:"service"`
	Started string            `json:"started"`
	Now     string            `json:"now"`
	Uptime  int64             `json:"uptime"`
	Build   version.BuildInfo `json:"build"`
}

// GET /meta/health
func (h *handlers) health(_ *http.Request) (any, error) {
	now := h.deps.now()
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     now.UTC().Format(time.RFC3339),
		Uptime:  int64(now.Sub(h.deps.StartedAt) / time.Second),
		Build:   version.Info(),
	}, nil
}

// GET /meta/version
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}
