// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"time"

	"appimagefinder/internal/core/version"
	"appimagefinder/internal/modkit"
	"appimagefinder/internal/modkit/httpkit"
	pstrings "appimagefinder/internal/platform/strings"

	metahttp "appimagefinder/internal/services/api/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	deps      modkit.Deps
	b         modkit.Built
	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)
	return &Module{deps: deps, b: b, startedAt: time.Now()}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) {
		metahttp.Register(rr, metahttp.Deps{
			ServiceName: version.Service,
			StartedAt:   m.startedAt,
		})
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return pstrings.FirstNonBlank(m.b.Name, "meta") }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
