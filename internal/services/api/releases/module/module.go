// Package module wires the releases endpoints into the API using modkit
package module

import (
	"net/http"

	"appimagefinder/internal/modkit"
	"appimagefinder/internal/modkit/httpkit"
	pstrings "appimagefinder/internal/platform/strings"
	relhttp "appimagefinder/internal/services/api/releases/http"
	relsvc "appimagefinder/internal/services/api/releases/service"
	finderdom "appimagefinder/internal/services/finder/domain"
)

// Ports are the cross module ports the releases module consumes
type Ports struct {
	Runner   finderdom.RunnerPort
	Defaults finderdom.Scan
}

// Module implements the modkit.Module interface
type Module struct {
	deps modkit.Deps
	b    modkit.Built
	svc  *relsvc.Service
}

// New constructs the releases module. The finder runner arrives through modkit.WithPorts(Ports{...})
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("releases"),
		modkit.WithPrefix("/releases"),
	}, opts...)...)

	in, _ := b.Ports.(Ports)
	return &Module{
		deps: deps,
		b:    b,
		svc: relsvc.New(in.Runner, relsvc.Config{
			Defaults:  in.Defaults,
			CacheSize: deps.Cfg.Prefix("CORE_API_").MayInt("RESULT_CACHE", 64),
		}),
	}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { relhttp.Register(rr, m.svc) })
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return pstrings.FirstNonBlank(m.b.Name, "releases") }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.b.Mw }

// Ports exposes the scan service
func (m *Module) Ports() any { return m.svc }
