package modkit

import (
	"net/http"
	"strings"

	"appimagefinder/internal/modkit/httpkit"
)

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any

	Subrouter func(httpkit.Router) httpkit.Router
	Register  func(httpkit.Router)
}

// Build applies Option funcs and returns a plain struct with hook defaults filled
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	if c.subrouter == nil {
		c.subrouter = func(r httpkit.Router) httpkit.Router { return r }
	}
	if c.register == nil {
		c.register = func(httpkit.Router) {}
	}
	return Built{
		Name:      c.name,
		Prefix:    c.prefix,
		Mw:        append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:     c.ports,
		Subrouter: c.subrouter,
		Register:  c.register,
	}
}

// Mount routes b's prefix, middleware, and hooks onto r, then calls own followed
// by the external Register hook
func (b Built) Mount(r httpkit.Router, own func(httpkit.Router)) {
	attach := func(rr httpkit.Router) {
		if len(b.Mw) > 0 {
			rr.Use(b.Mw...)
		}
		rr = b.Subrouter(rr)
		own(rr)
		b.Register(rr)
	}
	p := strings.TrimRight(b.Prefix, "/")
	if p == "" {
		r.Group(attach)
		return
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	r.Route(p, attach)
}
