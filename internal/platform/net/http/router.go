package http

import "net/http"

// Handler is a plain net/http handler func; modules never see chi types
type Handler = func(http.ResponseWriter, *http.Request)

// Router is what modules mount against. The API is read-only, so only the
// verbs it serves are exposed; anything else goes through Handle
type Router interface {
	// verbs
	Get(path string, h Handler)
	Post(path string, h Handler)
	Head(path string, h Handler)
	Options(path string, h Handler)
	Handle(path string, h http.Handler)

	// composition
	Use(mw ...func(http.Handler) http.Handler)
	Group(fn func(Router))
	Route(pattern string, fn func(Router))

	// Mux returns the root handler for serving or tests
	Mux() http.Handler
}
