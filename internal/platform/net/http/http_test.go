package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"appimagefinder/internal/platform/config"
	perr "appimagefinder/internal/platform/errors"
	pnet "appimagefinder/internal/platform/net"
	kit "appimagefinder/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func header(name, val string) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			w.Header().Set(name, val)
			next.ServeHTTP(w, r)
		})
	}
}

func serve(h stdhttp.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var rd io.Reader = stdhttp.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	h.ServeHTTP(rec, httptest.NewRequest(method, path, rd))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestAdaptChi_GroupRouteAndMux(t *testing.T) {
	t.Parallel()

	r := AdaptChi(chi.NewRouter())
	r.Use(header("X-Root", "1"))
	r.Get("/root", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { _, _ = w.Write([]byte("root")) })
	r.Group(func(g Router) {
		g.Use(header("X-Group", "1"))
		g.Head("/g", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })
	})
	r.Route("/api", func(sr Router) {
		sr.Use(header("X-Route", "1"))
		if sr.Mux() == nil {
			t.Fatalf("route Mux() returned nil")
		}
		sr.Post("/p", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusAccepted) })
		sr.Options("/p", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusOK) })
		sr.Handle("/h", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusTeapot) }))
	})

	mux := r.Mux()
	if rec := serve(mux, "GET", "/root", ""); rec.Body.String() != "root" || rec.Header().Get("X-Root") != "1" {
		t.Fatalf("root: %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(mux, "HEAD", "/g", ""); rec.Code != stdhttp.StatusNoContent || rec.Header().Get("X-Group") != "1" {
		t.Fatalf("group: %d", rec.Code)
	}
	if rec := serve(mux, "POST", "/api/p", ""); rec.Code != stdhttp.StatusAccepted || rec.Header().Get("X-Route") != "1" {
		t.Fatalf("route post: %d", rec.Code)
	}
	if rec := serve(mux, "OPTIONS", "/api/p", ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("route options: %d", rec.Code)
	}
	if rec := serve(mux, "GET", "/api/h", ""); rec.Code != stdhttp.StatusTeapot {
		t.Fatalf("route handle: %d", rec.Code)
	}
	if rec := serve(mux, "GET", "/root/group/", ""); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("unknown path: %d", rec.Code)
	}
}

func TestResponse_Envelope(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		resp   Response
		status int
		code   perr.ErrorCode
	}{
		{"ok", OK(map[string]int{"n": 1}), 200, 0},
		{"zero status", Response{Body: "x"}, 200, 0},
		{"invalid", Error(perr.InvalidArgf("bad start")), 422, perr.ErrorCodeInvalidArgument},
		{"not found", Error(perr.NotFoundf("hour missing")), 404, perr.ErrorCodeNotFound},
		{"upstream", Error(perr.Unavailablef("gharchive down")), 503, perr.ErrorCodeUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Handle(func(*stdhttp.Request) Response { return tc.resp })
			req := httptest.NewRequest("GET", "/", nil)
			req = req.WithContext(pnet.WithRequestID(req.Context(), "req-1"))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			env := decode(t, rec)
			if env.StatusCode != tc.status || env.Code != tc.code || env.RequestID != "req-1" {
				t.Fatalf("envelope = %+v", env)
			}
		})
	}
}

func TestResponse_FieldAndHeaders(t *testing.T) {
	t.Parallel()

	err := perr.WithField(perr.InvalidArgf("bad arch"), "arch")
	rec := serve(Handle(func(*stdhttp.Request) Response {
		resp := Error(err)
		resp.Header = stdhttp.Header{"X-Extra": {"a"}}
		return resp
	}), "GET", "/", "")
	if rec.Header().Get("X-Extra") != "a" {
		t.Fatalf("header not copied")
	}
	if env := decode(t, rec); env.Field != "arch" || env.Error != "bad arch" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestResponse_RawAndNoContent(t *testing.T) {
	t.Parallel()

	rec := serve(Handle(func(*stdhttp.Request) Response { return Raw("text/csv; charset=utf-8", []byte("a,b\n")) }), "GET", "/", "")
	if rec.Code != 200 || rec.Body.String() != "a,b\n" || rec.Header().Get("Content-Type") != "text/csv; charset=utf-8" {
		t.Fatalf("raw: %d %q %q", rec.Code, rec.Body.String(), rec.Header().Get("Content-Type"))
	}

	rec = serve(Handle(func(*stdhttp.Request) Response { return Raw("", nil) }), "GET", "/", "")
	if rec.Header().Get("Content-Type") != "application/octet-stream" || rec.Body.Len() != 0 {
		t.Fatalf("raw default: %q", rec.Header().Get("Content-Type"))
	}

	rec = serve(Handle(func(*stdhttp.Request) Response { return NoContent() }), "GET", "/", "")
	if rec.Code != stdhttp.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("no content: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest("GET", "/", nil), perr.New(perr.ErrorCodeValidation, "arch must be one of"))
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	kit.MustContain(t, rec.Body.String(), "arch must be one of")
}

func TestCallAndJSONHandler(t *testing.T) {
	t.Parallel()

	type in struct {
		Start string `json:"start" validate:"required"`
	}
	r := AdaptChi(chi.NewRouter())
	GetJSON(r, "/plain", func(*stdhttp.Request) (any, error) { return map[string]string{"k": "v"}, nil })
	GetJSON(r, "/resp", func(*stdhttp.Request) (any, error) { return NoContent(), nil })
	GetJSON(r, "/err", func(*stdhttp.Request) (any, error) { return nil, perr.NotFoundf("gone") })
	PostJSON(r, "/echo", func(_ *stdhttp.Request, v in) (any, error) { return v.Start, nil })

	mux := r.Mux()
	if env := decode(t, serve(mux, "GET", "/plain", "")); env.StatusCode != 200 {
		t.Fatalf("plain = %+v", env)
	}
	if rec := serve(mux, "GET", "/resp", ""); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("resp passthrough = %d", rec.Code)
	}
	if rec := serve(mux, "GET", "/err", ""); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("err = %d", rec.Code)
	}
	if env := decode(t, serve(mux, "POST", "/echo", `{"start":"2024-01"}`)); env.Data != "2024-01" {
		t.Fatalf("echo = %+v", env)
	}
	if rec := serve(mux, "POST", "/echo", `{}`); rec.Code < 400 {
		t.Fatalf("missing start should fail, got %d", rec.Code)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	t.Setenv("CORE_API_ADDR", "127.0.0.1:0")

	optCalled := false
	srv := NewServer(config.New().Prefix("CORE_API_"), func(*chi.Mux) { optCalled = true })
	if !optCalled {
		t.Fatalf("expected NewServer option to be called")
	}
	if srv.Addr() != "127.0.0.1:0" || srv.Handler() == nil {
		t.Fatalf("server = %q", srv.Addr())
	}
	srv.Router().Get("/ping", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { _, _ = w.Write([]byte("pong")) })
	if rec := serve(srv.Handler(), "GET", "/ping", ""); rec.Body.String() != "pong" {
		t.Fatalf("ping = %q", rec.Body.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestServer_RunListenError(t *testing.T) {
	t.Setenv("BAD_ADDR", "256.0.0.1:bogus")
	srv := NewServer(config.New().Prefix("BAD_"))
	if err := srv.Run(context.Background(), time.Second); err == nil {
		t.Fatalf("expected listen error")
	}
}
