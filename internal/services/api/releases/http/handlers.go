// Package http provides http transport for release scans
package http

import (
	"bytes"
	stdhttp "net/http"
	"strconv"
	"strings"
	"sync"

	"appimagefinder/internal/adapters/output"
	"appimagefinder/internal/core/timerange"
	"appimagefinder/internal/modkit/httpkit"
	perr "appimagefinder/internal/platform/errors"
	"appimagefinder/internal/platform/net/http/bind"
	pstrings "appimagefinder/internal/platform/strings"
	"appimagefinder/internal/services/api/releases/domain"
)

var tagsOnce sync.Once

// registerTags installs the timestr validator used by domain.Query
func registerTags() {
	tagsOnce.Do(func() {
		_ = bind.RegisterTag("timestr", func(fl bind.FieldLevel) bool {
			_, _, err := timerange.Parse(fl.Field().String())
			return err == nil
		}, "{0} must look like 2024, 2024-01, 2024-01-15 or 2024-01-15-13")
	})
}

// Register mounts release endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort) {
	registerTags()
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.list)
	httpkit.PostJSON(r, "/search", h.search)
}

type handlers struct{ svc domain.ServicePort }

// GET /releases?start=&end=&arch=&checksums=&format=
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	q, err := queryFrom(r)
	if err != nil {
		return nil, err
	}
	if err := bind.Struct(q); err != nil {
		return nil, err
	}
	return h.run(r, q)
}

// POST /releases/search
func (h *handlers) search(r *stdhttp.Request, q domain.Query) (any, error) {
	return h.run(r, q)
}

func (h *handlers) run(r *stdhttp.Request, q domain.Query) (any, error) {
	f, err := output.ParseFormat(pstrings.FirstNonBlank(q.Format, string(output.JSON)))
	if err != nil {
		return nil, err
	}
	res, err := h.svc.Search(r.Context(), q)
	if err != nil {
		return nil, err
	}
	if f != output.CSV {
		return res, nil
	}

	var buf bytes.Buffer
	if err := output.Encode(&buf, f, res.Releases); err != nil {
		return nil, err
	}
	resp := httpkit.Raw(f.ContentType(), buf.Bytes())
	resp.Header = stdhttp.Header{"X-Run-Id": []string{res.RunID}}
	return resp, nil
}

func queryFrom(r *stdhttp.Request) (domain.Query, error) {
	v := r.URL.Query()
	q := domain.Query{
		Start:  v.Get("start"),
		End:    v.Get("end"),
		Arch:   strings.ToLower(strings.TrimSpace(v.Get("arch"))),
		Format: strings.ToLower(strings.TrimSpace(v.Get("format"))),
	}
	if s := v.Get("checksums"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, perr.WithField(perr.InvalidArgf("checksums %q: want a boolean", s), "checksums")
		}
		q.IncludeChecksums = &b
	}
	return q, nil
}
