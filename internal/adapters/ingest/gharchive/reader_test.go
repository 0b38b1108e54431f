package gharchive

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	perr "appimagefinder/internal/platform/errors"
	kit "appimagefinder/internal/platform/testkit"
)

func readerOf(t *testing.T, data []byte) *Reader {
	t.Helper()
	rd, err := NewReader(io.NopCloser(bytes.NewReader(data)), "2024-01-01-0.json.gz")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return rd
}

func TestReader_StreamsLines(t *testing.T) {
	data := kit.GzipLines(t,
		`{"id":"1","type":"PushEvent","repo":{"name":"o/a"},"created_at":"2024-01-01T00:00:01Z"}`,
		`{"id":"2","type":"ReleaseEvent","repo":{"name":"o/b"},"payload":{"release":{}},"created_at":"2024-01-01T00:00:02Z"}`,
	)
	rd := readerOf(t, data)
	defer func() { _ = rd.Close() }()

	var got []EventEnvelope
	for {
		env, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, env)
	}
	if len(got) != 2 || got[1].Type != "ReleaseEvent" || got[1].Repo.Name != "o/b" {
		t.Fatalf("got %+v", got)
	}
	if !strings.Contains(string(got[1].Payload), "release") {
		t.Fatalf("payload not kept raw: %s", got[1].Payload)
	}
	events, n := rd.Stats()
	if events != 2 || n == 0 {
		t.Fatalf("stats = %d, %d", events, n)
	}
	// EOF is sticky
	if _, err := rd.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("second EOF = %v", err)
	}
}

func TestReader_BadLineIsFatal(t *testing.T) {
	data := kit.GzipLines(t,
		`{"type":"PushEvent"}`,
		`{"type": nope}`,
		`{"type":"ReleaseEvent"}`,
	)
	rd := readerOf(t, data)
	if _, err := rd.Next(); err != nil {
		t.Fatalf("first line: %v", err)
	}
	_, err := rd.Next()
	if !perr.IsCode(err, perr.ErrorCodeDecode) {
		t.Fatalf("want decode error, got %v", err)
	}
	kit.MustContain(t, err.Error(), "2024-01-01-0.json.gz line 2")
	// the failure sticks, the third line is never returned
	if _, err2 := rd.Next(); err2 != err {
		t.Fatalf("error not sticky: %v", err2)
	}
}

func TestReader_TypeMismatchIsNotFatal(t *testing.T) {
	rd := readerOf(t, kit.GzipLines(t, `{"type":7,"repo":"o/a"}`))
	env, err := rd.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if env.Type != "" || rd.Mismatched() != 1 {
		t.Fatalf("env=%+v mismatched=%d", env, rd.Mismatched())
	}
}

func TestReader_NotGzip(t *testing.T) {
	_, err := NewReader(io.NopCloser(strings.NewReader("plain text")), "x.json.gz")
	if !perr.IsCode(err, perr.ErrorCodeDecode) {
		t.Fatalf("want decode error, got %v", err)
	}
}

func TestReader_TruncatedGzip(t *testing.T) {
	data := kit.GzipLines(t, strings.Repeat(`{"type":"PushEvent"}`+"\n", 200))
	rd := readerOf(t, data[:len(data)/2])
	var err error
	for err == nil {
		_, err = rd.Next()
	}
	if errors.Is(err, io.EOF) || !perr.IsCode(err, perr.ErrorCodeDecode) {
		t.Fatalf("truncated stream should be a decode error, got %v", err)
	}
}

func TestTruncateUTF8(t *testing.T) {
	if got := truncateUTF8([]byte("héllo"), 2); got != "h..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateUTF8([]byte("abc"), 10); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
