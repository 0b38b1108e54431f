package testkit

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestMustPanic(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() {
		panic("boom")
	})
}

func TestMustNotPanic(t *testing.T) {
	t.Parallel()

	MustNotPanic(t, func() {
		// no panic
	})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	haystack := "alpha beta gamma"
	MustContain(t, haystack, "beta")
}

func TestGzipLines_RoundTrip(t *testing.T) {
	t.Parallel()

	data := GzipLines(t, `{"a":1}`, `{"b":2}`)
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "{\"a\":1}\n{\"b\":2}\n" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	p := WriteFile(t, "x.json.gz", []byte("hi"))
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "hi" {
		t.Fatalf("WriteFile: %q %v", b, err)
	}
}
