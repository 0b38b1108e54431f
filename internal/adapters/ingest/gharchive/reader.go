package gharchive

import (
	"bufio"
	"errors"
	"io"

	perr "appimagefinder/internal/platform/errors"
	"appimagefinder/internal/platform/logger"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

const (
	maxScanTokenSize = 32 * 1024 * 1024
	sampleRawMax     = 2048 // max bytes of raw JSON to log for the sample
)

// Reader streams EventEnvelope items from a gzip file
type Reader struct {
	r        io.ReadCloser
	gz       *gzip.Reader
	sc       *bufio.Scanner
	source   string
	err      error
	line     int
	events   int
	mismatch int
	bytes    int64
	sampled  bool // logs exactly one sample raw line per gzip
}

// NewReader creates a new Reader from the given ReadCloser. source names the
// stream in errors, usually the dump filename
func NewReader(r io.ReadCloser, source string) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		_ = r.Close()
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeDecode, "gharchive: %s: open gzip", source), "gharchive.open")
	}
	sc := bufio.NewScanner(gz)
	buf := make([]byte, 512*1024)
	sc.Buffer(buf, maxScanTokenSize)
	return &Reader{r: r, gz: gz, sc: sc, source: source}, nil
}

// Next reads the next event; returns io.EOF when done.
// Any decompression, read, or syntax failure is sticky and ends the stream
func (rd *Reader) Next() (EventEnvelope, error) {
	if rd.err != nil {
		return EventEnvelope{}, rd.err
	}
	for {
		if !rd.sc.Scan() {
			if err := rd.sc.Err(); err != nil {
				rd.err = rd.scanErr(err)
				return EventEnvelope{}, rd.err
			}
			rd.err = io.EOF
			return EventEnvelope{}, io.EOF
		}
		rd.line++
		line := rd.sc.Bytes()
		rd.bytes += int64(len(line) + 1) // include newline

		var env EventEnvelope
		mismatch, err := DecodeLoose(line, &env)
		if err != nil {
			rd.err = perr.WithOp(
				perr.Wrapf(err, perr.ErrorCodeDecode, "gharchive: %s line %d", rd.source, rd.line),
				"gharchive.decode",
			)
			return EventEnvelope{}, rd.err
		}
		if mismatch {
			rd.mismatch++
		}
		rd.events++

		// Log a single raw-line sample (first valid JSON line in this gzip)
		if !rd.sampled {
			rd.sampled = true
			l := logger.Named("gharchive")
			l.Debug().
				Str("source", rd.source).
				Int("line_bytes", len(line)).
				Str("sample_raw", truncateUTF8(line, sampleRawMax)).
				Msg("gharchive: sample raw line")
		}

		return env, nil
	}
}

// scanErr classifies a scanner failure as corrupt data or a plain read error
func (rd *Reader) scanErr(err error) error {
	code := perr.ErrorCodeIO
	var ce flate.CorruptInputError
	switch {
	case errors.Is(err, gzip.ErrChecksum), errors.Is(err, gzip.ErrHeader),
		errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, bufio.ErrTooLong),
		errors.As(err, &ce):
		code = perr.ErrorCodeDecode
	}
	return perr.WithOp(perr.Wrapf(err, code, "gharchive: %s after line %d", rd.source, rd.line), "gharchive.read")
}

// Close closes the underlying reader
func (rd *Reader) Close() error {
	var first error
	if rd.gz != nil {
		if err := rd.gz.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			first = err
		}
	}
	if rd.r != nil {
		if err := rd.r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns the number of events parsed and total uncompressed bytes read so far
func (rd *Reader) Stats() (events int, bytes int64) {
	return rd.events, rd.bytes
}

// Mismatched returns how many lines decoded with at least one field of the wrong type
func (rd *Reader) Mismatched() int { return rd.mismatch }

// Source returns the name given at construction
func (rd *Reader) Source() string { return rd.source }

// truncateUTF8 returns a string made from b, truncated to at most max bytes,
// backing up to a UTF-8 boundary if needed, and appending an ellipsis if truncated
func truncateUTF8(b []byte, max int) string {
	if max <= 0 || len(b) <= max {
		return string(b)
	}
	i := max
	// back up to the start of a rune (0b10xxxxxx indicates continuation byte)
	for i > 0 && (b[i]&0xC0) == 0x80 {
		i--
	}
	if i <= 0 {
		i = max
	}
	return string(b[:i]) + "..."
}
