package ingest

import (
	"io"

	"appimagefinder/internal/adapters/ingest/gharchive"
	"appimagefinder/internal/services/finder/domain"
)

// readerFactory adapts gharchive.NewReader to domain.ReaderFactory
type readerFactory struct{}

// NewReaderFactory returns a factory that wraps gharchive.NewReader
func NewReaderFactory() domain.ReaderFactory { return readerFactory{} }

func (readerFactory) New(rc io.ReadCloser, source string) (domain.ReaderPort, error) {
	r, err := gharchive.NewReader(rc, source)
	if err != nil {
		return nil, err
	}
	return r, nil
}
