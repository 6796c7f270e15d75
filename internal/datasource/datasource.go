// Package datasource defines how mappers obtain raw input bytes.
package datasource

import (
	"context"
	"io"
)

// Source opens a stream of raw input.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SeekSource is a Source whose stream supports random access. Binary
// formats with a page index (SAS7BDAT) need it.
type SeekSource interface {
	Source
	OpenSeeker(ctx context.Context) (ReadSeekCloser, error)
}

// ReadSeekCloser is the union of io.ReadSeeker and io.Closer.
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}
