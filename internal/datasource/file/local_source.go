package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"i94etl/internal/datasource"
)

// Local is a data source backed by a file on the local disk.
type Local struct{ path string }

// NewLocal returns a Local data source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound filesystem path.
func (l *Local) Path() string { return l.path }

// Open opens the path for reading. A context that is already done returns its
// error without touching the filesystem. Filesystem errors are wrapped with
// the path and still match errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	return l.OpenSeeker(ctx)
}

// OpenSeeker is Open with random access.
func (l *Local) OpenSeeker(ctx context.Context) (datasource.ReadSeekCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

var _ datasource.SeekSource = (*Local)(nil)
