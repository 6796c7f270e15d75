// Package sas reads SAS7BDAT binary extracts into tables.
//
// Numeric SAS columns become Float64 columns and character columns become
// String columns; SAS missing values (including NaN numerics) and blank
// character values become nil.
// Column names are lower-cased since SAS names are case-insensitive.
// Converting to the declared output types is left to the caller.
package sas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/kshedden/datareader"

	"i94etl/internal/datasource"
	"i94etl/internal/table"
)

// DefaultChunkRows is the number of rows decoded per Read call.
const DefaultChunkRows = 100_000

// ErrUnsupportedColumn is returned for column payloads other than numeric or
// character data.
var ErrUnsupportedColumn = errors.New("sas: unsupported column data")

// Read decodes every row of the SAS7BDAT stream opened from src into a table
// called name. chunkRows <= 0 uses DefaultChunkRows. The context is checked
// between chunks.
func Read(ctx context.Context, src datasource.SeekSource, name string, chunkRows int) (*table.Table, error) {
	if chunkRows <= 0 {
		chunkRows = DefaultChunkRows
	}
	rs, err := src.OpenSeeker(ctx)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	sr, err := datareader.NewSAS7BDATReader(rs)
	if err != nil {
		return nil, fmt.Errorf("sas7bdat %s: %w", name, err)
	}
	sr.TrimStrings = true

	b := newBuilder(name, sr.ColumnNames())
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, rerr := sr.Read(chunkRows)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return nil, fmt.Errorf("sas7bdat %s: rows %d+: %w", name, b.t.Len(), rerr)
		}
		cols := make([]column, len(series))
		for i, s := range series {
			if s == nil {
				continue
			}
			cols[i] = column{data: s.Data(), missing: s.Missing()}
		}
		n, err := b.append(cols)
		if err != nil {
			return nil, fmt.Errorf("sas7bdat %s: %w", name, err)
		}
		if rerr != nil || n == 0 {
			break
		}
	}
	return b.t, nil
}

// column is one decoded chunk of a single SAS variable.
type column struct {
	data    any
	missing []bool
}

func (c column) len() int {
	switch d := c.data.(type) {
	case []float64:
		return len(d)
	case []string:
		return len(d)
	}
	return 0
}

// builder accumulates decoded chunks into a table. Column types are fixed by
// the first non-empty chunk.
type builder struct {
	t     *table.Table
	typed bool
}

func newBuilder(name string, names []string) *builder {
	schema := make(table.Schema, len(names))
	for i, n := range names {
		schema[i] = table.Column{Name: strings.ToLower(strings.TrimSpace(n)), Type: table.String}
	}
	return &builder{t: table.New(name, schema)}
}

// append adds one chunk and returns the number of rows it held.
func (b *builder) append(cols []column) (int, error) {
	if len(cols) == 0 {
		return 0, nil
	}
	if len(cols) != len(b.t.Schema) {
		return 0, fmt.Errorf("chunk has %d columns, header has %d", len(cols), len(b.t.Schema))
	}
	n := cols[0].len()
	if n == 0 {
		return 0, nil
	}

	for j, c := range cols {
		var kind table.Type
		switch c.data.(type) {
		case []float64:
			kind = table.Float64
		case []string:
			kind = table.String
		default:
			return 0, fmt.Errorf("column %q: %T: %w", b.t.Schema[j].Name, c.data, ErrUnsupportedColumn)
		}
		if c.len() != n {
			return 0, fmt.Errorf("column %q: %d rows, want %d", b.t.Schema[j].Name, c.len(), n)
		}
		if !b.typed {
			b.t.Schema[j].Type = kind
		} else if b.t.Schema[j].Type != kind {
			return 0, fmt.Errorf("column %q changed type to %s: %w", b.t.Schema[j].Name, kind, table.ErrSchemaMismatch)
		}
	}
	b.typed = true

	for i := 0; i < n; i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			if c.missing != nil && i < len(c.missing) && c.missing[i] {
				continue
			}
			switch d := c.data.(type) {
			case []float64:
				if !math.IsNaN(d[i]) {
					row[j] = d[i]
				}
			case []string:
				if v := strings.TrimSpace(d[i]); v != "" {
					row[j] = v
				}
			}
		}
		if err := b.t.Append(row); err != nil {
			return 0, err
		}
	}
	return n, nil
}
