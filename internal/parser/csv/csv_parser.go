// Package csv reads delimited text exports into string-typed tables. The
// reader streams records, never buffering the raw file, and supports an
// optional on-the-fly scrub of known bad byte sequences and a non-UTF-8
// source charset.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"i94etl/internal/datasource"
	"i94etl/internal/table"
)

// Options configures the CSV reader. All fields are optional; zero values
// mean a comma delimiter, no trimming, strict quotes and UTF-8 input.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading and trailing white space from each field.
	TrimSpace bool

	// LazyQuotes relaxes quote handling in encoding/csv.
	LazyQuotes bool

	// Charset names the source encoding (IANA name, e.g. "ISO-8859-1").
	// Empty or "utf-8" reads the bytes as-is.
	Charset string

	// HeaderMap renames source headers after trimming.
	HeaderMap map[string]string

	// Scrub lists literal byte rewrites applied before parsing.
	Scrub []Replacement

	// OnError receives rows that were dropped; line is 1-based and counts
	// the header.
	OnError func(line int, err error)
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// ReadTable opens src and reads every record into a table whose columns are
// the header cells, all typed String. Empty cells become nil. Rows with the
// wrong number of fields are dropped, reported through OnError, and counted
// in the returned skipped total.
func ReadTable(ctx context.Context, src datasource.Source, name string, opt Options) (*table.Table, int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	r, err := NewReader(rc, opt)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}

	schema := make(table.Schema, len(r.Header()))
	for i, h := range r.Header() {
		schema[i] = table.Column{Name: h, Type: table.String}
	}
	out := table.New(name, schema)

	skipped := 0
	onErr := opt.OnError
	r.onError = func(line int, err error) {
		skipped++
		if onErr != nil {
			onErr(line, err)
		}
	}

	rows := make(chan []string, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rows)
		return r.Stream(gctx, rows)
	})
	g.Go(func() error {
		for rec := range rows {
			row := make([]any, len(rec))
			for i, v := range rec {
				row[i] = emptyToNil(v)
			}
			out.Rows = append(out.Rows, row)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, skipped, fmt.Errorf("%s: %w", name, err)
	}
	return out, skipped, nil
}

// Reader is a header-aware CSV reader. It is not safe for concurrent use.
type Reader struct {
	cr      *csv.Reader
	header  []string
	trim    bool
	onError func(line int, err error)
}

// NewReader wraps r (decoding and scrubbing as configured) and consumes the
// header row.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	dec, err := LookupCharset(opt.Charset)
	if err != nil {
		return nil, err
	}
	if dec != nil {
		r = dec.NewDecoder().Reader(r)
	}
	r = wrapScrub(r, opt.Scrub)

	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// Width is enforced after reading so bad rows are dropped, not fatal.
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return &Reader{
		cr:      cr,
		header:  normalizeHeaders(h, opt.HeaderMap),
		trim:    opt.TrimSpace,
		onError: opt.OnError,
	}, nil
}

// Header returns the normalized header names.
func (r *Reader) Header() []string { return r.header }

// LookupCharset resolves an IANA charset name. It returns a nil encoding for
// UTF-8 and the empty name.
func LookupCharset(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q: not supported", charset)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders trims each header cell, strips a UTF-8 BOM from the first
// one, and applies headerMap. Case and inner spacing are kept.
func normalizeHeaders(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = strings.TrimSpace(c)
		if m, ok := headerMap[c]; ok {
			c = m
		}
		if c == "" {
			c = fmt.Sprintf("_c%d", i)
		}
		res[i] = c
	}
	return res
}
