package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Stream reads the remaining records and sends them on out, one []string per
// row, in file order.
//
// Per-row problems are soft: parse errors and width mismatches are reported
// through the reader's error callback and the stream continues. Stream returns
// nil at EOF and ctx.Err() on cancellation. Errors from the underlying reader
// end the stream. The caller owns out.
func (r *Reader) Stream(ctx context.Context, out chan<- []string) error {
	expected := len(r.header)
	line := 1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := r.cr.Read()
		if err == io.EOF {
			return nil
		}
		line++

		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return fmt.Errorf("read line %d: %w", line, err)
			}
			r.reject(line, fmt.Errorf("parse: %w", err))
			continue
		}
		if len(rec) != expected {
			r.reject(line, fmt.Errorf("incorrect number of fields: expected %d, got %d", expected, len(rec)))
			continue
		}

		row := make([]string, len(rec))
		for i, v := range rec {
			if r.trim {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reader) reject(line int, err error) {
	if r.onError != nil {
		r.onError(line, err)
	}
}
