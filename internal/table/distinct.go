package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/golang-sql/civil"
	"github.com/zeebo/xxh3"
)

// Distinct returns the set of distinct rows, keeping the first occurrence of
// each row and the original relative order.
//
// Rows are bucketed by an xxh3 hash of their encoded values and compared
// exactly within a bucket, so hash collisions never merge distinct rows.
func (t *Table) Distinct() *Table {
	out := &Table{Name: t.Name, Schema: t.Schema, Rows: make([][]any, 0, len(t.Rows))}
	buckets := make(map[uint64][]int, len(t.Rows))
	buf := make([]byte, 0, 256)

	for _, row := range t.Rows {
		buf = appendRowKey(buf[:0], row)
		h := xxh3.Hash(buf)

		dup := false
		for _, ix := range buckets[h] {
			if rowsEqual(out.Rows[ix], row) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[h] = append(buckets[h], len(out.Rows))
		out.Rows = append(out.Rows, row)
	}
	return out
}

func rowsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// valuesEqual is == except that NaN equals NaN and -0 equals +0, matching
// the canonical float encoding of appendRowKey.
func valuesEqual(a, b any) bool {
	if x, ok := a.(float64); ok {
		y, ok := b.(float64)
		return ok && (x == y || math.IsNaN(x) && math.IsNaN(y))
	}
	return a == b
}

// canonicalFloat folds every NaN into one bit pattern and -0 into +0.
func canonicalFloat(f float64) uint64 {
	switch {
	case math.IsNaN(f):
		return math.Float64bits(math.NaN())
	case f == 0:
		return 0
	}
	return math.Float64bits(f)
}

// appendRowKey encodes row into a self-delimiting byte key: one type tag per
// value followed by a fixed-width or length-prefixed payload.
func appendRowKey(b []byte, row []any) []byte {
	for _, v := range row {
		switch x := v.(type) {
		case nil:
			b = append(b, 0)
		case string:
			b = append(b, 1)
			b = binary.AppendUvarint(b, uint64(len(x)))
			b = append(b, x...)
		case int32:
			b = append(b, 2)
			b = binary.LittleEndian.AppendUint32(b, uint32(x))
		case int64:
			b = append(b, 3)
			b = binary.LittleEndian.AppendUint64(b, uint64(x))
		case float64:
			b = append(b, 4)
			b = binary.LittleEndian.AppendUint64(b, canonicalFloat(x))
		case civil.Date:
			b = append(b, 5)
			b = binary.LittleEndian.AppendUint32(b, uint32(x.Year))
			b = append(b, byte(x.Month), byte(x.Day))
		default:
			s := fmt.Sprint(x)
			b = append(b, 6)
			b = strconv.AppendInt(b, int64(len(s)), 10)
			b = append(b, ':')
			b = append(b, s...)
		}
	}
	return b
}
