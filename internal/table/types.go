// Package table is the in-memory tabular model every mapper works on.
//
// A Table is a named, typed schema plus positional rows. Cells hold nil (SQL
// NULL) or one Go value per column type:
//
//	Int32   -> int32
//	Int64   -> int64
//	Float64 -> float64
//	String  -> string
//	Date    -> civil.Date
//	Decimal -> int64 (unscaled value)
//
// All operations return new tables; inputs are never mutated. Row slices may
// be shared between the input and the output of an operation, so callers
// must treat rows as read-only once a table has been built.
package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownColumn is returned when an operation names a column that is
	// not part of the table schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrSchemaMismatch is returned when two schemas that must agree do not,
	// or when a source does not carry the declared columns.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Kind enumerates the logical column types.
type Kind int

const (
	KindString Kind = iota
	KindInt32
	KindInt64
	KindFloat64
	KindDate
	KindDecimal
)

// Type is a logical column type. Precision and Scale only apply to
// KindDecimal.
type Type struct {
	Kind      Kind
	Precision int
	Scale     int
}

var (
	String  = Type{Kind: KindString}
	Int32   = Type{Kind: KindInt32}
	Int64   = Type{Kind: KindInt64}
	Float64 = Type{Kind: KindFloat64}
	Date    = Type{Kind: KindDate}
)

// Decimal returns a fixed-precision decimal type.
func Decimal(precision, scale int) Type {
	return Type{Kind: KindDecimal, Precision: precision, Scale: scale}
}

func (t Type) String() string {
	switch t.Kind {
	case KindString:
		return "string"
	case KindInt32:
		return "int"
	case KindInt64:
		return "bigint"
	case KindFloat64:
		return "double"
	case KindDate:
		return "date"
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	default:
		return fmt.Sprintf("kind(%d)", int(t.Kind))
	}
}

// Column is a single named, typed column.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered list of columns.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named column and whether it exists.
func (s Schema) Lookup(name string) (Column, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return Column{}, false
}

// Equal reports whether both schemas carry the same names and types in the
// same order.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.Name + " " + c.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
