package table

import (
	"fmt"
)

// Table is a named, typed, row-oriented record set.
type Table struct {
	Name   string
	Schema Schema
	Rows   [][]any
}

// New returns an empty table with the given schema.
func New(name string, schema Schema) *Table {
	return &Table{Name: name, Schema: schema}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Append adds a row. The row length must match the schema.
func (t *Table) Append(row []any) error {
	if len(row) != len(t.Schema) {
		return fmt.Errorf("%s: row has %d values, schema has %d columns: %w",
			t.Name, len(row), len(t.Schema), ErrSchemaMismatch)
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Named returns a shallow copy of t carrying a different name.
func (t *Table) Named(name string) *Table {
	return &Table{Name: name, Schema: t.Schema, Rows: t.Rows}
}

// Select projects the named columns, in the order given.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	schema := make(Schema, len(names))
	for i, n := range names {
		ix := t.Schema.Index(n)
		if ix < 0 {
			return nil, fmt.Errorf("%s: select %q: %w", t.Name, n, ErrUnknownColumn)
		}
		idx[i] = ix
		schema[i] = t.Schema[ix]
	}

	out := &Table{Name: t.Name, Schema: schema, Rows: make([][]any, len(t.Rows))}
	for r, row := range t.Rows {
		nr := make([]any, len(idx))
		for i, ix := range idx {
			nr[i] = row[ix]
		}
		out.Rows[r] = nr
	}
	return out, nil
}

// Drop removes the named columns. Names that are not present are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	keep := make([]string, 0, len(t.Schema))
	for _, c := range t.Schema {
		if _, ok := drop[c.Name]; !ok {
			keep = append(keep, c.Name)
		}
	}
	if len(keep) == len(t.Schema) {
		return t
	}
	out, _ := t.Select(keep...)
	return out
}

// Rename assigns new column names positionally. The number of names must
// match the number of columns.
func (t *Table) Rename(names ...string) (*Table, error) {
	if len(names) != len(t.Schema) {
		return nil, fmt.Errorf("%s: rename with %d names for %d columns: %w",
			t.Name, len(names), len(t.Schema), ErrSchemaMismatch)
	}
	schema := make(Schema, len(t.Schema))
	for i, c := range t.Schema {
		schema[i] = Column{Name: names[i], Type: c.Type}
	}
	return &Table{Name: t.Name, Schema: schema, Rows: t.Rows}, nil
}

// Union appends the rows of o to the rows of t. Both schemas must be equal.
func (t *Table) Union(o *Table) (*Table, error) {
	if !t.Schema.Equal(o.Schema) {
		return nil, fmt.Errorf("union %s%s with %s%s: %w",
			t.Name, t.Schema, o.Name, o.Schema, ErrSchemaMismatch)
	}
	rows := make([][]any, 0, len(t.Rows)+len(o.Rows))
	rows = append(rows, t.Rows...)
	rows = append(rows, o.Rows...)
	return &Table{Name: t.Name, Schema: t.Schema, Rows: rows}, nil
}

// WithSurrogateID appends an Int64 column holding 0..n-1 in row order.
func (t *Table) WithSurrogateID(name string) (*Table, error) {
	if t.Schema.Index(name) >= 0 {
		return nil, fmt.Errorf("%s: surrogate id %q already exists: %w", t.Name, name, ErrSchemaMismatch)
	}
	schema := append(append(Schema{}, t.Schema...), Column{Name: name, Type: Int64})
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		nr := make([]any, len(row)+1)
		copy(nr, row)
		nr[len(row)] = int64(i)
		rows[i] = nr
	}
	return &Table{Name: t.Name, Schema: schema, Rows: rows}, nil
}

// MapColumn replaces the named column with fn applied to each value. The
// column takes the new type typ.
func (t *Table) MapColumn(name string, typ Type, fn func(v any) (any, error)) (*Table, error) {
	ix := t.Schema.Index(name)
	if ix < 0 {
		return nil, fmt.Errorf("%s: map %q: %w", t.Name, name, ErrUnknownColumn)
	}
	schema := append(Schema{}, t.Schema...)
	schema[ix].Type = typ

	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		v, err := fn(row[ix])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d column %q: %w", t.Name, i+1, name, err)
		}
		nr := append([]any(nil), row...)
		nr[ix] = v
		rows[i] = nr
	}
	return &Table{Name: t.Name, Schema: schema, Rows: rows}, nil
}

// WithColumn appends (or replaces, when the name exists) a column computed
// from each full row.
func (t *Table) WithColumn(name string, typ Type, fn func(row []any) (any, error)) (*Table, error) {
	ix := t.Schema.Index(name)
	schema := append(Schema{}, t.Schema...)
	if ix < 0 {
		schema = append(schema, Column{Name: name, Type: typ})
	} else {
		schema[ix].Type = typ
	}

	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		v, err := fn(row)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d column %q: %w", t.Name, i+1, name, err)
		}
		var nr []any
		if ix < 0 {
			nr = make([]any, len(row)+1)
			copy(nr, row)
			nr[len(row)] = v
		} else {
			nr = append([]any(nil), row...)
			nr[ix] = v
		}
		rows[i] = nr
	}
	return &Table{Name: t.Name, Schema: schema, Rows: rows}, nil
}
