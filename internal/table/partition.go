package table

import (
	"fmt"
)

// Partition is the subset of a table sharing one value of the partition key.
// The key column itself is removed from Rows and Schema.
type Partition struct {
	// Value is the key value; meaningless when Null is set.
	Value string
	// Null is set for rows whose key is nil or the empty string.
	Null bool
	Table *Table
}

// PartitionBy groups rows by the string value of the named String column.
// Partitions are returned in first-seen order; every distinct key value in
// the input yields exactly one partition.
func (t *Table) PartitionBy(key string) ([]Partition, error) {
	ix := t.Schema.Index(key)
	if ix < 0 {
		return nil, fmt.Errorf("%s: partition by %q: %w", t.Name, key, ErrUnknownColumn)
	}
	if t.Schema[ix].Type != String {
		return nil, fmt.Errorf("%s: partition key %q has type %s, want string: %w",
			t.Name, key, t.Schema[ix].Type, ErrSchemaMismatch)
	}

	schema := make(Schema, 0, len(t.Schema)-1)
	schema = append(schema, t.Schema[:ix]...)
	schema = append(schema, t.Schema[ix+1:]...)

	type slot struct {
		pos  int
		rows [][]any
	}
	var (
		order  []Partition
		groups = map[string]*slot{}
		null   *slot
	)

	for _, row := range t.Rows {
		rest := make([]any, 0, len(row)-1)
		rest = append(rest, row[:ix]...)
		rest = append(rest, row[ix+1:]...)

		s, _ := row[ix].(string)
		if s == "" {
			if null == nil {
				null = &slot{pos: len(order)}
				order = append(order, Partition{Null: true})
			}
			null.rows = append(null.rows, rest)
			continue
		}
		g, ok := groups[s]
		if !ok {
			g = &slot{pos: len(order)}
			groups[s] = g
			order = append(order, Partition{Value: s})
		}
		g.rows = append(g.rows, rest)
	}

	for _, g := range groups {
		order[g.pos].Table = &Table{Name: t.Name, Schema: schema, Rows: g.rows}
	}
	if null != nil {
		order[null.pos].Table = &Table{Name: t.Name, Schema: schema, Rows: null.rows}
	}
	return order, nil
}
