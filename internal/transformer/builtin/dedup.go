package builtin

import (
	"i94etl/internal/table"
)

// Select projects a fixed column subset, in order.
type Select struct {
	Columns []string
}

// Apply implements transformer.Transformer.
func (s Select) Apply(in *table.Table) (*table.Table, error) {
	return in.Select(s.Columns...)
}

// DropColumns removes columns if present.
type DropColumns struct {
	Columns []string
}

// Apply implements transformer.Transformer.
func (d DropColumns) Apply(in *table.Table) (*table.Table, error) {
	return in.Drop(d.Columns...), nil
}

// Distinct removes exact duplicate rows, keeping the first occurrence.
// Running it twice yields the same rows as running it once.
type Distinct struct{}

// Apply implements transformer.Transformer.
func (Distinct) Apply(in *table.Table) (*table.Table, error) {
	return in.Distinct(), nil
}

// SurrogateID appends a run-local Int64 id column, unique within the table.
type SurrogateID struct {
	Name string
}

// Apply implements transformer.Transformer.
func (s SurrogateID) Apply(in *table.Table) (*table.Table, error) {
	return in.WithSurrogateID(s.Name)
}

// Rename assigns business column names positionally.
type Rename struct {
	Names []string
}

// Apply implements transformer.Transformer.
func (r Rename) Apply(in *table.Table) (*table.Table, error) {
	return in.Rename(r.Names...)
}

// Named sets the output table name.
type Named string

// Apply implements transformer.Transformer.
func (n Named) Apply(in *table.Table) (*table.Table, error) {
	return in.Named(string(n)), nil
}
