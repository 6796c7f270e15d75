// Package transformer defines the table-to-table transformation contract used
// by every mapper. A mapper is mostly an ordered Chain of small steps
// (select, cast, uppercase, deduplicate, rename) applied to a source table.
package transformer

import (
	"fmt"

	"i94etl/internal/table"
)

// Transformer converts one table into another. Implementations must not
// mutate the input table.
type Transformer interface {
	Apply(in *table.Table) (*table.Table, error)
}

// Func adapts an ordinary function to the Transformer interface.
type Func func(in *table.Table) (*table.Table, error)

// Apply implements Transformer.
func (f Func) Apply(in *table.Table) (*table.Table, error) { return f(in) }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs each step in order, feeding the output of one into the next.
// The first failing step aborts the chain.
func (c Chain) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for i, t := range c {
		next, err := t.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("step %d (%T): %w", i, t, err)
		}
		out = next
	}
	return out, nil
}
