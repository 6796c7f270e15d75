package builtin

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"i94etl/internal/table"
)

// Normalize trims every string cell and repairs the common "\u00c2\u00a0" mojibake
// left behind when a Latin-1 non-breaking space is decoded as UTF-8. Cells
// that end up empty become NULL.
type Normalize struct{}

// Apply implements transformer.Transformer.
func (Normalize) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for _, col := range in.Schema {
		if col.Type != table.String {
			continue
		}
		var err error
		out, err = out.MapColumn(col.Name, table.String, func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return v, nil
			}
			s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "\u00c2\u00a0", " "), "\u00a0", " "))
			if s == "" {
				return nil, nil
			}
			return s, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Upper uppercases the named string columns.
//
// Case mapping is locale-independent (language.Und) and runs on the NFC form
// of the input, so Upper is idempotent: Upper(Upper(x)) == Upper(x).
type Upper struct {
	Columns []string
}

// Apply implements transformer.Transformer.
func (u Upper) Apply(in *table.Table) (*table.Table, error) {
	caser := cases.Upper(language.Und)
	out := in
	for _, name := range u.Columns {
		col, ok := in.Schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("upper %s.%s: %w", in.Name, name, table.ErrUnknownColumn)
		}
		if col.Type != table.String {
			return nil, fmt.Errorf("upper %s.%s: type %s: %w", in.Name, name, col.Type, table.ErrSchemaMismatch)
		}
		var err error
		out, err = out.MapColumn(name, table.String, func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return v, nil
			}
			return upperString(caser, s), nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func upperString(c cases.Caser, s string) string {
	return c.String(norm.NFC.String(s))
}
