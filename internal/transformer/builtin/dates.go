package builtin

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"i94etl/internal/table"
)

// SASEpoch is day zero of SAS date values.
var SASEpoch = civil.Date{Year: 1960, Month: time.January, Day: 1}

// DateFromSASOffset converts a SAS date value (days since 1960-01-01) to a
// calendar date. Fractional days are floored.
func DateFromSASOffset(days float64) civil.Date {
	return SASEpoch.AddDays(int(math.Floor(days)))
}

// SASOffsetFromDate is the inverse of DateFromSASOffset for whole days.
func SASOffsetFromDate(d civil.Date) float64 {
	return float64(d.DaysSince(SASEpoch))
}

// SASDate converts numeric SAS day-offset columns into Date columns. A NULL
// offset yields a NULL date.
type SASDate struct {
	Columns []string
}

// Apply implements transformer.Transformer.
func (s SASDate) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for _, name := range s.Columns {
		var err error
		out, err = out.MapColumn(name, table.Date, func(v any) (any, error) {
			f, err := ToFloat64(v)
			if err != nil || f == nil {
				return nil, err
			}
			return DateFromSASOffset(f.(float64)), nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DefaultDateLayouts are tried in order by ParseDate.
var DefaultDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// ParseDate parses a string column into a Date and optionally derives Int32
// year and month columns from it. Values that do not parse under any layout
// yield NULL date, year and month; the row is kept.
type ParseDate struct {
	Column      string
	YearColumn  string
	MonthColumn string
	// Layouts defaults to DefaultDateLayouts.
	Layouts []string
}

// Apply implements transformer.Transformer.
func (p ParseDate) Apply(in *table.Table) (*table.Table, error) {
	layouts := p.Layouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	out, err := in.MapColumn(p.Column, table.Date, func(v any) (any, error) {
		switch x := v.(type) {
		case nil:
			return nil, nil
		case civil.Date:
			return x, nil
		case string:
			if d, ok := parseDate(strings.TrimSpace(x), layouts); ok {
				return d, nil
			}
			return nil, nil
		default:
			return nil, fmt.Errorf("%T: %w", v, ErrCoerce)
		}
	})
	if err != nil {
		return nil, err
	}

	ix := out.Schema.Index(p.Column)
	part := func(get func(civil.Date) int32) func([]any) (any, error) {
		return func(row []any) (any, error) {
			d, ok := row[ix].(civil.Date)
			if !ok {
				return nil, nil
			}
			return get(d), nil
		}
	}
	if p.YearColumn != "" {
		if out, err = out.WithColumn(p.YearColumn, table.Int32, part(func(d civil.Date) int32 { return int32(d.Year) })); err != nil {
			return nil, err
		}
	}
	if p.MonthColumn != "" {
		if out, err = out.WithColumn(p.MonthColumn, table.Int32, part(func(d civil.Date) int32 { return int32(d.Month) })); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseDate(s string, layouts []string) (civil.Date, bool) {
	if s == "" {
		return civil.Date{}, false
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}
