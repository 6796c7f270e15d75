// Package builtin contains the reusable transformation steps the mappers are
// assembled from.
package builtin

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"i94etl/internal/table"
)

// ErrCoerce reports a non-empty value that cannot be converted to the
// declared column type.
var ErrCoerce = errors.New("value not coercible")

// Coerce casts columns to declared types.
//
// Empty strings and NaN become NULL. Numeric sources (float64 from SAS files,
// strings from CSV files) are accepted for every numeric target; float to
// integer casts truncate toward zero, decimal casts round to the declared
// scale. Any other non-empty value that does not parse is an error.
type Coerce struct {
	// Types maps column name -> target type. Column order is irrelevant;
	// steps are applied in schema order for deterministic error reporting.
	Types map[string]table.Type
}

// Apply implements transformer.Transformer.
func (c Coerce) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for _, col := range in.Schema {
		typ, ok := c.Types[col.Name]
		if !ok {
			continue
		}
		fn, err := Caster(typ)
		if err != nil {
			return nil, fmt.Errorf("coerce %q: %w", col.Name, err)
		}
		if out, err = out.MapColumn(col.Name, typ, fn); err != nil {
			return nil, err
		}
	}
	for name := range c.Types {
		if in.Schema.Index(name) < 0 {
			return nil, fmt.Errorf("coerce %s.%s: %w", in.Name, name, table.ErrUnknownColumn)
		}
	}
	return out, nil
}

// Caster returns the value conversion function for typ.
func Caster(typ table.Type) (func(any) (any, error), error) {
	switch typ.Kind {
	case table.KindInt32:
		return ToInt32, nil
	case table.KindInt64:
		return ToInt64, nil
	case table.KindFloat64:
		return ToFloat64, nil
	case table.KindString:
		return ToString, nil
	case table.KindDecimal:
		return func(v any) (any, error) { return ToDecimal(v, typ.Precision, typ.Scale) }, nil
	default:
		return nil, fmt.Errorf("no caster for type %s", typ)
	}
}

// ToInt32 converts v to int32 or nil.
func ToInt32(v any) (any, error) {
	n, ok, err := toInt(v, math.MinInt32, math.MaxInt32)
	if err != nil || !ok {
		return nil, err
	}
	return int32(n), nil
}

// ToInt64 converts v to int64 or nil.
func ToInt64(v any) (any, error) {
	n, ok, err := toInt(v, math.MinInt64, math.MaxInt64)
	if err != nil || !ok {
		return nil, err
	}
	return n, nil
}

func toInt(v any, lo, hi int64) (int64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int32:
		return int64(x), true, nil
	case int64:
		if x < lo || x > hi {
			return 0, false, fmt.Errorf("%d out of range: %w", x, ErrCoerce)
		}
		return x, true, nil
	case float64:
		return truncFloat(x, lo, hi)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			if n < lo || n > hi {
				return 0, false, fmt.Errorf("%q out of range: %w", x, ErrCoerce)
			}
			return n, true, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q: %w", x, ErrCoerce)
		}
		return truncFloat(f, lo, hi)
	default:
		return 0, false, fmt.Errorf("%T: %w", v, ErrCoerce)
	}
}

func truncFloat(f float64, lo, hi int64) (int64, bool, error) {
	if math.IsNaN(f) {
		return 0, false, nil
	}
	t := math.Trunc(f)
	if t < float64(lo) || t > float64(hi) {
		return 0, false, fmt.Errorf("%v out of range: %w", f, ErrCoerce)
	}
	return int64(t), true, nil
}

// ToFloat64 converts v to float64 or nil.
func ToFloat64(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if math.IsNaN(x) {
			return nil, nil
		}
		return x, nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", x, ErrCoerce)
		}
		if math.IsNaN(f) {
			return nil, nil
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%T: %w", v, ErrCoerce)
	}
}

// ToDecimal converts v to the unscaled int64 representation of a
// decimal(precision, scale) value, or nil.
func ToDecimal(v any, precision, scale int) (any, error) {
	f, err := ToFloat64(v)
	if err != nil || f == nil {
		return nil, err
	}
	unscaled := math.Round(f.(float64) * math.Pow10(scale))
	if math.Abs(unscaled) >= math.Pow10(precision) {
		return nil, fmt.Errorf("%v exceeds decimal(%d,%d): %w", v, precision, scale, ErrCoerce)
	}
	return int64(unscaled), nil
}

// ToString converts v to a string or nil. Empty strings stay empty.
func ToString(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case float64:
		if math.IsNaN(x) {
			return nil, nil
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return fmt.Sprint(x), nil
	}
}
