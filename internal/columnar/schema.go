package columnar

import (
	"fmt"
	"time"

	"github.com/golang-sql/civil"

	"i94etl/internal/table"
)

var unixEpoch = civil.Date{Year: 1970, Month: time.January, Day: 1}

// metadata renders the parquet-go CSV-writer schema for s. Every column is
// OPTIONAL so nil cells are stored as nulls.
func metadata(s table.Schema) ([]string, error) {
	md := make([]string, len(s))
	for i, c := range s {
		var typ string
		switch c.Type.Kind {
		case table.KindString:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		case table.KindInt32:
			typ = "type=INT32"
		case table.KindInt64:
			typ = "type=INT64"
		case table.KindFloat64:
			typ = "type=DOUBLE"
		case table.KindDate:
			typ = "type=INT32, convertedtype=DATE"
		case table.KindDecimal:
			if c.Type.Precision > 18 {
				return nil, fmt.Errorf("column %q: %s does not fit INT64", c.Name, c.Type)
			}
			typ = fmt.Sprintf("type=INT64, convertedtype=DECIMAL, scale=%d, precision=%d", c.Type.Scale, c.Type.Precision)
		default:
			return nil, fmt.Errorf("column %q: unsupported type %s", c.Name, c.Type)
		}
		md[i] = fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.Name, typ)
	}
	return md, nil
}

// physical converts a row's cells to the Go values parquet-go expects for
// the physical types chosen by metadata.
func physical(s table.Schema, row []any) ([]any, error) {
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		c := s[i]
		ok := true
		switch c.Type.Kind {
		case table.KindString:
			out[i], ok = v.(string)
		case table.KindInt32:
			out[i], ok = v.(int32)
		case table.KindInt64, table.KindDecimal:
			out[i], ok = v.(int64)
		case table.KindFloat64:
			out[i], ok = v.(float64)
		case table.KindDate:
			var d civil.Date
			if d, ok = v.(civil.Date); ok {
				out[i] = int32(d.DaysSince(unixEpoch))
			}
		default:
			ok = false
		}
		if !ok {
			return nil, fmt.Errorf("column %q: %T is not a %s value", c.Name, v, c.Type)
		}
	}
	return out, nil
}
