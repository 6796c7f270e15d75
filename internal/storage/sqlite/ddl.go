package sqlite

import (
	"context"
	"fmt"
	"strings"

	"i94etl/internal/storage"
	"i94etl/internal/table"
)

// MapType returns the SQLite column affinity for a logical type.
func MapType(t table.Type) string {
	switch t.Kind {
	case table.KindInt32, table.KindInt64:
		return "INTEGER"
	case table.KindFloat64:
		return "REAL"
	case table.KindDecimal:
		if t.Scale == 0 {
			return "INTEGER"
		}
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders CREATE TABLE for schema.
func CreateTableSQL(name string, s table.Schema) string {
	cols := make([]string, len(s))
	for i, c := range s {
		cols[i] = fmt.Sprintf("%s %s", sqlIdent(c.Name), MapType(c.Type))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", sqlIdent(name), strings.Join(cols, ",\n  "))
}

// RecreateTable drops name if present and creates it from schema.
func RecreateTable(ctx context.Context, repo storage.Repository, name string, s table.Schema) error {
	if err := repo.Exec(ctx, "DROP TABLE IF EXISTS "+sqlIdent(name)); err != nil {
		return err
	}
	return repo.Exec(ctx, CreateTableSQL(name, s))
}
