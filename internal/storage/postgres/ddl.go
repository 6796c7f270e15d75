package postgres

import (
	"context"
	"fmt"
	"strings"

	"i94etl/internal/storage"
	"i94etl/internal/table"
)

// MapType returns the Postgres column type for a logical type.
func MapType(t table.Type) string {
	switch t.Kind {
	case table.KindInt32:
		return "INTEGER"
	case table.KindInt64:
		return "BIGINT"
	case table.KindFloat64:
		return "DOUBLE PRECISION"
	case table.KindDate:
		return "DATE"
	case table.KindDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders CREATE TABLE for schema.
func CreateTableSQL(name string, s table.Schema) string {
	cols := make([]string, len(s))
	for i, c := range s {
		cols[i] = fmt.Sprintf("%s %s", pgIdent(c.Name), MapType(c.Type))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", pgFQN(name), strings.Join(cols, ",\n  "))
}

// RecreateTable drops name if present and creates it from schema.
func RecreateTable(ctx context.Context, repo storage.Repository, name string, s table.Schema) error {
	if err := repo.Exec(ctx, "DROP TABLE IF EXISTS "+pgFQN(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if err := repo.Exec(ctx, CreateTableSQL(name, s)); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	return nil
}
