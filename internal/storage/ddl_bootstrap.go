package storage

import (
	"context"
	"fmt"
	"sync"

	"i94etl/internal/table"
)

// DDLBootstrapper replaces the table named name with an empty one matching
// schema, using backend-specific SQL applied through repo.Exec.
type DDLBootstrapper func(ctx context.Context, repo Repository, name string, schema table.Schema) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// RecreateTable drops and creates name on the backend registered for kind.
func RecreateTable(ctx context.Context, kind string, repo Repository, name string, schema table.Schema) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for warehouse.kind=%q", kind)
	}
	return fn(ctx, repo, name, schema)
}
