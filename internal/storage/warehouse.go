package storage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"i94etl/internal/table"
)

// DefaultBatchSize is used when a Warehouse is built with batchSize <= 0.
const DefaultBatchSize = 5000

// Warehouse mirrors written tables into a SQL database with overwrite
// semantics: every Load drops and recreates the target table.
type Warehouse struct {
	kind      string
	dsn       string
	batchSize int
}

// NewWarehouse returns a Warehouse for a registered backend kind.
func NewWarehouse(kind, dsn string, batchSize int) (*Warehouse, error) {
	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unsupported warehouse.kind=%s (registered: %v)", kind, ListKinds())
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Warehouse{kind: kind, dsn: dsn, batchSize: batchSize}, nil
}

// Kind returns the backend kind.
func (w *Warehouse) Kind() string { return w.kind }

// Load replaces the SQL table t.Name with the rows of t.
func (w *Warehouse) Load(ctx context.Context, t *table.Table) (int64, error) {
	cols := t.Schema.Names()
	repo, err := New(ctx, Config{Kind: w.kind, DSN: w.dsn, Table: t.Name, Columns: cols})
	if err != nil {
		return 0, fmt.Errorf("warehouse %s: %w", t.Name, err)
	}
	defer repo.Close()

	if err := RecreateTable(ctx, w.kind, repo, t.Name, t.Schema); err != nil {
		return 0, fmt.Errorf("warehouse %s: ddl: %w", t.Name, err)
	}

	in := make(chan []any, w.batchSize)
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(in)
		for _, row := range t.Rows {
			select {
			case in <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		n, err := LoadBatches(gctx, cols, in, w.batchSize, repo.CopyFrom)
		total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return total, fmt.Errorf("warehouse %s: load: %w", t.Name, err)
	}
	return total, nil
}
