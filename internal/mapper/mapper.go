// Package mapper holds the four batch mappers that turn the raw i94 sources
// into the star schema:
//
//	Demographics -> Populations, Population_Statistics   (partitioned by state)
//	Temperature  -> Temperatures, Temperature_Statistics
//	Labels       -> Countries, States, Ports, Visas
//	Immigration  -> Immigrations (partitioned by state_code), Immigrants, Airports
//
// Each mapper reads its source, applies a transformer.Chain per output table
// and hands the result to the Session, which writes it with overwrite
// semantics. Mappers share nothing but the read-only Session.
package mapper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"i94etl/internal/columnar"
	"i94etl/internal/config"
	"i94etl/internal/metrics"
	"i94etl/internal/table"
)

// Mapper is one self-contained transform from a source to output tables.
type Mapper interface {
	Name() string
	Run(ctx context.Context, s *Session) error
}

// TableWriter persists a table, replacing any previous version.
type TableWriter interface {
	Write(ctx context.Context, t *table.Table, partitionKey string) (columnar.Result, error)
}

// TableLoader mirrors a table into a secondary store.
type TableLoader interface {
	Load(ctx context.Context, t *table.Table) (int64, error)
}

// Session is the shared execution context of one run. Mappers must treat it
// as read-only.
type Session struct {
	Job    config.Job
	Log    *zap.Logger
	Writer TableWriter
	// Warehouse is optional.
	Warehouse TableLoader
	RunID     string
}

// All returns the mappers in their fixed run order.
func All() []Mapper {
	return []Mapper{Demographics{}, Temperature{}, Labels{}, Immigration{}}
}

// Emit writes t and, when a warehouse is configured, loads it there too.
func (s *Session) Emit(ctx context.Context, t *table.Table, partitionKey string) error {
	res, err := s.Writer.Write(ctx, t, partitionKey)
	if err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	metrics.RecordRow(s.Job.Job, t.Name, int64(res.Rows))

	if s.Warehouse == nil {
		return nil
	}
	n, err := s.Warehouse.Load(ctx, t)
	if err != nil {
		return fmt.Errorf("warehouse %s: %w", t.Name, err)
	}
	metrics.RecordWarehouseRows(s.Job.Job, t.Name, n)
	s.logger().Debug("warehouse: loaded", zap.String("table", t.Name), zap.Int64("rows", n))
	return nil
}

func (s *Session) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// requireColumns fails with ErrSchemaMismatch when t lacks any of cols.
func requireColumns(t *table.Table, source string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if t.Schema.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns [%s]: %w", source, strings.Join(missing, ", "), table.ErrSchemaMismatch)
	}
	return nil
}
