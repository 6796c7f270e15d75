// Package etl wires a validated job into a mapper.Session and runs the
// mappers in order.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"i94etl/internal/columnar"
	"i94etl/internal/config"
	"i94etl/internal/mapper"
	"i94etl/internal/metrics"
	"i94etl/internal/objectstore"
	"i94etl/internal/storage"
)

// NewSession opens the output store and, when configured, the SQL
// warehouse. Storage backends must already be registered (import
// internal/storage/all).
func NewSession(ctx context.Context, cfg config.Job, log *zap.Logger) (*mapper.Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := objectstore.Open(cfg.Output.Root, objectstore.S3Options{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
		Endpoint:        cfg.AWS.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("output %s: %w", cfg.Output.Root, err)
	}

	runID := uuid.NewString()
	s := &mapper.Session{
		Job: cfg,
		Log: log,
		Writer: columnar.NewWriter(store, columnar.Options{
			RunID:        runID,
			Workers:      cfg.Runtime.WriteWorkers,
			StagingDir:   cfg.Output.StagingDir,
			RowGroupRows: cfg.Output.RowGroupRows,
			Logger:       log,
		}),
		RunID: runID,
	}

	if cfg.Warehouse.Kind != "" {
		wh, err := storage.NewWarehouse(cfg.Warehouse.Kind, cfg.Warehouse.DSN, cfg.Warehouse.BatchSize)
		if err != nil {
			return nil, err
		}
		s.Warehouse = wh
		log.Info("etl: warehouse", zap.String("kind", wh.Kind()), zap.Int("batch_size", cfg.Warehouse.BatchSize))
	}
	log.Info("etl: session",
		zap.String("job", cfg.Job),
		zap.String("run_id", runID),
		zap.String("output", cfg.Output.Root),
	)
	return s, nil
}

// Run executes ms in order and stops at the first failure. Tables written
// by earlier mappers are left in place.
func Run(ctx context.Context, s *mapper.Session, ms ...mapper.Mapper) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	for _, m := range ms {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		log.Info("etl: mapper start", zap.String("mapper", m.Name()))
		err := m.Run(ctx, s)
		d := time.Since(start)
		metrics.RecordStep(s.Job.Job, m.Name(), err, d)
		if err != nil {
			log.Error("etl: mapper failed", zap.String("mapper", m.Name()), zap.Duration("took", d), zap.Error(err))
			return fmt.Errorf("%s: %w", m.Name(), err)
		}
		log.Info("etl: mapper done", zap.String("mapper", m.Name()), zap.Duration("took", d))
	}
	return nil
}
