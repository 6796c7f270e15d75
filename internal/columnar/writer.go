// Package columnar writes tables as Snappy-compressed Parquet datasets with
// overwrite semantics.
//
// Layout of one written table, relative to the store root:
//
//	<Table>/part-00000-<run>.snappy.parquet            unpartitioned
//	<Table>/<key>=<value>/part-NNNNN-<run>.snappy.parquet  partitioned
//	<Table>/_SUCCESS
//	<Table>/_manifest.yaml
package columnar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"i94etl/internal/objectstore"
	"i94etl/internal/table"
)

// Options configures a Writer.
type Options struct {
	// RunID is embedded in every file name and the manifest.
	RunID string
	// Workers bounds concurrent partition writes. <= 0 uses GOMAXPROCS.
	Workers int
	// StagingDir is where files are produced before Put. Empty uses the OS
	// temp dir.
	StagingDir string
	// RowGroupRows flushes a row group every N rows. <= 0 uses 100000.
	RowGroupRows int
	Logger       *zap.Logger
}

// Writer publishes tables to a Store.
type Writer struct {
	store objectstore.Store
	opt   Options
	log   *zap.Logger
	now   func() time.Time
}

// Result describes one written table.
type Result struct {
	Table      string
	Rows       int
	Files      []string
	Partitions []string
}

// NewWriter returns a Writer publishing to store.
func NewWriter(store objectstore.Store, opt Options) *Writer {
	if opt.Workers <= 0 {
		opt.Workers = runtime.GOMAXPROCS(0)
	}
	if opt.RowGroupRows <= 0 {
		opt.RowGroupRows = 100_000
	}
	lg := opt.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Writer{store: store, opt: opt, log: lg, now: time.Now}
}

// Write replaces the dataset named t.Name with the contents of t. When
// partitionKey is non-empty the rows are split by that String column into
// Hive-style directories and the key column is left out of the files.
func (w *Writer) Write(ctx context.Context, t *table.Table, partitionKey string) (Result, error) {
	start := w.now()
	md, err := metadata(t.Schema)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", t.Name, err)
	}

	var parts []table.Partition
	if partitionKey != "" {
		if parts, err = t.PartitionBy(partitionKey); err != nil {
			return Result{}, err
		}
		key := t.Schema.Index(partitionKey)
		md = append(md[:key:key], md[key+1:]...)
	} else {
		parts = []table.Partition{{Table: t}}
	}

	staging, err := os.MkdirTemp(w.opt.StagingDir, "i94etl-"+t.Name+"-*")
	if err != nil {
		return Result{}, fmt.Errorf("%s: staging dir: %w", t.Name, err)
	}
	defer os.RemoveAll(staging)

	if err := w.store.RemoveAll(ctx, t.Name); err != nil {
		return Result{}, fmt.Errorf("%s: overwrite: %w", t.Name, err)
	}
	w.log.Debug("write: cleared", zap.String("table", t.Name), zap.String("target", w.store.URL(t.Name)))

	res := Result{Table: t.Name, Rows: t.Len(), Files: make([]string, len(parts))}
	if partitionKey != "" {
		res.Partitions = make([]string, len(parts))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opt.Workers)
	for i, p := range parts {
		i, p := i, p
		dir := ""
		if partitionKey != "" {
			dir = PartitionDir(partitionKey, p.Value, p.Null)
			res.Partitions[i] = dir
		}
		name := fmt.Sprintf("part-%05d-%s.snappy.parquet", i, w.opt.RunID)
		key := joinKey(t.Name, dir, name)
		res.Files[i] = joinKey(dir, name)

		g.Go(func() error {
			staged := filepath.Join(staging, fmt.Sprintf("%05d.parquet", i))
			if err := w.writeFile(gctx, staged, md, p.Table); err != nil {
				return fmt.Errorf("%s: %s: %w", t.Name, key, err)
			}
			if err := w.store.Put(gctx, key, staged); err != nil {
				return fmt.Errorf("%s: publish %s: %w", t.Name, key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if err := w.finish(ctx, staging, res, t.Schema, partitionKey, start); err != nil {
		return Result{}, fmt.Errorf("%s: %w", t.Name, err)
	}
	w.log.Info("write: done",
		zap.String("table", t.Name),
		zap.Int("rows", res.Rows),
		zap.Int("files", len(res.Files)),
		zap.Duration("took", w.now().Sub(start)))
	return res, nil
}

// writeFile writes rows to a single local Parquet file.
func (w *Writer) writeFile(ctx context.Context, path string, md []string, t *table.Table) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	pw, err := writer.NewCSVWriter(md, fw, 1)
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range t.Rows {
		if i%w.opt.RowGroupRows == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if i > 0 {
				if err := pw.Flush(true); err != nil {
					return fmt.Errorf("flush at row %d: %w", i, err)
				}
			}
		}
		rec, err := physical(t.Schema, row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("write stop: %w", err)
	}
	return nil
}

func joinKey(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "/"
		}
		out += p
	}
	return out
}
