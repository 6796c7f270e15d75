package columnar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"i94etl/internal/table"
)

const (
	// SuccessFile marks a completely written dataset.
	SuccessFile = "_SUCCESS"
	// ManifestFile describes the dataset's schema and files.
	ManifestFile = "_manifest.yaml"
	// DefaultPartition is the directory value used for null or empty keys.
	DefaultPartition = "__HIVE_DEFAULT_PARTITION__"
)

// Manifest is the YAML document written next to every dataset.
type Manifest struct {
	Table        string           `yaml:"table"`
	RunID        string           `yaml:"run_id"`
	WrittenAt    time.Time        `yaml:"written_at"`
	Rows         int              `yaml:"rows"`
	PartitionKey string           `yaml:"partition_key,omitempty"`
	Columns      []ManifestColumn `yaml:"columns"`
	Partitions   []string         `yaml:"partitions,omitempty"`
	Files        []string         `yaml:"files"`
}

// ManifestColumn is one schema entry of a Manifest.
type ManifestColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// finish publishes the manifest and then the success marker.
func (w *Writer) finish(ctx context.Context, staging string, res Result, s table.Schema, partitionKey string, start time.Time) error {
	m := Manifest{
		Table:        res.Table,
		RunID:        w.opt.RunID,
		WrittenAt:    start.UTC(),
		Rows:         res.Rows,
		PartitionKey: partitionKey,
		Partitions:   res.Partitions,
		Files:        res.Files,
	}
	for _, c := range s {
		m.Columns = append(m.Columns, ManifestColumn{Name: c.Name, Type: c.Type.String()})
	}
	b, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	mp := filepath.Join(staging, ManifestFile)
	if err := os.WriteFile(mp, b, 0o644); err != nil {
		return err
	}
	if err := w.store.Put(ctx, joinKey(res.Table, ManifestFile), mp); err != nil {
		return fmt.Errorf("publish manifest: %w", err)
	}

	sp := filepath.Join(staging, SuccessFile)
	if err := os.WriteFile(sp, nil, 0o644); err != nil {
		return err
	}
	if err := w.store.Put(ctx, joinKey(res.Table, SuccessFile), sp); err != nil {
		return fmt.Errorf("publish success marker: %w", err)
	}
	return nil
}

// PartitionDir renders a Hive partition directory name. Characters that are
// unsafe in paths are %XX-escaped the way Hive and Spark do it.
func PartitionDir(key, value string, null bool) string {
	if null || value == "" {
		return key + "=" + DefaultPartition
	}
	return escapePathName(key) + "=" + escapePathName(value)
}

func escapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}
