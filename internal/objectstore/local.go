package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local stores objects as files below a root directory.
type Local struct{ root string }

// NewLocal returns a Local store rooted at root. The directory is created
// lazily by Put.
func NewLocal(root string) *Local { return &Local{root: root} }

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// RemoveAll removes the directory or file at prefix.
func (l *Local) RemoveAll(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if join(prefix) == "" {
		return fmt.Errorf("local store: refusing to remove the output root")
	}
	if err := os.RemoveAll(l.path(prefix)); err != nil {
		return fmt.Errorf("remove %s: %w", l.path(prefix), err)
	}
	return nil
}

// Put moves localPath to key, copying when a rename is not possible
// (e.g. across filesystems). The source file is gone afterwards either way.
func (l *Local) Put(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(dst), err)
	}
	if err := os.Rename(localPath, dst); err == nil {
		return nil
	}
	if err := copyFile(localPath, dst); err != nil {
		return err
	}
	return os.Remove(localPath)
}

// URL returns the filesystem path of key.
func (l *Local) URL(key string) string { return l.path(key) }

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Close()
}
