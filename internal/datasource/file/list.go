// Package file contains helpers for reading local files as datasources:
// recursive discovery of binary extracts, wildcard matching of CSV exports,
// and raw line access to fixed-layout text files.
package file

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadLines reads a text file and returns every line, including blank ones,
// with the line terminator (LF or CRLF) removed.
//
// Unlike a list reader, nothing is skipped: callers that address content by
// line number rely on lines[i] being physical line i+1 of the file.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		out = append(out, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// Discover walks root recursively and returns the absolute paths of all
// regular files whose base name matches pattern (filepath.Match syntax,
// matched case-insensitively). Results are sorted so that repeated runs see
// the same order.
func Discover(root, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("discover pattern %q: %w", pattern, err)
	}
	lower := strings.ToLower(pattern)

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, _ := filepath.Match(lower, strings.ToLower(d.Name()))
		if !ok {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		out = append(out, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

// Glob expands a wildcard path and returns the matching regular files,
// sorted. A pattern that matches nothing is an error, since every caller
// expects at least one input.
func Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	out := matches[:0]
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("glob %q: %w", pattern, fs.ErrNotExist)
	}
	sort.Strings(out)
	return out, nil
}
