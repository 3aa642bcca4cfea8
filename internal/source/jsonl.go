package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const maxRecordSize = 16 * 1024 * 1024

// JSONL reads newline-delimited JSON files matched by glob patterns. Files
// are read in sorted path order, lines in file order. Blank lines are
// skipped.
type JSONL struct {
	patterns []string
	logger   *slog.Logger
}

func NewJSONL(patterns ...string) *JSONL {
	return &JSONL{
		patterns: patterns,
		logger:   slog.Default().With("component", "jsonl-source"),
	}
}

// Files resolves the patterns to a sorted, duplicate-free file list.
func (j *JSONL) Files() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range j.patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (j *JSONL) Each(ctx context.Context, fn func(raw []byte) error) error {
	files, err := j.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		j.logger.Warn("no input files matched", "patterns", j.patterns)
	}
	for _, path := range files {
		n, err := j.readFile(ctx, path, fn)
		if err != nil {
			return err
		}
		j.logger.Info("input file read", "path", path, "lines", n)
	}
	return nil
}

func (j *JSONL) readFile(ctx context.Context, path string, fn func(raw []byte) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)
	n := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		n++
		raw := make([]byte, len(line))
		copy(raw, line)
		if err := fn(raw); err != nil {
			return n, err
		}
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading %s: %w", path, err)
	}
	return n, nil
}

func (j *JSONL) Close() error {
	return nil
}
