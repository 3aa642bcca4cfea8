// Package manifest describes a completed index: the set of chunk files, their
// sizes and checksums, and corpus-wide totals. The manifest is the last file a
// build writes; its presence marks the index as complete.
package manifest

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/chunk"
	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

const (
	Filename = "search_index_manifest.json"
	Version  = "1.0"
)

type Manifest struct {
	Version     string             `json:"version"`
	Chunked     bool               `json:"chunked"`
	TotalWords  int                `json:"totalWords"`
	TotalChunks int                `json:"totalChunks"`
	TotalSizeMB float64            `json:"totalSizeMB"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Chunks      []chunk.Descriptor `json:"chunks"`
}

// Build assembles a manifest from chunk descriptors, sorted by key.
func Build(descriptors []chunk.Descriptor, now time.Time) *Manifest {
	chunks := make([]chunk.Descriptor, len(descriptors))
	copy(chunks, descriptors)
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Key < chunks[j].Key
	})
	m := &Manifest{
		Version:     Version,
		Chunked:     true,
		TotalChunks: len(chunks),
		GeneratedAt: now.UTC(),
		Chunks:      chunks,
	}
	var bytes int64
	for _, c := range chunks {
		m.TotalWords += c.WordCount
		bytes += c.SizeBytes
	}
	m.TotalSizeMB = chunk.SizeMB(bytes)
	return m
}

// Path returns the manifest path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, Filename)
}

// Write persists m atomically. On failure no manifest is left in dir.
func Write(dir string, m *Manifest) error {
	path := Path(dir)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperrors.NewBucket(apperrors.ErrManifestWrite, apperrors.StageManifest, "", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return apperrors.NewBucket(apperrors.ErrManifestWrite, apperrors.StageManifest, "", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewBucket(apperrors.ErrManifestWrite, apperrors.StageManifest, "", path, err)
	}
	return nil
}

// Load reads the manifest in dir.
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// Remove deletes the manifest in dir, if any.
func Remove(dir string) error {
	path := Path(dir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewBucket(apperrors.ErrManifestWrite, apperrors.StagePrepare, "", path, err)
	}
	os.Remove(path + ".tmp")
	return nil
}

// Verify checks that the manifest in dir is consistent with itself and with
// the chunk files on disk. Every problem found is reported; the returned
// error wraps ErrIncompleteIndex.
func Verify(dir string) (*Manifest, error) {
	m, err := Load(dir)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIncompleteIndex, "%v", err)
	}
	var problems []string
	var words int
	var bytes int64
	listed := make(map[string]bool, len(m.Chunks))
	for _, c := range m.Chunks {
		words += c.WordCount
		bytes += c.SizeBytes
		listed[c.Filename] = true
		if c.Filename != chunk.Filename(c.Key) {
			problems = append(problems, fmt.Sprintf("chunk %s has filename %s", c.Key, c.Filename))
		}
		info, err := os.Stat(filepath.Join(dir, c.Filename))
		if err != nil {
			problems = append(problems, fmt.Sprintf("chunk %s: %v", c.Filename, err))
			continue
		}
		if info.Size() != c.SizeBytes {
			problems = append(problems, fmt.Sprintf("chunk %s is %d bytes, manifest says %d", c.Filename, info.Size(), c.SizeBytes))
		}
	}
	if words != m.TotalWords {
		problems = append(problems, fmt.Sprintf("totalWords %d, chunks sum to %d", m.TotalWords, words))
	}
	if len(m.Chunks) != m.TotalChunks {
		problems = append(problems, fmt.Sprintf("totalChunks %d, %d chunks listed", m.TotalChunks, len(m.Chunks)))
	}
	if math.Abs(chunk.SizeMB(bytes)-m.TotalSizeMB) > 0.005 {
		problems = append(problems, fmt.Sprintf("totalSizeMB %.2f, chunks sum to %.2f", m.TotalSizeMB, chunk.SizeMB(bytes)))
	}
	names, err := chunk.List(dir)
	if err != nil {
		return m, apperrors.Newf(apperrors.ErrIncompleteIndex, "%v", err)
	}
	for _, name := range names {
		if !listed[name] {
			problems = append(problems, fmt.Sprintf("orphan chunk %s", name))
		}
	}
	if len(problems) > 0 {
		return m, apperrors.Newf(apperrors.ErrIncompleteIndex, "%d problem(s): %v", len(problems), problems)
	}
	return m, nil
}
