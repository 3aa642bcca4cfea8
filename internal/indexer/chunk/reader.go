package chunk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pierrec/xxHash/xxHash32"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/partition"
)

// Chunk is one loaded chunk file.
type Chunk struct {
	Key      partition.Key
	Path     string
	Postings map[string][]string
	Size     int64
	Checksum string
}

// Load reads and parses a chunk file.
func Load(path string) (*Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk file: %w", err)
	}
	var postings map[string][]string
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("parsing chunk %s: %w", path, err)
	}
	key, _ := KeyOf(filepath.Base(path))
	return &Chunk{
		Key:      key,
		Path:     path,
		Postings: postings,
		Size:     int64(len(data)),
		Checksum: strconv.FormatUint(uint64(xxHash32.Checksum(data, checksumSeed)), 16),
	}, nil
}

// Search returns the posting list of term, or nil.
func (c *Chunk) Search(term string) []string {
	return c.Postings[term]
}

// Terms returns the number of terms in the chunk.
func (c *Chunk) Terms() int {
	return len(c.Postings)
}

// KeyOf extracts the bucket key from a chunk file name. It reports false for
// names that are not chunk files, the manifest included.
func KeyOf(name string) (partition.Key, bool) {
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExt) {
		return "", false
	}
	key := partition.Key(strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileExt))
	if !key.Valid() {
		return "", false
	}
	return key, true
}

// List returns the chunk file names present in dir, sorted.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chunk directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := KeyOf(entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAll deletes every chunk file (and leftover .tmp file) in dir.
func RemoveAll(dir string) (int, error) {
	names, err := List(dir)
	if err != nil {
		return 0, err
	}
	tmps, _ := filepath.Glob(filepath.Join(dir, FilePrefix+"*"+FileExt+".tmp"))
	removed := 0
	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing chunk %s: %w", name, err)
		}
		removed++
	}
	for _, tmp := range tmps {
		os.Remove(tmp)
	}
	return removed, nil
}
