// Package chunk writes and reads index chunks: one compact JSON file per
// partition bucket mapping each surviving token to its sorted posting list.
package chunk

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pierrec/xxHash/xxHash32"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/partition"
)

const (
	FilePrefix   = "search_index_"
	FileExt      = ".json"
	checksumSeed = 0
)

// Descriptor describes one written chunk file. It is the per-chunk entry of
// the manifest.
type Descriptor struct {
	Key       partition.Key `json:"key"`
	Filename  string        `json:"filename"`
	WordCount int           `json:"wordCount"`
	SizeMB    float64       `json:"sizeMB"`
	SizeBytes int64         `json:"sizeBytes"`
	Checksum  string        `json:"checksum"`
}

// Filename returns the chunk file name of bucket key.
func Filename(key partition.Key) string {
	return FilePrefix + string(key) + FileExt
}

// SizeMB converts a byte count to mebibytes rounded to two decimals.
func SizeMB(size int64) float64 {
	return math.Round(float64(size)/(1024*1024)*100) / 100
}

// Writer serialises a bucket's term entries into a chunk file.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes chunks into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates the chunk file for key. Entries must be sorted by
// term; the file is one compact JSON object mapping each term to its posting
// list. It writes to a .tmp file first and renames on success.
func (w *Writer) Write(key partition.Key, entries []index.TermEntry) (Descriptor, error) {
	if len(entries) == 0 {
		return Descriptor{}, fmt.Errorf("cannot write empty chunk for bucket %s", key)
	}
	name := Filename(key)
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return Descriptor{}, fmt.Errorf("creating chunk directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return Descriptor{}, fmt.Errorf("creating temp chunk file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	hasher := xxHash32.New(checksumSeed)
	counter := &countingWriter{}
	bw := bufio.NewWriter(io.MultiWriter(f, hasher, counter))
	if err := encode(bw, entries); err != nil {
		return Descriptor{}, fmt.Errorf("encoding chunk %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		return Descriptor{}, fmt.Errorf("writing chunk %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		return Descriptor{}, fmt.Errorf("syncing chunk file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Descriptor{}, fmt.Errorf("closing chunk file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return Descriptor{}, fmt.Errorf("renaming chunk file: %w", err)
	}
	return Descriptor{
		Key:       key,
		Filename:  name,
		WordCount: len(entries),
		SizeMB:    SizeMB(counter.n),
		SizeBytes: counter.n,
		Checksum:  strconv.FormatUint(uint64(hasher.Sum32()), 16),
	}, nil
}

func encode(w *bufio.Writer, entries []index.TermEntry) error {
	if err := w.WriteByte('{'); err != nil {
		return err
	}
	for i, entry := range entries {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		key, err := marshal(entry.Term)
		if err != nil {
			return fmt.Errorf("marshaling term %q: %w", entry.Term, err)
		}
		postings := entry.Postings
		if postings == nil {
			postings = index.PostingList{}
		}
		value, err := marshal(postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		w.Write(key)
		w.WriteByte(':')
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return w.WriteByte('}')
}

// marshal is json.Marshal without HTML escaping and without the trailing
// newline the Encoder appends.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
