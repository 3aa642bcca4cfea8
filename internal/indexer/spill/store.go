// Package spill implements the transient, append-only per-bucket storage that
// holds unaggregated postings between the partition and merge phases.
//
// Format: one posting per line, "<token>\t<docID>\n", UTF-8. Neither field
// may contain a tab or a newline. Line order carries no meaning.
package spill

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/partition"
	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

const (
	FileExt           = ".tsv"
	DefaultBufferSize = 64 * 1024
	maxLineSize       = 1024 * 1024
)

// Bucket describes one bucket's spill file after the store is closed.
type Bucket struct {
	Key      partition.Key
	Path     string
	Postings int64
}

type bucketFile struct {
	f        *os.File
	w        *bufio.Writer
	path     string
	postings int64
}

// Store owns every spill file handle. It is not safe for concurrent use:
// exactly one goroutine (the build coordinator) appends to it.
type Store struct {
	dir      string
	bufSize  int
	files    map[partition.Key]*bucketFile
	postings int64
	bytes    int64
	closed   bool
	logger   *slog.Logger
}

// Create prepares an empty spill directory, discarding leftovers from an
// interrupted run.
func Create(dir string, bufSize int) (*Store, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StagePrepare, "", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StagePrepare, "", dir, err)
	}
	return &Store{
		dir:     dir,
		bufSize: bufSize,
		files:   make(map[partition.Key]*bucketFile),
		logger:  slog.Default().With("component", "spill-store", "dir", dir),
	}, nil
}

// Dir returns the spill directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the spill file path of key.
func (s *Store) Path(key partition.Key) string {
	return filepath.Join(s.dir, string(key)+FileExt)
}

// Append writes one posting to key's spill file.
func (s *Store) Append(key partition.Key, token, docID string) error {
	if s.closed {
		return apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StagePartition, string(key), s.Path(key),
			fmt.Errorf("append after close"))
	}
	if strings.ContainsAny(token, "\t\n") || strings.ContainsAny(docID, "\t\n") || token == "" || docID == "" {
		return apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StagePartition, string(key), s.Path(key),
			fmt.Errorf("posting (%q, %q) violates spill line format", token, docID))
	}
	bf, err := s.open(key)
	if err != nil {
		return err
	}
	n, err := bf.w.WriteString(token)
	if err == nil {
		err = bf.w.WriteByte('\t')
	}
	if err == nil {
		var m int
		m, err = bf.w.WriteString(docID)
		n += m
	}
	if err == nil {
		err = bf.w.WriteByte('\n')
	}
	if err != nil {
		return apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StagePartition, string(key), bf.path, err)
	}
	bf.postings++
	s.postings++
	s.bytes += int64(n + 2)
	return nil
}

// AppendAll writes one posting per token, all for the same document.
func (s *Store) AppendAll(key partition.Key, tokens []string, docID string) error {
	for _, tok := range tokens {
		if err := s.Append(key, tok, docID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) open(key partition.Key) (*bucketFile, error) {
	if bf, ok := s.files[key]; ok {
		return bf, nil
	}
	path := s.Path(key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StagePartition, string(key), path, err)
	}
	bf := &bucketFile{
		f:    f,
		w:    bufio.NewWriterSize(f, s.bufSize),
		path: path,
	}
	s.files[key] = bf
	s.logger.Debug("spill file opened", "bucket", key, "path", path)
	return bf, nil
}

// Close flushes and closes every spill file. It is safe to call twice.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	for key, bf := range s.files {
		err := bf.w.Flush()
		if err == nil {
			err = bf.f.Sync()
		}
		if cerr := bf.f.Close(); err == nil {
			err = cerr
		}
		if err != nil && firstErr == nil {
			firstErr = apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StagePartition, string(key), bf.path, err)
		}
	}
	return firstErr
}

// Buckets lists the buckets that received at least one posting, sorted by
// key.
func (s *Store) Buckets() []Bucket {
	out := make([]Bucket, 0, len(s.files))
	for key, bf := range s.files {
		if bf.postings == 0 {
			continue
		}
		out = append(out, Bucket{Key: key, Path: bf.path, Postings: bf.postings})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// Postings is the total number of postings appended.
func (s *Store) Postings() int64 {
	return s.postings
}

// Bytes is the total number of bytes appended.
func (s *Store) Bytes() int64 {
	return s.bytes
}

// Remove closes the store and deletes the spill directory.
func (s *Store) Remove() error {
	closeErr := s.Close()
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing spill directory %s: %w", s.dir, err)
	}
	return closeErr
}

// Scan reads a spill file and calls fn for every posting in file order.
func Scan(path string, fn func(index.Posting) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening spill file: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		token, docID, ok := strings.Cut(text, "\t")
		if !ok || token == "" || docID == "" {
			return fmt.Errorf("malformed spill line %d in %s", line, path)
		}
		if err := fn(index.Posting{Token: token, DocID: docID}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading spill file %s: %w", path, err)
	}
	return nil
}
