// Package merge turns per-bucket spill files into frequency-filtered index
// chunks. Buckets are independent and merged in parallel.
package merge

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/chunk"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/doctable"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/spill"
	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

// BucketResult summarises one merged bucket.
type BucketResult struct {
	Descriptor chunk.Descriptor
	Written    bool
	Terms      int
	Kept       int
	Postings   int64
	Duration   time.Duration
}

// Observer is notified after each bucket is merged. It may be called from
// several goroutines at once.
type Observer func(BucketResult)

type Merger struct {
	docs       *doctable.Table
	writer     *chunk.Writer
	thresholds Thresholds
	workers    int
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithWorkers bounds the number of buckets merged at once.
func WithWorkers(n int) Option {
	return func(m *Merger) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithObserver registers a per-bucket callback.
func WithObserver(fn Observer) Option {
	return func(m *Merger) {
		m.observer = fn
	}
}

// NewMerger creates a Merger writing chunks through writer. The document
// table must be frozen: it is shared read-only by every merge task.
func NewMerger(docs *doctable.Table, writer *chunk.Writer, thresholds Thresholds, opts ...Option) *Merger {
	m := &Merger{
		docs:       docs,
		writer:     writer,
		thresholds: thresholds,
		workers:    1,
		logger:     slog.Default().With("component", "merger"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MergeAll merges every bucket and returns the descriptors of the chunks
// written, sorted by key. Buckets whose tokens all fall below threshold
// produce no chunk. The first failure cancels the remaining buckets.
func (m *Merger) MergeAll(ctx context.Context, buckets []spill.Bucket) ([]chunk.Descriptor, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	var mu sync.Mutex
	descriptors := make([]chunk.Descriptor, 0, len(buckets))

	for _, b := range buckets {
		b := b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := m.Merge(b)
			if err != nil {
				return err
			}
			if m.observer != nil {
				m.observer(res)
			}
			if res.Written {
				mu.Lock()
				descriptors = append(descriptors, res.Descriptor)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Key < descriptors[j].Key
	})
	return descriptors, nil
}

// Merge aggregates one bucket's spill file and writes its chunk.
func (m *Merger) Merge(b spill.Bucket) (BucketResult, error) {
	start := time.Now()
	idx := index.NewBucketIndex(m.docs)
	err := spill.Scan(b.Path, func(p index.Posting) error {
		return idx.Add(p.Token, p.DocID)
	})
	if err != nil {
		return BucketResult{}, apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StageMerge, string(b.Key), b.Path, err)
	}

	cjk := b.Key.IsCJK()
	entries, err := idx.Snapshot(func(s index.TermStats) bool {
		return s.DocFreq >= m.thresholds.Min(s.Arity, cjk)
	})
	if err != nil {
		return BucketResult{}, apperrors.NewBucket(apperrors.ErrSpillIO, apperrors.StageMerge, string(b.Key), b.Path, err)
	}
	res := BucketResult{
		Terms:    idx.Terms(),
		Kept:     len(entries),
		Postings: idx.Postings(),
	}
	idx.Reset()

	if len(entries) == 0 {
		res.Duration = time.Since(start)
		m.logger.Debug("bucket produced no chunk", "bucket", b.Key, "terms", res.Terms)
		return res, nil
	}
	desc, err := m.writer.Write(b.Key, entries)
	if err != nil {
		return BucketResult{}, apperrors.NewBucket(apperrors.ErrChunkWrite, apperrors.StageMerge, string(b.Key), chunk.Filename(b.Key), err)
	}
	res.Descriptor = desc
	res.Written = true
	res.Duration = time.Since(start)
	m.logger.Info("bucket merged",
		"bucket", b.Key,
		"terms", res.Terms,
		"kept", res.Kept,
		"postings", res.Postings,
		"size_bytes", desc.SizeBytes,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
