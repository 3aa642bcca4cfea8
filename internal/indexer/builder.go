// Package indexer builds the chunked search index. A build streams records
// through a pool of projection workers into per-bucket spill files, merges
// every bucket into a frequency-filtered chunk, writes the catalog files and
// finally the manifest.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/chunk"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/doctable"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/manifest"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/merge"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/partition"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/record"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/spill"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/source"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/tracing"
)

type Builder struct {
	cfg        config.IndexerConfig
	projector  *record.Projector
	thresholds merge.Thresholds
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*Builder)

// WithClock replaces time.Now for generation timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithMetrics records build metrics into m instead of a private registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

func NewBuilder(cfg config.IndexerConfig, tok *tokenizer.Tokenizer, opts ...Option) (*Builder, error) {
	if cfg.OutputDir == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "output directory is required")
	}
	projector, err := record.NewProjector(tok, cfg.Fields)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "%v", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MergeWorkers <= 0 {
		cfg.MergeWorkers = cfg.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if cfg.SpillDir == "" {
		cfg.SpillDir = filepath.Join(os.TempDir(), "paper-index-builder", "spill")
	}
	b := &Builder{
		cfg:        cfg,
		projector:  projector,
		thresholds: merge.ThresholdsFromConfig(cfg.Thresholds),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = metrics.New()
	}
	return b, nil
}

// Metrics returns the collectors the builder records into.
func (b *Builder) Metrics() *metrics.Metrics {
	return b.metrics
}

// projected is one worker result handed to the coordinator.
type projected struct {
	proj    *record.Projection
	buckets map[partition.Key][]string
	err     error
}

// run holds the state owned by the coordinator for one build.
type run struct {
	report  *Report
	store   *spill.Store
	docs    *doctable.Table
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// Build rebuilds the index from src. The previous manifest is removed before
// anything else, so a failed or cancelled run never leaves a manifest that
// describes a partial index. The returned Report is never nil.
func (b *Builder) Build(ctx context.Context, src source.Source) (*Report, error) {
	start := b.now()
	report := &Report{
		RunID:     newRunID(start),
		StartedAt: start,
	}
	ctx = logger.WithRunID(ctx, report.RunID)
	ctx, span := tracing.StartSpan(ctx, "build", report.RunID)
	log := logger.FromContext(ctx).With("component", "builder")
	log.Info("index build started",
		"output_dir", b.cfg.OutputDir,
		"workers", b.cfg.Workers,
		"merge_workers", b.cfg.MergeWorkers,
	)

	err := b.build(ctx, src, report, log)
	span.End()
	report.FinishedAt = b.now()
	report.Err = err
	report.Phases = span.Phases()
	span.Log(log)
	b.metrics.BuildDuration.Observe(report.Duration().Seconds())
	if err != nil {
		b.metrics.BuildsTotal.WithLabelValues("failure").Inc()
		log.Error("index build failed",
			"error", err,
			"processed", report.Processed,
			"skipped", report.Skipped,
		)
		return report, err
	}
	b.metrics.BuildsTotal.WithLabelValues("success").Inc()
	b.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
	b.metrics.IndexWords.Set(float64(report.Words))
	log.Info("index build complete",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"degraded", report.Degraded,
		"documents", report.Documents,
		"chunks", report.Chunks,
		"words", report.Words,
		"duration_ms", report.Duration().Milliseconds(),
	)
	return report, nil
}

func (b *Builder) build(ctx context.Context, src source.Source, report *Report, log *slog.Logger) error {
	out := b.cfg.OutputDir
	end := phase(ctx, "prepare")
	err := b.clearOutputs(out, log)
	end()
	if err != nil {
		return err
	}

	store, err := spill.Create(b.cfg.SpillDir, b.cfg.SpillBufferSize)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Remove(); err != nil {
			log.Warn("removing spill storage failed", "dir", store.Dir(), "error", err)
		}
	}()

	docs := doctable.New()
	r := &run{
		report:  report,
		store:   store,
		docs:    docs,
		catalog: catalog.New(docs),
		logger:  log,
	}
	end = phase(ctx, "partition")
	err = b.partition(ctx, src, r)
	end()
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}
	docs.Freeze()
	report.Documents = docs.Len()
	report.Postings = store.Postings()
	report.SpillBytes = store.Bytes()
	b.metrics.SpillPostings.Add(float64(store.Postings()))
	b.metrics.SpillBytes.Add(float64(store.Bytes()))
	log.Info("partition phase complete",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"documents", report.Documents,
		"postings", report.Postings,
		"spill_bytes", report.SpillBytes,
	)

	merger := merge.NewMerger(docs, chunk.NewWriter(out), b.thresholds,
		merge.WithWorkers(b.cfg.MergeWorkers),
		merge.WithObserver(b.observeBucket),
	)
	end = phase(ctx, "merge")
	descriptors, err := merger.MergeAll(ctx, store.Buckets())
	end()
	if err != nil {
		return err
	}
	if err := store.Remove(); err != nil {
		log.Warn("removing spill storage failed", "dir", store.Dir(), "error", err)
	}

	end = phase(ctx, "catalog")
	summary, err := r.catalog.Write(out, b.now())
	end()
	if err != nil {
		return err
	}
	report.Categories = summary.Categories
	report.Months = summary.Months

	if err := ctx.Err(); err != nil {
		return apperrors.New(apperrors.ErrIncompleteIndex, apperrors.StageManifest, err)
	}
	end = phase(ctx, "manifest")
	m := manifest.Build(descriptors, b.now())
	err = manifest.Write(out, m)
	end()
	if err != nil {
		return err
	}
	report.Manifest = m
	report.Chunks = m.TotalChunks
	report.Words = m.TotalWords

	if c, ok := src.(source.Committer); ok {
		if err := c.Commit(ctx); err != nil {
			log.Warn("acknowledging consumed records failed", "error", err)
		}
	}
	return nil
}

// clearOutputs removes every artifact of the previous build, the manifest
// first.
func (b *Builder) clearOutputs(out string, log *slog.Logger) error {
	if err := os.MkdirAll(out, 0755); err != nil {
		return apperrors.NewBucket(apperrors.ErrOutputWrite, apperrors.StagePrepare, "", out, err)
	}
	if err := manifest.Remove(out); err != nil {
		return err
	}
	chunks, err := chunk.RemoveAll(out)
	if err != nil {
		return apperrors.NewBucket(apperrors.ErrChunkWrite, apperrors.StagePrepare, "", out, err)
	}
	outputs, err := catalog.RemoveOutputs(out)
	if err != nil {
		return err
	}
	if chunks > 0 || outputs > 0 {
		log.Info("previous index removed", "chunks", chunks, "catalog_files", outputs)
	}
	return nil
}

// partition runs the projection workers and consumes their results on the
// calling goroutine, which is the only writer of the spill store, the
// document table and the catalog.
func (b *Builder) partition(ctx context.Context, src source.Source, r *run) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	records := make(chan []byte, b.cfg.QueueSize)
	results := make(chan projected, b.cfg.QueueSize)

	g.Go(func() error {
		defer close(records)
		err := src.Each(gctx, func(raw []byte) error {
			select {
			case records <- raw:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("reading records: %w", err)
		}
		return err
	})

	var wg sync.WaitGroup
	for i := 0; i < b.cfg.Workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for raw := range records {
				res := b.project(raw)
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var consumeErr error
	for res := range results {
		if consumeErr != nil {
			continue
		}
		if err := b.consume(res, r); err != nil {
			consumeErr = err
			cancel()
		}
	}
	waitErr := g.Wait()
	switch {
	case consumeErr != nil:
		return consumeErr
	case ctx.Err() != nil && waitErr != nil && errors.Is(waitErr, context.Canceled):
		return apperrors.New(apperrors.ErrIncompleteIndex, apperrors.StagePartition, waitErr)
	case waitErr != nil:
		return waitErr
	}
	return nil
}

func (b *Builder) project(raw []byte) projected {
	proj, err := b.projector.Project(raw)
	if err != nil {
		return projected{err: err}
	}
	return projected{
		proj:    proj,
		buckets: partition.Group(proj.Tokens.Sorted()),
	}
}

// consume applies one worker result. Record errors are counted and
// skipped; spill errors are fatal.
func (b *Builder) consume(res projected, r *run) error {
	if res.err != nil {
		if apperrors.IsFatal(res.err) {
			return res.err
		}
		reason := apperrors.SkipReason(res.err)
		r.report.skip(reason)
		b.metrics.RecordsSkipped.WithLabelValues(reason).Inc()
		r.logger.Debug("record skipped", "reason", reason, "error", res.err)
		return nil
	}
	p := res.proj
	ord, err := r.docs.Intern(p.DocID)
	if err != nil {
		return apperrors.New(apperrors.ErrSpillIO, apperrors.StagePartition, err)
	}
	r.catalog.Add(ord, p.DocID, p.Categories, p.Date, p.TimeBucket, p.Payload)

	keys := make([]partition.Key, 0, len(res.buckets))
	for k := range res.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if err := r.store.AppendAll(k, res.buckets[k], p.DocID); err != nil {
			return err
		}
	}
	r.report.Processed++
	b.metrics.RecordsProcessed.Inc()
	if p.Degraded {
		r.report.Degraded++
		b.metrics.RecordsDegraded.Inc()
	}
	return nil
}

func (b *Builder) observeBucket(res merge.BucketResult) {
	b.metrics.MergeDuration.Observe(res.Duration.Seconds())
	if !res.Written {
		return
	}
	bucket := string(res.Descriptor.Key)
	b.metrics.ChunkWords.WithLabelValues(bucket).Set(float64(res.Descriptor.WordCount))
	b.metrics.ChunkBytes.WithLabelValues(bucket).Set(float64(res.Descriptor.SizeBytes))
}

// phase starts a child span of the build and returns its End.
func phase(ctx context.Context, name string) func() {
	_, span := tracing.StartChildSpan(ctx, name)
	return span.End
}

func newRunID(t time.Time) string {
	return fmt.Sprintf("%s-%04x", t.UTC().Format("20060102T150405"), rand.Intn(0x10000))
}
