// Package benchmark contains Go benchmarks for the tokenizer, the per-bucket
// posting index and a full index build, measuring throughput and allocation
// behaviour.
package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/doctable"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
)

var vocab = []string{
	"graph", "neural", "network", "model", "compression", "pruning",
	"robust", "sparse", "attention", "vision", "language", "transformer",
}

type records []string

func (r records) Each(ctx context.Context, fn func(raw []byte) error) error {
	for _, rec := range r {
		if err := fn([]byte(rec)); err != nil {
			return err
		}
	}
	return nil
}

func (records) Close() error { return nil }

func corpus(n int) records {
	out := make(records, 0, n)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("%s %s %s", vocab[i%len(vocab)], vocab[(i*7+3)%len(vocab)], vocab[(i*5+1)%len(vocab)])
		abstract := fmt.Sprintf("we propose %s for %s %s", vocab[(i*3)%len(vocab)], vocab[(i*11+2)%len(vocab)], vocab[(i+4)%len(vocab)])
		out = append(out, fmt.Sprintf(`{"id":"2401.%05d","title":%q,"abstract":%q,"categories":["cs.%d"],"date":"2024-%02d-%02d"}`,
			i, title, abstract, i%6, i%12+1, i%28+1))
	}
	return out
}

func frozenTable(n int) *doctable.Table {
	tbl := doctable.New()
	for i := 0; i < n; i++ {
		tbl.Intern(fmt.Sprintf("doc-%d", i))
	}
	tbl.Freeze()
	return tbl
}

// BenchmarkBucketIndexAdd measures posting insert throughput into a single
// bucket index.
func BenchmarkBucketIndexAdd(b *testing.B) {
	const docs = 10000
	tbl := frozenTable(docs)
	idx := index.NewBucketIndex(tbl)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := idx.Add(vocab[i%len(vocab)], fmt.Sprintf("doc-%d", i%docs)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBucketIndexSnapshot measures the cost of materialising sorted
// posting lists for a populated bucket.
func BenchmarkBucketIndexSnapshot(b *testing.B) {
	const docs = 5000
	tbl := frozenTable(docs)
	idx := index.NewBucketIndex(tbl)
	for i := 0; i < docs; i++ {
		id := fmt.Sprintf("doc-%d", i)
		for j := 0; j < 4; j++ {
			idx.Add(vocab[(i+j)%len(vocab)], id)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Snapshot(func(index.TermStats) bool { return true }); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBuild measures a full build over corpora of varying size and
// worker counts.
func BenchmarkBuild(b *testing.B) {
	tok := tokenizer.New(tokenizer.Capabilities{})
	for _, size := range []int{1000, 5000} {
		for _, workers := range []int{1, 4} {
			src := corpus(size)
			b.Run(fmt.Sprintf("docs_%d/workers_%d", size, workers), func(b *testing.B) {
				cfg := config.Default().Indexer
				dir := b.TempDir()
				cfg.OutputDir = filepath.Join(dir, "data")
				cfg.SpillDir = filepath.Join(dir, "spill")
				cfg.Workers = workers
				cfg.MergeWorkers = workers
				builder, err := indexer.NewBuilder(cfg, tok)
				if err != nil {
					b.Fatal(err)
				}
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := builder.Build(context.Background(), src); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
