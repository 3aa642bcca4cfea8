package index

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/doctable"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/tokenizer"
)

// BucketIndex aggregates the postings of one partition bucket. Each token's
// documents are held as a roaring bitmap of doctable ordinals, which both
// deduplicates and keeps the per-bucket footprint small. A BucketIndex is
// owned by a single merge task.
type BucketIndex struct {
	docs     *doctable.Table
	index    map[string]*roaring.Bitmap
	postings int64
}

func NewBucketIndex(docs *doctable.Table) *BucketIndex {
	return &BucketIndex{
		docs:  docs,
		index: make(map[string]*roaring.Bitmap),
	}
}

// Add records that docID contains token.
func (b *BucketIndex) Add(token, docID string) error {
	ord, ok := b.docs.Lookup(docID)
	if !ok {
		return fmt.Errorf("document %q is not in the document table", docID)
	}
	bm, exists := b.index[token]
	if !exists {
		bm = roaring.New()
		b.index[token] = bm
	}
	bm.Add(ord)
	b.postings++
	return nil
}

// Terms is the number of distinct tokens seen.
func (b *BucketIndex) Terms() int {
	return len(b.index)
}

// Postings is the number of Add calls, duplicates included.
func (b *BucketIndex) Postings() int64 {
	return b.postings
}

// DocFreq returns the number of distinct documents containing token.
func (b *BucketIndex) DocFreq(token string) int {
	bm, ok := b.index[token]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Snapshot returns the entries whose document frequency passes keep, sorted
// by term, each posting list sorted by document id.
func (b *BucketIndex) Snapshot(keep func(TermStats) bool) ([]TermEntry, error) {
	entries := make([]TermEntry, 0, len(b.index))
	for term, bm := range b.index {
		stats := TermStats{
			Term:    term,
			Arity:   tokenizer.Arity(term),
			DocFreq: int(bm.GetCardinality()),
		}
		if keep != nil && !keep(stats) {
			continue
		}
		postings := make(PostingList, 0, stats.DocFreq)
		it := bm.Iterator()
		for it.HasNext() {
			ord := it.Next()
			id, ok := b.docs.ID(ord)
			if !ok {
				return nil, fmt.Errorf("ordinal %d of term %q has no document id", ord, term)
			}
			postings = append(postings, id)
		}
		sort.Strings(postings)
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries, nil
}

// Reset drops all aggregated state.
func (b *BucketIndex) Reset() {
	b.index = make(map[string]*roaring.Bitmap)
	b.postings = 0
}
