package index

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/doctable"
)

func newTable(t *testing.T, ids ...string) *doctable.Table {
	t.Helper()
	tbl := doctable.New()
	for _, id := range ids {
		if _, err := tbl.Intern(id); err != nil {
			t.Fatal(err)
		}
	}
	tbl.Freeze()
	return tbl
}

func TestBucketIndexDeduplicatesAndSorts(t *testing.T) {
	bi := NewBucketIndex(newTable(t, "C", "A", "B"))
	adds := [][2]string{
		{"model", "B"}, {"model", "A"}, {"model", "B"},
		{"model compression", "A"}, {"model compression", "B"},
		{"mask", "C"},
	}
	for _, a := range adds {
		if err := bi.Add(a[0], a[1]); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if bi.Terms() != 3 || bi.Postings() != 6 {
		t.Errorf("Terms=%d Postings=%d", bi.Terms(), bi.Postings())
	}
	if bi.DocFreq("model") != 2 || bi.DocFreq("absent") != 0 {
		t.Errorf("DocFreq(model)=%d", bi.DocFreq("model"))
	}

	entries, err := bi.Snapshot(nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := []TermEntry{
		{Term: "mask", Postings: PostingList{"C"}},
		{Term: "model", Postings: PostingList{"A", "B"}},
		{Term: "model compression", Postings: PostingList{"A", "B"}},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("Snapshot = %+v, want %+v", entries, want)
	}
}

func TestBucketIndexSnapshotFilter(t *testing.T) {
	bi := NewBucketIndex(newTable(t, "A", "B"))
	_ = bi.Add("model", "A")
	_ = bi.Add("model", "B")
	_ = bi.Add("model compression", "A")

	var seen []TermStats
	entries, err := bi.Snapshot(func(s TermStats) bool {
		seen = append(seen, s)
		return s.DocFreq >= 2
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Term != "model" {
		t.Errorf("entries = %+v", entries)
	}
	for _, s := range seen {
		if s.Term == "model compression" && (s.Arity != 2 || s.DocFreq != 1) {
			t.Errorf("stats = %+v", s)
		}
	}
}

func TestBucketIndexUnknownDocument(t *testing.T) {
	bi := NewBucketIndex(newTable(t, "A"))
	if err := bi.Add("model", "Z"); err == nil {
		t.Error("expected error for unknown document")
	}
}

func TestBucketIndexReset(t *testing.T) {
	bi := NewBucketIndex(newTable(t, "A"))
	_ = bi.Add("model", "A")
	bi.Reset()
	if bi.Terms() != 0 || bi.Postings() != 0 {
		t.Errorf("after Reset Terms=%d Postings=%d", bi.Terms(), bi.Postings())
	}
}
