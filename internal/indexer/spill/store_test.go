package spill

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/partition"
	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

func TestAppendScanRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spill")
	s, err := Create(dir, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := []index.Posting{
		{Token: "model", DocID: "A"},
		{Token: "model compression", DocID: "A"},
		{Token: "model", DocID: "B"},
	}
	for _, p := range want {
		if err := s.Append(partition.For(p.Token), p.Token, p.DocID); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := s.AppendAll(partition.CJKKey, []string{"模型", "模型 压缩"}, "C"); err != nil {
		t.Fatalf("AppendAll: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Postings() != 5 {
		t.Errorf("Postings = %d, want 5", s.Postings())
	}

	buckets := s.Buckets()
	if len(buckets) != 2 || buckets[0].Key != "m" || buckets[1].Key != partition.CJKKey {
		t.Fatalf("Buckets = %+v", buckets)
	}
	if buckets[0].Postings != 3 || buckets[1].Postings != 2 {
		t.Errorf("posting counts = %d, %d", buckets[0].Postings, buckets[1].Postings)
	}

	var got []index.Posting
	err = Scan(buckets[0].Path, func(p index.Posting) error {
		got = append(got, p)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scanned %v, want %v", got, want)
	}
	info, err := os.Stat(buckets[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, b := range buckets {
		fi, _ := os.Stat(b.Path)
		total += fi.Size()
	}
	if total != s.Bytes() || info.Size() == 0 {
		t.Errorf("Bytes = %d, files hold %d", s.Bytes(), total)
	}
}

func TestCreateClearsLeftovers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spill")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "m"+FileExt)
	if err := os.WriteFile(stale, []byte("stale\tX\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Create(dir, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Remove()
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale spill file survived: %v", err)
	}
}

func TestAppendRejectsFormatViolations(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "spill"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Remove()
	for _, p := range []index.Posting{{Token: "a\tb", DocID: "X"}, {Token: "model", DocID: "X\nY"}, {Token: "", DocID: "X"}, {Token: "model", DocID: ""}} {
		err := s.Append("m", p.Token, p.DocID)
		if !errors.Is(err, apperrors.ErrSpillIO) {
			t.Errorf("Append(%q, %q) = %v, want ErrSpillIO", p.Token, p.DocID, err)
		}
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "spill"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Remove()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	err = s.Append("m", "model", "A")
	var be *apperrors.BuildError
	if !errors.As(err, &be) || be.Bucket != "m" {
		t.Errorf("Append after close = %v, want BuildError naming bucket m", err)
	}
}

func TestRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spill")
	s, err := Create(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append("m", "model", "A"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("spill dir still present: %v", err)
	}
}

func TestScanMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m"+FileExt)
	if err := os.WriteFile(path, []byte("model\tA\nbroken-line\n"), 0644); err != nil {
		t.Fatal(err)
	}
	calls := 0
	err := Scan(path, func(index.Posting) error {
		calls++
		return nil
	})
	if err == nil || calls != 1 {
		t.Errorf("Scan = %v after %d calls, want error after 1", err, calls)
	}
}
