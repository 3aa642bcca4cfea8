package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func collect(t *testing.T, src Source) []string {
	t.Helper()
	var got []string
	if err := src.Each(context.Background(), func(raw []byte) error {
		got = append(got, string(raw))
		return nil
	}); err != nil {
		t.Fatalf("Each: %v", err)
	}
	return got
}

func TestJSONLOrderAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2024-03-02_AI_enhanced_Chinese.jsonl"), "{\"id\":\"C\"}\n")
	writeFile(t, filepath.Join(dir, "2024-03-01_AI_enhanced_Chinese.jsonl"), "{\"id\":\"A\"}\n\n  \n{\"id\":\"B\"}")

	src := NewJSONL(filepath.Join(dir, "*.jsonl"), filepath.Join(dir, "2024-03-01*"))
	got := collect(t, src)
	want := []string{`{"id":"A"}`, `{"id":"B"}`, `{"id":"C"}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
}

func TestJSONLNoMatches(t *testing.T) {
	if got := collect(t, NewJSONL(filepath.Join(t.TempDir(), "*.jsonl"))); len(got) != 0 {
		t.Errorf("records = %v", got)
	}
}

func TestJSONLHandlerErrorStops(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jsonl"), "{}\n{}\n{}\n")
	stop := errors.New("stop")
	calls := 0
	err := NewJSONL(filepath.Join(dir, "*.jsonl")).Each(context.Background(), func([]byte) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Each = %v after %d calls", err, calls)
	}
}

func TestJSONLCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jsonl"), "{}\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewJSONL(filepath.Join(dir, "*.jsonl")).Each(ctx, func([]byte) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Each = %v", err)
	}
}

func TestOpenUnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Type = "ftp"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("expected error")
	}
}
