package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/resilience"
)

type fakePublisher struct {
	fails  int
	events []kafka.Event
}

func (f *fakePublisher) Publish(_ context.Context, e kafka.Event) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeCache struct {
	pattern string
	version string
	err     error
}

func (f *fakeCache) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	f.pattern = pattern
	return 3, f.err
}

func (f *fakeCache) SetIndexVersion(_ context.Context, key, version string) error {
	f.version = version
	return nil
}

func (f *fakeCache) Close() error { return nil }

var quick = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}

func TestKafkaNotifierRetries(t *testing.T) {
	pub := &fakePublisher{fails: 1}
	k := NewKafka(pub)
	k.retry = quick
	event := IndexCompleteEvent{RunID: "run-1", TotalWords: 42}
	if err := k.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Key != "run-1" || pub.events[0].Type != EventTypeIndexComplete {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestRedisNotifier(t *testing.T) {
	cache := &fakeCache{}
	r := NewRedis(cache, "search:*")
	r.retry = quick
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := r.Notify(context.Background(), IndexCompleteEvent{GeneratedAt: at}); err != nil {
		t.Fatal(err)
	}
	if cache.pattern != "search:*" || cache.version != "2025-01-02T03:04:05Z" {
		t.Errorf("cache = %+v", cache)
	}
}

func TestMultiRunsAllAndJoinsErrors(t *testing.T) {
	failing := NewRedis(&fakeCache{err: errors.New("down")}, "search:*")
	failing.retry = quick
	pub := &fakePublisher{}
	k := NewKafka(pub)
	m := NewMulti(failing, k)
	err := m.Notify(context.Background(), IndexCompleteEvent{RunID: "r"})
	if err == nil {
		t.Error("expected joined error")
	}
	if len(pub.events) != 1 {
		t.Errorf("kafka notifier skipped after redis failure")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d", m.Len())
	}
}
