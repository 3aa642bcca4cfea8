// Package notify tells downstream systems that a new index was published.
// Notifications are best-effort: failures are logged and returned to the
// caller but never undo a successful build.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// IndexCompleteEvent describes a published index.
type IndexCompleteEvent struct {
	RunID        string    `json:"run_id"`
	OutputDir    string    `json:"output_dir"`
	GeneratedAt  time.Time `json:"generated_at"`
	TotalWords   int       `json:"total_words"`
	TotalChunks  int       `json:"total_chunks"`
	TotalSizeMB  float64   `json:"total_size_mb"`
	Documents    int       `json:"documents"`
	Skipped      int64     `json:"skipped"`
	Degraded     int64     `json:"degraded"`
	DurationSecs float64   `json:"duration_seconds"`
}

// Notifier announces a completed build.
type Notifier interface {
	Notify(ctx context.Context, event IndexCompleteEvent) error
	Close() error
}

// Multi fans an event out to several notifiers. Every notifier runs even if
// an earlier one fails; the errors are joined.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{
		notifiers: notifiers,
		logger:    slog.Default().With("component", "notify"),
	}
}

// Len is the number of configured notifiers.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

func (m *Multi) Notify(ctx context.Context, event IndexCompleteEvent) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			m.logger.Warn("notification failed", "run_id", event.RunID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
