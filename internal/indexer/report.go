package indexer

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/manifest"
)

// Report summarises one build run. Build always returns one, also when the
// run fails, so callers can print what was processed before the failure.
type Report struct {
	RunID       string
	Processed   int64
	Skipped     int64
	SkipReasons map[string]int64
	Degraded    int64
	Documents   int
	Postings    int64
	SpillBytes  int64
	Chunks      int
	Words       int
	Categories  int
	Months      []string
	Manifest    *manifest.Manifest
	Phases      map[string]time.Duration
	StartedAt   time.Time
	FinishedAt  time.Time
	Err         error
}

// Succeeded reports whether the run produced a complete index.
func (r *Report) Succeeded() bool {
	return r.Err == nil && r.Manifest != nil
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) skip(reason string) {
	r.Skipped++
	if r.SkipReasons == nil {
		r.SkipReasons = make(map[string]int64)
	}
	r.SkipReasons[reason]++
}
