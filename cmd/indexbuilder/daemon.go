package main

import (
	"context"
	"sync"
	"time"

	"github.com/jasonlvhit/gocron"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/manifest"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/metrics"
)

// buildStatus is what /status reports.
type buildStatus struct {
	Running     bool             `json:"running"`
	LastRunID   string           `json:"lastRunId,omitempty"`
	LastStarted time.Time        `json:"lastStarted,omitempty"`
	LastOutcome string           `json:"lastOutcome,omitempty"`
	LastError   string           `json:"lastError,omitempty"`
	Processed   int64            `json:"processed"`
	Skipped     int64            `json:"skipped"`
	SkipReasons map[string]int64 `json:"skipReasons,omitempty"`
	Degraded    int64            `json:"degraded"`
	Words       int              `json:"words"`
	Chunks      int              `json:"chunks"`
	NextRun     time.Time        `json:"nextRun,omitempty"`
}

type statusTracker struct {
	mu        sync.Mutex
	status    buildStatus
	outputDir string
	next      func() time.Time
}

func (s *statusTracker) Status() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if s.next != nil {
		st.NextRun = s.next()
	}
	return st
}

func (s *statusTracker) ManifestPath() string {
	return manifest.Path(s.outputDir)
}

// begin marks a run as started. It reports false if one is in progress.
func (s *statusTracker) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Running {
		return false
	}
	s.status.Running = true
	s.status.LastStarted = time.Now()
	return true
}

func (s *statusTracker) finish(r *indexer.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	if r == nil {
		return
	}
	s.status.LastRunID = r.RunID
	s.status.Processed = r.Processed
	s.status.Skipped = r.Skipped
	s.status.SkipReasons = r.SkipReasons
	s.status.Degraded = r.Degraded
	s.status.Words = r.Words
	s.status.Chunks = r.Chunks
	s.status.LastError = ""
	s.status.LastOutcome = "success"
	if !r.Succeeded() {
		s.status.LastOutcome = "failure"
		if r.Err != nil {
			s.status.LastError = r.Err.Error()
		}
	}
}

func (s *statusTracker) degraded() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Degraded
}

// serve rebuilds the index daily at schedule.at and serves metrics, status
// and health until ctx is done.
func (a *app) serve(ctx context.Context) error {
	log := logger.WithComponent("daemon")
	tracker := &statusTracker{outputDir: a.cfg.Indexer.OutputDir}

	run := func() {
		if !tracker.begin() {
			log.Warn("previous build still running, skipping scheduled run")
			return
		}
		report, err := a.buildOnce(ctx)
		tracker.finish(report)
		printReport(report)
		if err != nil {
			log.Error("scheduled build failed", "error", err)
		}
	}

	scheduler := gocron.NewScheduler()
	scheduler.Every(1).Day().At(a.cfg.Schedule.At).Do(run)
	tracker.next = func() time.Time {
		_, next := scheduler.NextRun()
		return next
	}

	checker := health.NewChecker()
	checker.Register("output_dir", health.WritableDirCheck(a.cfg.Indexer.OutputDir))
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		m, err := manifest.Verify(a.cfg.Indexer.OutputDir)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		if tracker.degraded() > 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "last build used fallback tokenization"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: m.GeneratedAt.Format(time.RFC3339)}
	})

	if a.cache != nil {
		checker.Register("redis", health.PingCheck(a.cache.Ping))
	}

	shutdown := metrics.StartServer(a.cfg.Metrics.Port, metrics.NewRouter(a.metrics, tracker, checker))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("status server shutdown failed", "error", err)
		}
	}()

	if a.cfg.Schedule.RunOnStart {
		go run()
	}
	stopped := scheduler.Start()
	log.Info("index builder daemon ready",
		"schedule_at", a.cfg.Schedule.At,
		"port", a.cfg.Metrics.Port,
	)
	<-ctx.Done()
	stopped <- true
	log.Info("index builder daemon stopped")
	return nil
}
