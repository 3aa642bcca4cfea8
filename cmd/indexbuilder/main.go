package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/manifest"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/internal/source"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	verify := flag.Bool("verify", false, "verify the index in the output directory and exit")
	daemon := flag.Bool("daemon", false, "rebuild on schedule and serve status")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *verify {
		os.Exit(runVerify(cfg.Indexer.OutputDir))
	}

	tok, err := tokenizer.FromConfig(cfg.Tokenizer)
	if err != nil {
		slog.Error("failed to load tokenizer", "error", err)
		os.Exit(1)
	}
	m := metrics.New()
	builder, err := indexer.NewBuilder(cfg.Indexer, tok, indexer.WithMetrics(m))
	if err != nil {
		slog.Error("failed to create index builder", "error", err)
		os.Exit(1)
	}
	notifier, cache := newNotifier(ctx, cfg)
	defer notifier.Close()

	app := &app{
		cfg:      cfg,
		builder:  builder,
		metrics:  m,
		notifier: notifier,
		cache:    cache,
	}
	if *daemon {
		if err := app.serve(ctx); err != nil {
			slog.Error("daemon stopped", "error", err)
			os.Exit(1)
		}
		return
	}
	report, err := app.buildOnce(ctx)
	printReport(report)
	if err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	builder  *indexer.Builder
	metrics  *metrics.Metrics
	notifier *notify.Multi
	cache    *redis.Client
}

// buildOnce opens the configured source, runs one build and, on success,
// exports metrics and notifies downstream systems.
func (a *app) buildOnce(ctx context.Context) (*indexer.Report, error) {
	src, err := source.Open(ctx, a.cfg)
	if err != nil {
		return &indexer.Report{Err: err}, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	report, err := a.builder.Build(ctx, src)
	if path := a.cfg.Metrics.TextfilePath; a.cfg.Metrics.Enabled && path != "" {
		if werr := a.metrics.WriteTextfile(path); werr != nil {
			slog.Warn("metrics export failed", "path", path, "error", werr)
		}
	}
	if err != nil {
		return report, err
	}
	if a.notifier.Len() > 0 {
		event := notify.IndexCompleteEvent{
			RunID:        report.RunID,
			OutputDir:    a.cfg.Indexer.OutputDir,
			GeneratedAt:  report.Manifest.GeneratedAt,
			TotalWords:   report.Manifest.TotalWords,
			TotalChunks:  report.Manifest.TotalChunks,
			TotalSizeMB:  report.Manifest.TotalSizeMB,
			Documents:    report.Documents,
			Skipped:      report.Skipped,
			Degraded:     report.Degraded,
			DurationSecs: report.Duration().Seconds(),
		}
		if err := a.notifier.Notify(ctx, event); err != nil {
			slog.Warn("post-build notification incomplete", "error", err)
		}
	}
	return report, nil
}

// newNotifier wires the enabled notification targets. A target that cannot
// be reached at startup is left out. The redis client is returned for health
// checks when one was connected.
func newNotifier(ctx context.Context, cfg *config.Config) (*notify.Multi, *redis.Client) {
	var (
		targets []notify.Notifier
		cache   *redis.Client
	)
	if cfg.Kafka.Enabled && cfg.Kafka.Topics.IndexComplete != "" {
		targets = append(targets, notify.NewKafka(kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)))
	}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, cache invalidation disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			cache = client
			targets = append(targets, notify.NewRedis(client, cfg.Redis.InvalidatePattern))
		}
	}
	return notify.NewMulti(targets...), cache
}

func runVerify(dir string) int {
	m, err := manifest.Verify(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "index in %s is not valid: %v\n", dir, err)
		return 1
	}
	fmt.Printf("index ok: %d chunks, %d words, %.2f MB, generated %s\n",
		m.TotalChunks, m.TotalWords, m.TotalSizeMB, m.GeneratedAt.Format("2006-01-02 15:04:05"))
	return 0
}

func printReport(r *indexer.Report) {
	if r == nil {
		return
	}
	fmt.Printf("records processed: %d\n", r.Processed)
	fmt.Printf("records skipped:   %d\n", r.Skipped)
	for reason, n := range r.SkipReasons {
		fmt.Printf("  %-14s %d\n", reason+":", n)
	}
	if r.Degraded > 0 {
		fmt.Printf("records degraded:  %d\n", r.Degraded)
	}
	if r.Succeeded() {
		fmt.Printf("index written:     %d chunks, %d words, %.2f MB in %s\n",
			r.Chunks, r.Words, r.Manifest.TotalSizeMB, r.Duration().Round(1e6))
		return
	}
	fmt.Printf("build failed:      %v\n", r.Err)
}
