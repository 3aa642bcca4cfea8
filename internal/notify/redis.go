package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/resilience"
)

const VersionKey = "search:index:version"

// Cache is the subset of the Redis client the notifier needs.
type Cache interface {
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	SetIndexVersion(ctx context.Context, key, version string) error
	Close() error
}

// Redis drops cached search results matching a pattern and stamps the new
// index version.
type Redis struct {
	cache   Cache
	pattern string
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

func NewRedis(cache Cache, pattern string) *Redis {
	return &Redis{
		cache:   cache,
		pattern: pattern,
		logger:  slog.Default().With("component", "notify-redis"),
	}
}

func (r *Redis) Notify(ctx context.Context, event IndexCompleteEvent) error {
	var deleted int64
	err := resilience.Retry(ctx, "redis-invalidate", r.retry, func(ctx context.Context) error {
		n, err := r.cache.FlushByPattern(ctx, r.pattern)
		deleted += n
		return err
	})
	if err != nil {
		return err
	}
	err = resilience.Retry(ctx, "redis-version", r.retry, func(ctx context.Context) error {
		return r.cache.SetIndexVersion(ctx, VersionKey, event.GeneratedAt.UTC().Format(time.RFC3339))
	})
	if err != nil {
		return err
	}
	r.logger.Info("search cache invalidated", "pattern", r.pattern, "keys_deleted", deleted, "run_id", event.RunID)
	return nil
}

func (r *Redis) Close() error {
	return r.cache.Close()
}
