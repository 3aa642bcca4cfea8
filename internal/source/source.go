// Package source streams raw document records into a build. Every source
// yields one JSON document per call, in a deterministic order where the
// backing store has one.
package source

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/resilience"
)

// Source yields raw records. fn must not retain raw after returning unless
// it copies it; sources hand out fresh slices, so holding them is safe.
type Source interface {
	Each(ctx context.Context, fn func(raw []byte) error) error
	Close() error
}

// Committer is implemented by sources that acknowledge consumed records
// once the build using them has succeeded.
type Committer interface {
	Commit(ctx context.Context) error
}

// Open builds the source named by cfg.Source.Type.
func Open(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.Source.Type {
	case "jsonl":
		return NewJSONL(cfg.Source.Paths...), nil
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		return NewKafka(consumer, cfg.Source.IdleTimeout), nil
	case "postgres":
		var client *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{}, func(ctx context.Context) error {
			var err error
			client, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			return nil, err
		}
		return NewPostgres(client, cfg.Source.Query), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}
