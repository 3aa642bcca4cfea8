package notify

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/resilience"
)

const EventTypeIndexComplete = "index.complete"

// Publisher is the subset of the Kafka producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
	Close() error
}

// Kafka publishes an IndexCompleteEvent keyed by run id.
type Kafka struct {
	publisher Publisher
	timeout   time.Duration
	retry     resilience.RetryConfig
}

func NewKafka(publisher Publisher) *Kafka {
	return &Kafka{
		publisher: publisher,
		timeout:   10 * time.Second,
	}
}

func (k *Kafka) Notify(ctx context.Context, event IndexCompleteEvent) error {
	return resilience.Retry(ctx, "kafka-index-complete", k.retry, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, k.timeout, "kafka-publish", func(ctx context.Context) error {
			return k.publisher.Publish(ctx, kafka.Event{
				Key:   event.RunID,
				Type:  EventTypeIndexComplete,
				Value: event,
			})
		})
	})
}

func (k *Kafka) Close() error {
	return k.publisher.Close()
}
