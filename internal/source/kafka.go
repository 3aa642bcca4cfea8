package source

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/kafka"
)

// Kafka drains a record topic until it has been idle for the configured
// timeout. Offsets are committed only through Commit.
type Kafka struct {
	consumer *kafka.Consumer
	idle     time.Duration
}

func NewKafka(consumer *kafka.Consumer, idle time.Duration) *Kafka {
	if idle <= 0 {
		idle = 10 * time.Second
	}
	return &Kafka{consumer: consumer, idle: idle}
}

func (k *Kafka) Each(ctx context.Context, fn func(raw []byte) error) error {
	_, err := k.consumer.Drain(ctx, k.idle, func(_ context.Context, _ []byte, value []byte) error {
		return fn(value)
	})
	return err
}

func (k *Kafka) Commit(ctx context.Context) error {
	return k.consumer.Commit(ctx)
}

func (k *Kafka) Close() error {
	return k.consumer.Close()
}
