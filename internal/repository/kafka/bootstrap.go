package kafka

import (
	"context"
	"go.uber.org/zap"
	"time"
)

// BootstrapConsumer ensures the topic exists before handing back a
// consumer, so a worker can start ahead of the producers.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	_ = EnsureTopic(ctx, cfg.Brokers, TopicSpec{
		Name:              cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, logger)

	return NewConsumer(cfg)
}
