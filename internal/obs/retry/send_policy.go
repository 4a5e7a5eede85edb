package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// SendPolicy is the backoff policy for outbound channel deliveries (SMTP,
// push). A handful of quick attempts; the worker marks the channel failed
// once exhausted rather than queueing.
func SendPolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 3,
		Backoff:  ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("delivery retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("delivery retries exhausted", zap.Error(err))
			}
		},
	}
}
