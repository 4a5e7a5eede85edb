package notifier

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	kafkax "github.com/taskhive/taskhive/internal/repository/kafka"
)

type Runner struct {
	log  *zap.Logger
	cons *kafkax.Consumer
	h    *Handler

	mConsumed prometheus.Counter
	mErrors   prometheus.Counter
}

func NewRunner(log *zap.Logger, cons *kafkax.Consumer, h *Handler) *Runner {
	return &Runner{
		log:  log,
		cons: cons,
		h:    h,
		mConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notifier_jobs_consumed_total",
			Help: "Delivery jobs consumed",
		}),
		mErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notifier_errors_total",
			Help: "Errors in the delivery worker",
		}),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(func(ctx context.Context, _ []byte, ev *kafkax.DeliveryRequested) error {
		r.mConsumed.Inc()
		if ev.NotificationID <= 0 {
			r.log.Warn("invalid delivery job: bad notification_id", zap.Int64("notification_id", ev.NotificationID))
			return nil
		}
		return r.h.HandleDelivery(ctx, ev)
	})

	if err := r.cons.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		r.mErrors.Inc()
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}
