// Package reminder holds the time-driven half of the notification core:
// the due-date scan and the recurring-task materializer, each driven by
// its own runner. The two jobs touch disjoint task fields and may run
// concurrently with each other; a single job never overlaps itself.
package reminder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mJobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_job_runs_total", Help: "Completed job runs",
	}, []string{"job"})
	mJobSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_job_skipped_total", Help: "Fires skipped because the previous run was still going",
	}, []string{"job"})
	mJobErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_job_errors_total", Help: "Job runs that returned an error",
	}, []string{"job"})
	mJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "reminder_job_duration_seconds", Help: "Job run duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// Guard is the per-job overlap lock. The fine tick and the hourly backstop
// of the due-date scan share one guard, so a slow scan suppresses both
// until it finishes.
type Guard struct{ busy atomic.Bool }

func NewGuard() *Guard { return &Guard{} }

func (g *Guard) tryAcquire() bool { return g.busy.CompareAndSwap(false, true) }
func (g *Guard) release()         { g.busy.Store(false) }

// Job is one run of a scheduled procedure. A run that errors is logged and
// dropped; the schedule keeps going.
type Job func(ctx context.Context) error

// Runner fires a job on a fixed interval, first fire immediately. Fires
// that land while the guarded job is still running are counted and
// skipped, never queued.
type Runner struct {
	log      *zap.Logger
	name     string
	interval time.Duration
	guard    *Guard
	job      Job
}

func NewRunner(log *zap.Logger, name string, interval time.Duration, guard *Guard, job Job) *Runner {
	return &Runner{
		log:      log.With(zap.String("job", name)),
		name:     name,
		interval: interval,
		guard:    guard,
		job:      job,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.fire(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.fire(ctx)
		}
	}
}

func (r *Runner) fire(ctx context.Context) {
	if !r.guard.tryAcquire() {
		mJobSkipped.WithLabelValues(r.name).Inc()
		r.log.Debug("previous run still in flight, skipping fire")
		return
	}
	defer r.guard.release()

	start := time.Now()
	if err := r.job(ctx); err != nil && ctx.Err() == nil {
		mJobErrors.WithLabelValues(r.name).Inc()
		r.log.Warn("job run failed", zap.Error(err))
	}
	mJobRuns.WithLabelValues(r.name).Inc()
	mJobDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
}

// DailyRunner fires a job once a day at local midnight.
type DailyRunner struct {
	log   *zap.Logger
	name  string
	guard *Guard
	job   Job
	now   func() time.Time
}

func NewDailyRunner(log *zap.Logger, name string, guard *Guard, job Job) *DailyRunner {
	return &DailyRunner{
		log:   log.With(zap.String("job", name)),
		name:  name,
		guard: guard,
		job:   job,
		now:   time.Now,
	}
}

func (r *DailyRunner) Run(ctx context.Context) error {
	for {
		now := r.now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if !r.guard.tryAcquire() {
			mJobSkipped.WithLabelValues(r.name).Inc()
			continue
		}
		start := time.Now()
		if err := r.job(ctx); err != nil && ctx.Err() == nil {
			mJobErrors.WithLabelValues(r.name).Inc()
			r.log.Warn("job run failed", zap.Error(err))
		}
		mJobRuns.WithLabelValues(r.name).Inc()
		mJobDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
		r.guard.release()
	}
}
