package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/domain/task"
)

// NextDue computes the next occurrence of a recurrence from "now", not
// from the previous occurrence. A scheduler outage therefore skips forward
// instead of backfilling missed occurrences.
func NextDue(pattern task.Pattern, interval int, now time.Time) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch pattern {
	case task.PatternDaily:
		return now.AddDate(0, 0, interval)
	case task.PatternWeekly:
		return now.AddDate(0, 0, 7*interval)
	case task.PatternMonthly:
		return now.AddDate(0, interval, 0)
	case task.PatternYearly:
		return now.AddDate(interval, 0, 0)
	}
	return now
}

// Materializer turns recurring templates into fresh task instances once
// their next occurrence has arrived, and advances each template's
// schedule. Runs once daily.
type Materializer struct {
	log   *zap.Logger
	tasks task.Repo
	now   func() time.Time
}

func NewMaterializer(log *zap.Logger, tasks task.Repo, now func() time.Time) *Materializer {
	if now == nil {
		now = time.Now
	}
	return &Materializer{
		log:   log.With(zap.String("component", "reminder.materializer")),
		tasks: tasks,
		now:   now,
	}
}

// Run materializes every template due at or before the start of the
// current day. Per-template failures are logged and skipped; one broken
// template never blocks the rest.
func (m *Materializer) Run(ctx context.Context) error {
	now := m.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	templates, err := m.tasks.FindRecurringDue(ctx, startOfDay)
	if err != nil {
		return err
	}

	created := 0
	for _, tpl := range templates {
		if tpl.Recurring.EndDate != nil && tpl.Recurring.EndDate.Before(now) {
			continue
		}

		next := NextDue(tpl.Recurring.Pattern, tpl.Recurring.Interval, now)

		instance := tpl.CloneForOccurrence()
		instance.Recurring = task.Recurring{
			IsRecurring: true,
			Pattern:     tpl.Recurring.Pattern,
			Interval:    tpl.Recurring.Interval,
			EndDate:     tpl.Recurring.EndDate,
			NextDue:     &next,
		}

		if err := m.tasks.Create(ctx, instance); err != nil {
			m.log.Error("materialize occurrence failed",
				zap.Int64("template_id", tpl.ID),
				zap.Error(err),
			)
			continue
		}
		if err := m.tasks.AdvanceRecurring(ctx, tpl.ID, next); err != nil {
			m.log.Error("advance template schedule failed",
				zap.Int64("template_id", tpl.ID),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	if created > 0 || len(templates) > 0 {
		m.log.Info("recurring tasks materialized",
			zap.Int("templates_due", len(templates)),
			zap.Int("created", created),
		)
	}
	return nil
}
