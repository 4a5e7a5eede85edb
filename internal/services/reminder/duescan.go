package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/domain/notification"
	"github.com/taskhive/taskhive/internal/domain/task"
	svc "github.com/taskhive/taskhive/internal/services/notification"
)

// Bucket classifies a task by due-date proximity. The three windows are
// disjoint: a task falls into exactly one per scan.
type Bucket string

const (
	BucketOverdue Bucket = "overdue"
	BucketUrgent  Bucket = "urgent" // due within one hour
	BucketSoon    Bucket = "soon"   // due within 24 hours
)

// Notifier is the slice of the notification service the scanner drives.
type Notifier interface {
	NotifyOne(ctx context.Context, recipientID int64, kind notification.Kind, ev svc.Event) (*notification.Notification, error)
}

// RemindPredicate decides whether a reminder fires for a task in a bucket.
// The default always fires, so a task that stays overdue is re-notified on
// every scan. The decision sits behind this single predicate so it can be
// tightened without touching the scan.
type RemindPredicate func(t *task.Task, b Bucket, now time.Time) bool

func AlwaysRemind(*task.Task, Bucket, time.Time) bool { return true }

type ScanStats struct {
	Overdue int
	Urgent  int
	Soon    int
	Sent    int
	Errors  int
}

// Scanner walks tasks crossing due-date thresholds and emits reminders to
// their assignees. Unassigned tasks are skipped; terminal tasks never
// enter a bucket.
type Scanner struct {
	log      *zap.Logger
	tasks    task.Repo
	notifier Notifier
	remind   RemindPredicate
	now      func() time.Time
}

func NewScanner(log *zap.Logger, tasks task.Repo, notifier Notifier, remind RemindPredicate, now func() time.Time) *Scanner {
	if remind == nil {
		remind = AlwaysRemind
	}
	if now == nil {
		now = time.Now
	}
	return &Scanner{
		log:      log.With(zap.String("component", "reminder.duescan")),
		tasks:    tasks,
		notifier: notifier,
		remind:   remind,
		now:      now,
	}
}

func (s *Scanner) Run(ctx context.Context) error {
	now := s.now()
	inOneHour := now.Add(time.Hour)
	inOneDay := now.Add(24 * time.Hour)

	overdue, err := s.tasks.FindDueInWindow(ctx, task.DueWindow{To: now})
	if err != nil {
		return fmt.Errorf("scan overdue: %w", err)
	}
	urgent, err := s.tasks.FindDueInWindow(ctx, task.DueWindow{From: &now, To: inOneHour})
	if err != nil {
		return fmt.Errorf("scan urgent: %w", err)
	}
	soon, err := s.tasks.FindDueInWindow(ctx, task.DueWindow{From: &inOneHour, To: inOneDay})
	if err != nil {
		return fmt.Errorf("scan soon: %w", err)
	}

	stats := ScanStats{Overdue: len(overdue), Urgent: len(urgent), Soon: len(soon)}
	s.notifyBucket(ctx, overdue, BucketOverdue, now, &stats)
	s.notifyBucket(ctx, urgent, BucketUrgent, now, &stats)
	s.notifyBucket(ctx, soon, BucketSoon, now, &stats)

	if stats.Sent > 0 || stats.Errors > 0 {
		s.log.Info("due-date scan complete",
			zap.Int("overdue", stats.Overdue),
			zap.Int("urgent", stats.Urgent),
			zap.Int("soon", stats.Soon),
			zap.Int("sent", stats.Sent),
			zap.Int("errors", stats.Errors),
		)
	}
	return nil
}

func (s *Scanner) notifyBucket(ctx context.Context, tasks []*task.Task, b Bucket, now time.Time, stats *ScanStats) {
	for _, t := range tasks {
		if t.AssigneeID == nil {
			continue
		}
		if !s.remind(t, b, now) {
			continue
		}

		kind, ev := reminderEvent(t, b)
		if _, err := s.notifier.NotifyOne(ctx, *t.AssigneeID, kind, ev); err != nil {
			stats.Errors++
			s.log.Error("reminder failed",
				zap.Int64("task_id", t.ID),
				zap.String("bucket", string(b)),
				zap.Error(err),
			)
			continue
		}
		stats.Sent++
	}
}

// reminderEvent builds the notification for one task in one bucket.
// Channel escalation follows urgency: overdue and urgent reach email and
// push as well, the 24-hour bucket stays off push.
func reminderEvent(t *task.Task, b Bucket) (notification.Kind, svc.Event) {
	taskID := t.ID
	ev := svc.Event{RelatedTaskID: &taskID, RelatedProjectID: t.ProjectID}

	switch b {
	case BucketOverdue:
		ev.Title = "Task Overdue"
		ev.Message = fmt.Sprintf("Task %q is overdue", t.Title)
		ev.Channels = &notification.Channels{InApp: true, Email: true, Push: true}
		return notification.KindTaskOverdue, ev
	case BucketUrgent:
		ev.Title = "URGENT: Task Due Soon!"
		ev.Message = fmt.Sprintf("Task %q is due in less than 1 hour!", t.Title)
		ev.Channels = &notification.Channels{InApp: true, Email: true, Push: true}
		return notification.KindTaskDueSoon, ev
	default:
		ev.Title = "Task Due Soon"
		ev.Message = fmt.Sprintf("Task %q is due in less than 24 hours", t.Title)
		ev.Channels = &notification.Channels{InApp: true, Email: true}
		return notification.KindTaskDueSoon, ev
	}
}
