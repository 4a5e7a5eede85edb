package task

import (
	"context"
	"time"
)

// DueWindow bounds a due-date scan. A nil From means "since forever",
// which is how the overdue bucket is expressed.
type DueWindow struct {
	From *time.Time
	To   time.Time
}

type Repo interface {
	GetByID(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, t *Task) error

	// FindDueInWindow returns non-terminal tasks whose due date falls in
	// the window, with project name resolved for display.
	FindDueInWindow(ctx context.Context, w DueWindow) ([]*Task, error)

	// FindRecurringDue returns templates whose next occurrence is at or
	// before asOf and whose status is not cancelled.
	FindRecurringDue(ctx context.Context, asOf time.Time) ([]*Task, error)

	// AdvanceRecurring moves a template's next_due forward.
	AdvanceRecurring(ctx context.Context, id int64, nextDue time.Time) error
}
