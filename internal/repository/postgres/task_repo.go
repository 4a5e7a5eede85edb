package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taskhive/taskhive/internal/domain/task"
)

var _ task.Repo = (*TaskRepo)(nil)

type TaskRepo struct{ db *DB }

func NewTaskRepo(db *DB) *TaskRepo { return &TaskRepo{db: db} }

const taskCols = `
t.id, t.title, t.description, t.status, t.priority, t.category,
t.project_id, COALESCE(p.name, ''), t.assignee_id, t.reporter_id, t.watchers,
t.due_date, t.estimated_time, t.tags,
t.is_recurring, t.recurring_pattern, t.recurring_interval, t.recurring_end_date, t.recurring_next_due,
t.created_at, t.updated_at`

const (
	qTaskInsert = `
INSERT INTO tasks
  (title, description, status, priority, category, project_id, assignee_id, reporter_id,
   watchers, due_date, estimated_time, tags,
   is_recurring, recurring_pattern, recurring_interval, recurring_end_date, recurring_next_due)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id, created_at, updated_at;`

	qTaskByID = `
SELECT ` + taskCols + `
FROM tasks t
LEFT JOIN projects p ON p.id = t.project_id
WHERE t.id = $1;`

	qTaskDueWindow = `
SELECT ` + taskCols + `
FROM tasks t
LEFT JOIN projects p ON p.id = t.project_id
WHERE t.due_date IS NOT NULL
  AND ($1::timestamptz IS NULL OR t.due_date >= $1)
  AND t.due_date <= $2
  AND t.status IN ('pending', 'in_progress')
ORDER BY t.due_date;`

	qTaskRecurringDue = `
SELECT ` + taskCols + `
FROM tasks t
LEFT JOIN projects p ON p.id = t.project_id
WHERE t.is_recurring = TRUE
  AND t.recurring_next_due IS NOT NULL
  AND t.recurring_next_due <= $1
  AND t.status <> 'cancelled'
ORDER BY t.recurring_next_due;`

	qTaskAdvanceRecurring = `
UPDATE tasks
SET recurring_next_due = $2, updated_at = NOW()
WHERE id = $1 AND is_recurring = TRUE;`
)

func scanTask(row pgx.Row, t *task.Task) error {
	var (
		pattern  *string
		interval *int
	)
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.Category,
		&t.ProjectID,
		&t.ProjectName,
		&t.AssigneeID,
		&t.ReporterID,
		&t.Watchers,
		&t.DueDate,
		&t.EstimatedTime,
		&t.Tags,
		&t.Recurring.IsRecurring,
		&pattern,
		&interval,
		&t.Recurring.EndDate,
		&t.Recurring.NextDue,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan task: %w", err)
	}
	if pattern != nil {
		t.Recurring.Pattern = task.Pattern(*pattern)
	}
	if interval != nil {
		t.Recurring.Interval = *interval
	}
	return nil
}

func (r *TaskRepo) Create(ctx context.Context, t *task.Task) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		pattern  *string
		interval *int
	)
	if t.Recurring.IsRecurring {
		p := string(t.Recurring.Pattern)
		pattern = &p
		i := t.Recurring.Interval
		interval = &i
	}

	if err := r.db.Pool.QueryRow(ctx, qTaskInsert,
		t.Title,
		t.Description,
		t.Status,
		t.Priority,
		t.Category,
		t.ProjectID,
		t.AssigneeID,
		t.ReporterID,
		t.Watchers,
		t.DueDate,
		t.EstimatedTime,
		t.Tags,
		t.Recurring.IsRecurring,
		pattern,
		interval,
		t.Recurring.EndDate,
		t.Recurring.NextDue,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t task.Task
	if err := scanTask(r.db.Pool.QueryRow(ctx, qTaskByID, id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) FindDueInWindow(ctx context.Context, w task.DueWindow) ([]*task.Task, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qTaskDueWindow, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepo) FindRecurringDue(ctx context.Context, asOf time.Time) ([]*task.Task, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qTaskRecurringDue, asOf)
	if err != nil {
		return nil, fmt.Errorf("query recurring tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepo) AdvanceRecurring(ctx context.Context, id int64, nextDue time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qTaskAdvanceRecurring, id, nextDue)
	if err != nil {
		return fmt.Errorf("advance recurring: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectTasks(rows pgx.Rows) ([]*task.Task, error) {
	var out []*task.Task
	for rows.Next() {
		var t task.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, err
		}
		tc := t
		out = append(out, &tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
