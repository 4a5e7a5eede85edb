package task

import (
	"time"

	"github.com/taskhive/taskhive/internal/domain/project"
	"github.com/taskhive/taskhive/internal/domain/user"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status ends the task's reminder lifecycle.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
	PatternYearly  Pattern = "yearly"
)

// Recurring drives periodic regeneration of task instances from a
// template. NextDue is always the soonest occurrence not yet materialized.
type Recurring struct {
	IsRecurring bool       `json:"is_recurring"`
	Pattern     Pattern    `json:"pattern,omitempty"`
	Interval    int        `json:"interval,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	NextDue     *time.Time `json:"next_due,omitempty"`
}

type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	Category      string     `json:"category,omitempty"`
	ProjectID     *int64     `json:"project_id,omitempty"`
	ProjectName   string     `json:"project_name,omitempty"`
	AssigneeID    *int64     `json:"assignee_id,omitempty"`
	ReporterID    int64      `json:"reporter_id"`
	Watchers      []int64    `json:"watchers,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	EstimatedTime int        `json:"estimated_time,omitempty"` // minutes
	Tags          []string   `json:"tags,omitempty"`
	Recurring     Recurring  `json:"recurring"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CloneForOccurrence copies the template fields that carry over to a newly
// materialized instance. The clone starts pending with no due date of its
// own beyond the recurring block the caller fills in.
func (t *Task) CloneForOccurrence() *Task {
	return &Task{
		Title:         t.Title,
		Description:   t.Description,
		Status:        StatusPending,
		Priority:      t.Priority,
		Category:      t.Category,
		ProjectID:     t.ProjectID,
		AssigneeID:    t.AssigneeID,
		ReporterID:    t.ReporterID,
		EstimatedTime: t.EstimatedTime,
		Tags:          append([]string(nil), t.Tags...),
	}
}

// CanAccess is the shared access predicate: admins see everything; otherwise
// the requester must be the reporter, assignee, a watcher, or an owner or
// member of the task's project. proj may be nil for project-less tasks.
func CanAccess(t *Task, u *user.User, proj *project.Project) bool {
	if u == nil || t == nil {
		return false
	}
	if u.Role == user.RoleAdmin {
		return true
	}
	if t.ReporterID == u.ID {
		return true
	}
	if t.AssigneeID != nil && *t.AssigneeID == u.ID {
		return true
	}
	for _, w := range t.Watchers {
		if w == u.ID {
			return true
		}
	}
	if proj != nil && t.ProjectID != nil && *t.ProjectID == proj.ID {
		if proj.OwnerID == u.ID {
			return true
		}
		for _, m := range proj.Members {
			if m.UserID == u.ID {
				return true
			}
		}
	}
	return false
}
