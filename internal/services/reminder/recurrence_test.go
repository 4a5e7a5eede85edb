package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/domain/task"
)

func TestNextDue(t *testing.T) {
	now := time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		pattern  task.Pattern
		interval int
		want     time.Time
	}{
		{"daily", task.PatternDaily, 1, now.AddDate(0, 0, 1)},
		{"every third day", task.PatternDaily, 3, now.AddDate(0, 0, 3)},
		{"weekly", task.PatternWeekly, 1, now.AddDate(0, 0, 7)},
		{"biweekly", task.PatternWeekly, 2, now.AddDate(0, 0, 14)},
		{"monthly", task.PatternMonthly, 1, now.AddDate(0, 1, 0)},
		{"quarterly", task.PatternMonthly, 3, now.AddDate(0, 3, 0)},
		{"yearly", task.PatternYearly, 1, now.AddDate(1, 0, 0)},
		{"zero interval clamps to one", task.PatternDaily, 0, now.AddDate(0, 0, 1)},
		{"negative interval clamps to one", task.PatternWeekly, -2, now.AddDate(0, 0, 7)},
		{"unknown pattern is a no-op", task.Pattern("fortnightly"), 1, now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDue(tt.pattern, tt.interval, now))
		})
	}
}

func recurringTemplate(id int64, title string, pattern task.Pattern, interval int) *task.Task {
	due := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	return &task.Task{
		ID:         id,
		Title:      title,
		Status:     task.StatusPending,
		Priority:   task.PriorityMedium,
		ReporterID: 1,
		Recurring: task.Recurring{
			IsRecurring: true,
			Pattern:     pattern,
			Interval:    interval,
			NextDue:     &due,
		},
	}
}

func TestMaterializerCreatesOccurrenceAndAdvances(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tpl := recurringTemplate(1, "standup notes", task.PatternWeekly, 2)
	repo := &fakeTaskRepo{recurring: []*task.Task{tpl}}
	m := NewMaterializer(zap.NewNop(), repo, func() time.Time { return now })

	require.NoError(t, m.Run(context.Background()))

	require.Len(t, repo.created, 1)
	inst := repo.created[0]
	assert.Equal(t, "standup notes", inst.Title)
	assert.Equal(t, task.StatusPending, inst.Status)
	assert.Zero(t, inst.ID, "the occurrence is a fresh task")
	require.NotNil(t, inst.Recurring.NextDue)

	wantNext := now.AddDate(0, 0, 14)
	assert.Equal(t, wantNext, *inst.Recurring.NextDue, "schedule is computed from now, not from the missed slot")
	assert.Equal(t, wantNext, repo.advanced[tpl.ID])
}

func TestMaterializerRespectsEndDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	ended := recurringTemplate(1, "expired", task.PatternDaily, 1)
	past := now.AddDate(0, 0, -1)
	ended.Recurring.EndDate = &past

	repo := &fakeTaskRepo{recurring: []*task.Task{ended}}
	m := NewMaterializer(zap.NewNop(), repo, func() time.Time { return now })

	require.NoError(t, m.Run(context.Background()))
	assert.Empty(t, repo.created)
	assert.Empty(t, repo.advanced)
}

func TestMaterializerIsolatesTemplateFailures(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	broken := recurringTemplate(1, "broken", task.PatternDaily, 1)
	ok := recurringTemplate(2, "fine", task.PatternDaily, 1)

	repo := &fakeTaskRepo{
		recurring: []*task.Task{broken, ok},
		createErr: map[string]error{"broken": errors.New("constraint violation")},
	}
	m := NewMaterializer(zap.NewNop(), repo, func() time.Time { return now })

	require.NoError(t, m.Run(context.Background()))
	require.Len(t, repo.created, 1)
	assert.Equal(t, "fine", repo.created[0].Title)

	_, advancedBroken := repo.advanced[broken.ID]
	assert.False(t, advancedBroken, "a template whose occurrence failed keeps its schedule")
	assert.Contains(t, repo.advanced, ok.ID)
}

func TestMaterializerScanError(t *testing.T) {
	repo := &fakeTaskRepo{recurErr: errors.New("db down")}
	m := NewMaterializer(zap.NewNop(), repo, nil)

	assert.Error(t, m.Run(context.Background()))
}
