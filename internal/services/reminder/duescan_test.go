package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/domain/notification"
	"github.com/taskhive/taskhive/internal/domain/task"
	svc "github.com/taskhive/taskhive/internal/services/notification"
)

/* fakes */

type fakeTaskRepo struct {
	windows     []task.DueWindow
	byWindow    []([]*task.Task) // responses in call order
	recurring   []*task.Task
	created     []*task.Task
	advanced    map[int64]time.Time
	createErr   map[string]error // keyed by title
	recurErr    error
	advancedErr error
}

func (f *fakeTaskRepo) GetByID(context.Context, int64) (*task.Task, error) {
	return nil, errors.New("not found")
}

func (f *fakeTaskRepo) Create(_ context.Context, t *task.Task) error {
	if err := f.createErr[t.Title]; err != nil {
		return err
	}
	f.created = append(f.created, t)
	return nil
}

func (f *fakeTaskRepo) FindDueInWindow(_ context.Context, w task.DueWindow) ([]*task.Task, error) {
	f.windows = append(f.windows, w)
	if len(f.byWindow) == 0 {
		return nil, nil
	}
	out := f.byWindow[0]
	f.byWindow = f.byWindow[1:]
	return out, nil
}

func (f *fakeTaskRepo) FindRecurringDue(context.Context, time.Time) ([]*task.Task, error) {
	return f.recurring, f.recurErr
}

func (f *fakeTaskRepo) AdvanceRecurring(_ context.Context, id int64, next time.Time) error {
	if f.advancedErr != nil {
		return f.advancedErr
	}
	if f.advanced == nil {
		f.advanced = make(map[int64]time.Time)
	}
	f.advanced[id] = next
	return nil
}

type sentReminder struct {
	recipient int64
	kind      notification.Kind
	ev        svc.Event
}

type fakeNotifier struct {
	sent    []sentReminder
	failFor map[int64]error // recipient id -> error
}

func (f *fakeNotifier) NotifyOne(_ context.Context, recipientID int64, kind notification.Kind, ev svc.Event) (*notification.Notification, error) {
	if err, ok := f.failFor[recipientID]; ok {
		return nil, err
	}
	f.sent = append(f.sent, sentReminder{recipient: recipientID, kind: kind, ev: ev})
	return &notification.Notification{ID: int64(len(f.sent)), RecipientID: recipientID, Kind: kind}, nil
}

func dueTask(id, assignee int64, title string) *task.Task {
	a := assignee
	return &task.Task{ID: id, Title: title, Status: task.StatusPending, AssigneeID: &a}
}

/* tests */

func TestScannerQueriesDisjointWindows(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeTaskRepo{}
	s := NewScanner(zap.NewNop(), repo, &fakeNotifier{}, nil, func() time.Time { return now })

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, repo.windows, 3)

	overdue, urgent, soon := repo.windows[0], repo.windows[1], repo.windows[2]

	assert.Nil(t, overdue.From, "overdue window is open on the left")
	assert.Equal(t, now, overdue.To)

	require.NotNil(t, urgent.From)
	assert.Equal(t, now, *urgent.From)
	assert.Equal(t, now.Add(time.Hour), urgent.To)

	require.NotNil(t, soon.From)
	assert.Equal(t, now.Add(time.Hour), *soon.From, "soon starts where urgent ends")
	assert.Equal(t, now.Add(24*time.Hour), soon.To)
}

func TestScannerBucketsAndEscalation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeTaskRepo{byWindow: [][]*task.Task{
		{dueTask(1, 10, "ship release")},
		{dueTask(2, 11, "file report")},
		{dueTask(3, 12, "water plants")},
	}}
	notifier := &fakeNotifier{}
	s := NewScanner(zap.NewNop(), repo, notifier, nil, func() time.Time { return now })

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, notifier.sent, 3)

	overdue := notifier.sent[0]
	assert.Equal(t, int64(10), overdue.recipient)
	assert.Equal(t, notification.KindTaskOverdue, overdue.kind)
	require.NotNil(t, overdue.ev.Channels)
	assert.True(t, overdue.ev.Channels.Push, "overdue escalates to push")

	urgent := notifier.sent[1]
	assert.Equal(t, notification.KindTaskDueSoon, urgent.kind)
	require.NotNil(t, urgent.ev.Channels)
	assert.True(t, urgent.ev.Channels.Push, "due within the hour escalates to push")
	assert.Contains(t, urgent.ev.Title, "URGENT")

	soon := notifier.sent[2]
	assert.Equal(t, notification.KindTaskDueSoon, soon.kind)
	require.NotNil(t, soon.ev.Channels)
	assert.True(t, soon.ev.Channels.Email)
	assert.False(t, soon.ev.Channels.Push, "24-hour bucket stays off push")
}

func TestScannerSkipsUnassignedTasks(t *testing.T) {
	now := time.Now()
	unassigned := &task.Task{ID: 1, Title: "orphan", Status: task.StatusPending}
	repo := &fakeTaskRepo{byWindow: [][]*task.Task{
		{unassigned, dueTask(2, 10, "assigned")},
		nil,
		nil,
	}}
	notifier := &fakeNotifier{}
	s := NewScanner(zap.NewNop(), repo, notifier, nil, func() time.Time { return now })

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(10), notifier.sent[0].recipient)
}

func TestScannerRemindPredicate(t *testing.T) {
	now := time.Now()
	repo := &fakeTaskRepo{byWindow: [][]*task.Task{
		{dueTask(1, 10, "a")},
		nil,
		{dueTask(2, 11, "b")},
	}}
	notifier := &fakeNotifier{}
	onlyOverdue := func(_ *task.Task, b Bucket, _ time.Time) bool { return b == BucketOverdue }
	s := NewScanner(zap.NewNop(), repo, notifier, onlyOverdue, func() time.Time { return now })

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(10), notifier.sent[0].recipient)
}

func TestScannerIsolatesNotifyFailures(t *testing.T) {
	now := time.Now()
	repo := &fakeTaskRepo{byWindow: [][]*task.Task{
		{dueTask(1, 10, "a"), dueTask(2, 11, "b"), dueTask(3, 12, "c")},
		nil,
		nil,
	}}
	notifier := &fakeNotifier{failFor: map[int64]error{11: errors.New("kaboom")}}
	s := NewScanner(zap.NewNop(), repo, notifier, nil, func() time.Time { return now })

	require.NoError(t, s.Run(context.Background()), "per-task failures never fail the scan")
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, int64(10), notifier.sent[0].recipient)
	assert.Equal(t, int64(12), notifier.sent[1].recipient)
}
