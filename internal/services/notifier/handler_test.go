package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/domain/notification"
	"github.com/taskhive/taskhive/internal/domain/user"
	kafkax "github.com/taskhive/taskhive/internal/repository/kafka"
	"github.com/taskhive/taskhive/internal/repository/postgres"
)

/* fakes */

type fakeNotifStore struct {
	byID     map[int64]*notification.Notification
	statuses map[notification.Channel]notification.DeliveryStatus
}

func (s *fakeNotifStore) Create(context.Context, *notification.Notification) error {
	return errors.New("read only")
}

func (s *fakeNotifStore) GetByID(_ context.Context, id int64) (*notification.Notification, error) {
	if n, ok := s.byID[id]; ok {
		return n, nil
	}
	return nil, postgres.ErrNotFound
}

func (s *fakeNotifStore) MarkRead(context.Context, int64, int64) (*notification.Notification, error) {
	return nil, postgres.ErrNotFound
}
func (s *fakeNotifStore) MarkAllRead(context.Context, int64) error { return nil }
func (s *fakeNotifStore) Delete(context.Context, int64, int64) error {
	return postgres.ErrNotFound
}
func (s *fakeNotifStore) List(context.Context, int64, notification.ListQuery) ([]*notification.Notification, int, error) {
	return nil, 0, nil
}
func (s *fakeNotifStore) UnreadCount(context.Context, int64) (int, error) { return 0, nil }

func (s *fakeNotifStore) SetDeliveryStatus(_ context.Context, _ int64, ch notification.Channel, st notification.DeliveryStatus) error {
	if s.statuses == nil {
		s.statuses = make(map[notification.Channel]notification.DeliveryStatus)
	}
	s.statuses[ch] = st
	return nil
}

type fakeRecipients struct {
	byID map[int64]*user.User
}

func (f *fakeRecipients) GetByID(_ context.Context, id int64) (*user.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, postgres.ErrNotFound
}
func (f *fakeRecipients) FindActive(context.Context, []int64) ([]*user.User, error) {
	return nil, nil
}
func (f *fakeRecipients) UpdatePrefs(context.Context, int64, user.Prefs) error { return nil }

type fakeMailer struct {
	sent []string // recipient addresses
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakePush struct {
	sent []int64
}

func (p *fakePush) Send(_ context.Context, userID int64, _, _ string) error {
	p.sent = append(p.sent, userID)
	return nil
}

/* harness */

func seededHandler(mail *fakeMailer, push *fakePush) (*Handler, *fakeNotifStore) {
	store := &fakeNotifStore{byID: map[int64]*notification.Notification{
		1: {
			ID:          1,
			RecipientID: 7,
			Kind:        notification.KindTaskOverdue,
			Title:       "Task Overdue",
			Message:     "Task is overdue",
			Channels:    notification.Channels{InApp: true, Email: true, Push: true},
			Delivery:    notification.PendingDelivery(),
		},
		2: {
			ID:          2,
			RecipientID: 7,
			Kind:        notification.KindCommentAdded,
			Title:       "New Comment",
			Message:     "Someone commented",
			Channels:    notification.DefaultChannels(), // in-app only
			Delivery:    notification.PendingDelivery(),
		},
	}}
	users := &fakeRecipients{byID: map[int64]*user.User{
		7: {ID: 7, Email: "dev@example.com", Active: true},
	}}
	return NewHandler(zap.NewNop(), store, users, mail, push), store
}

/* tests */

func TestHandleDeliveryEmail(t *testing.T) {
	mail := &fakeMailer{}
	h, store := seededHandler(mail, &fakePush{})

	err := h.HandleDelivery(context.Background(), &kafkax.DeliveryRequested{
		NotificationID: 1,
		Channel:        notification.ChannelEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev@example.com"}, mail.sent)
	assert.Equal(t, notification.DeliveryDelivered, store.statuses[notification.ChannelEmail])
}

func TestHandleDeliveryPush(t *testing.T) {
	push := &fakePush{}
	h, store := seededHandler(&fakeMailer{}, push)

	err := h.HandleDelivery(context.Background(), &kafkax.DeliveryRequested{
		NotificationID: 1,
		Channel:        notification.ChannelPush,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, push.sent)
	assert.Equal(t, notification.DeliveryDelivered, store.statuses[notification.ChannelPush])
}

func TestHandleDeliverySendFailureMarksFailed(t *testing.T) {
	mail := &fakeMailer{err: errors.New("smtp unreachable")}
	h, store := seededHandler(mail, &fakePush{})

	err := h.HandleDelivery(context.Background(), &kafkax.DeliveryRequested{
		NotificationID: 1,
		Channel:        notification.ChannelEmail,
	})
	require.NoError(t, err, "a send failure consumes the job, it does not requeue")
	assert.Equal(t, notification.DeliveryFailed, store.statuses[notification.ChannelEmail])
}

func TestHandleDeliveryChannelDisabled(t *testing.T) {
	mail := &fakeMailer{}
	h, store := seededHandler(mail, &fakePush{})

	err := h.HandleDelivery(context.Background(), &kafkax.DeliveryRequested{
		NotificationID: 2, // in-app only
		Channel:        notification.ChannelEmail,
	})
	require.NoError(t, err)
	assert.Empty(t, mail.sent)
	assert.Empty(t, store.statuses)
}

func TestHandleDeliveryNotificationGone(t *testing.T) {
	mail := &fakeMailer{}
	h, store := seededHandler(mail, &fakePush{})

	err := h.HandleDelivery(context.Background(), &kafkax.DeliveryRequested{
		NotificationID: 404,
		Channel:        notification.ChannelEmail,
	})
	require.NoError(t, err, "a deleted notification drops the job")
	assert.Empty(t, mail.sent)
	assert.Empty(t, store.statuses)
}

func TestHandleDeliveryUnknownChannel(t *testing.T) {
	mail := &fakeMailer{}
	h, store := seededHandler(mail, &fakePush{})

	err := h.HandleDelivery(context.Background(), &kafkax.DeliveryRequested{
		NotificationID: 1,
		Channel:        notification.Channel("fax"),
	})
	require.NoError(t, err)
	assert.Empty(t, mail.sent)
	assert.Empty(t, store.statuses)
}
