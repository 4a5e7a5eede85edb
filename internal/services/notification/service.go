// Package notification orchestrates fan-out of domain events: preference
// filtering, durable per-recipient records, realtime push, and hand-off to
// the out-of-process delivery channels.
package notification

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/domain/notification"
	"github.com/taskhive/taskhive/internal/domain/project"
	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/obs"
)

// EventName is the realtime event carrying a freshly created notification.
const EventName = "new_notification"

// Event is the caller-supplied payload of one logical domain event.
// Channels nil means the in-app default. De-duplication of recipients and
// exclusion of the acting user are the caller's job; only the caller knows
// who acted.
type Event struct {
	Title            string
	Message          string
	SenderID         *int64
	RelatedTaskID    *int64
	RelatedProjectID *int64
	Channels         *notification.Channels
}

type Service struct {
	log      *zap.Logger
	store    notification.Repo
	filter   *PreferenceFilter
	fanout   notification.Fanout
	delivery notification.DeliveryEvents
	users    user.Repo
	tasks    task.Repo
	projects project.Repo
}

func NewService(
	log *zap.Logger,
	store notification.Repo,
	filter *PreferenceFilter,
	fanout notification.Fanout,
	delivery notification.DeliveryEvents,
	users user.Repo,
	tasks task.Repo,
	projects project.Repo,
) *Service {
	return &Service{
		log:      log.With(zap.String("component", "notification.service")),
		store:    store,
		filter:   filter,
		fanout:   fanout,
		delivery: delivery,
		users:    users,
		tasks:    tasks,
		projects: projects,
	}
}

// NotifyMany fans one logical event out to recipientIDs. Recipients are
// narrowed by the preference filter; each surviving recipient gets its own
// record. Creation is independent per recipient: a failed write is logged
// and skipped, it neither rolls back earlier records nor stops later ones.
// Realtime push and channel hand-off happen after each durable write and
// never fail the call.
func (s *Service) NotifyMany(ctx context.Context, recipientIDs []int64, kind notification.Kind, ev Event) ([]*notification.Notification, error) {
	if len(recipientIDs) == 0 || ev.Title == "" || ev.Message == "" {
		return nil, notification.ErrValidation
	}
	if !kind.Valid() {
		return nil, notification.ErrBadKind
	}

	tr := otel.Tracer("notification.service")
	ctx, span := tr.Start(ctx, "notify_many",
		trace.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.Int("candidates", len(recipientIDs)),
		),
	)
	defer span.End()

	log := obs.WithTrace(ctx, s.log).With(zap.String("kind", string(kind)))

	recipients, err := s.filter.Filter(ctx, recipientIDs, kind)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("filter recipients: %w", err)
	}
	if len(recipients) == 0 {
		// Everyone opted out or is inactive. Normal, not an error.
		log.Debug("no recipients after preference filter", zap.Int("candidates", len(recipientIDs)))
		return nil, nil
	}

	channels := notification.DefaultChannels()
	if ev.Channels != nil {
		channels = *ev.Channels
	}

	display := s.resolveDisplay(ctx, ev)

	created := make([]*notification.Notification, 0, len(recipients))
	for _, rcpt := range recipients {
		n := &notification.Notification{
			RecipientID:      rcpt.ID,
			SenderID:         ev.SenderID,
			Kind:             kind,
			Title:            ev.Title,
			Message:          ev.Message,
			RelatedTaskID:    ev.RelatedTaskID,
			RelatedProjectID: ev.RelatedProjectID,
			Channels:         channels,
			Delivery:         notification.PendingDelivery(),
		}
		if err := s.store.Create(ctx, n); err != nil {
			span.RecordError(err)
			log.Error("create notification failed",
				zap.Int64("recipient_id", rcpt.ID),
				zap.Error(err),
			)
			continue
		}
		created = append(created, n)

		s.push(log, n, display)
		s.enqueueChannels(ctx, log, n)
	}

	span.SetAttributes(
		attribute.Int("filtered", len(recipients)),
		attribute.Int("created", len(created)),
	)
	return created, nil
}

// NotifyOne is the single-recipient case of NotifyMany and shares its
// contract.
func (s *Service) NotifyOne(ctx context.Context, recipientID int64, kind notification.Kind, ev Event) (*notification.Notification, error) {
	created, err := s.NotifyMany(ctx, []int64{recipientID}, kind, ev)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, nil
	}
	return created[0], nil
}

// ProjectUpdateKind names the flavors of NotifyProjectUpdate.
type ProjectUpdateKind string

const (
	ProjectMemberAdded   ProjectUpdateKind = "member_added"
	ProjectMemberRemoved ProjectUpdateKind = "member_removed"
	ProjectUpdated       ProjectUpdateKind = "project_updated"
	ProjectStatusChanged ProjectUpdateKind = "project_status_changed"
)

// ProjectUpdate describes who changed a project and how.
type ProjectUpdate struct {
	SenderID   int64
	SenderName string
	NewStatus  string
}

// NotifyProjectUpdate resolves the project's members and owner, excludes
// the acting user, and fans a project_update event out to the rest.
func (s *Service) NotifyProjectUpdate(ctx context.Context, projectID int64, updateKind ProjectUpdateKind, upd ProjectUpdate) ([]*notification.Notification, error) {
	if projectID <= 0 || upd.SenderID <= 0 {
		return nil, notification.ErrValidation
	}

	proj, err := s.projects.GetWithMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	notifyIDs := make([]int64, 0, len(proj.Members)+1)
	for _, id := range proj.MemberIDs() {
		if id != upd.SenderID {
			notifyIDs = append(notifyIDs, id)
		}
	}
	if len(notifyIDs) == 0 {
		return nil, nil
	}

	title, message := projectUpdateText(proj.Name, updateKind, upd)
	sender := upd.SenderID
	return s.NotifyMany(ctx, notifyIDs, notification.KindProjectUpdate, Event{
		Title:            title,
		Message:          message,
		SenderID:         &sender,
		RelatedProjectID: &proj.ID,
	})
}

func projectUpdateText(projectName string, kind ProjectUpdateKind, upd ProjectUpdate) (string, string) {
	switch kind {
	case ProjectMemberAdded:
		return "New Team Member",
			fmt.Sprintf("%s added a new member to project %q", upd.SenderName, projectName)
	case ProjectMemberRemoved:
		return "Team Member Removed",
			fmt.Sprintf("A member was removed from project %q", projectName)
	case ProjectUpdated:
		return "Project Updated",
			fmt.Sprintf("%s updated project %q", upd.SenderName, projectName)
	case ProjectStatusChanged:
		return "Project Status Changed",
			fmt.Sprintf("Project %q status changed to %s", projectName, upd.NewStatus)
	default:
		return "Project Update",
			fmt.Sprintf("Project %q has been updated", projectName)
	}
}

// display holds the event-level fields shared by every recipient's view.
type display struct {
	senderName   string
	senderAvatar string
	taskTitle    string
	projectName  string
}

func (s *Service) resolveDisplay(ctx context.Context, ev Event) display {
	var d display
	if ev.SenderID != nil {
		if u, err := s.users.GetByID(ctx, *ev.SenderID); err == nil {
			d.senderName = u.DisplayName()
			d.senderAvatar = u.Avatar
		}
	}
	if ev.RelatedTaskID != nil {
		if t, err := s.tasks.GetByID(ctx, *ev.RelatedTaskID); err == nil {
			d.taskTitle = t.Title
			if d.projectName == "" {
				d.projectName = t.ProjectName
			}
		}
	}
	if ev.RelatedProjectID != nil {
		if p, err := s.projects.GetWithMembers(ctx, *ev.RelatedProjectID); err == nil {
			d.projectName = p.Name
		}
	}
	return d
}

// push attempts realtime delivery. The record is already durable; a push
// failure is invisible to the caller.
func (s *Service) push(log *zap.Logger, n *notification.Notification, d display) {
	if s.fanout == nil {
		return
	}
	view := notification.View{
		Notification:     *n,
		SenderName:       d.senderName,
		SenderAvatar:     d.senderAvatar,
		RelatedTaskTitle: d.taskTitle,
		RelatedProject:   d.projectName,
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("realtime push panic", zap.Int64("notification_id", n.ID), zap.Any("panic", r))
		}
	}()
	s.fanout.Push(n.RecipientID, EventName, map[string]any{"notification": view})
}

// enqueueChannels hands the record to the channel worker for every enabled
// out-of-process channel. Fire-and-forget: a publish failure is logged and
// the channel stays pending.
func (s *Service) enqueueChannels(ctx context.Context, log *zap.Logger, n *notification.Notification) {
	if s.delivery == nil {
		return
	}
	for ch, enabled := range map[notification.Channel]bool{
		notification.ChannelEmail: n.Channels.Email,
		notification.ChannelPush:  n.Channels.Push,
	} {
		if !enabled {
			continue
		}
		if err := s.delivery.PublishDeliveryRequested(ctx, n.ID, ch); err != nil {
			log.Warn("enqueue delivery failed",
				zap.Int64("notification_id", n.ID),
				zap.String("channel", string(ch)),
				zap.Error(err),
			)
		}
	}
}

// Read side. Thin passthroughs so transport handlers depend on the service
// alone.

func (s *Service) List(ctx context.Context, userID int64, q notification.ListQuery) ([]*notification.Notification, int, error) {
	return s.store.List(ctx, userID, q)
}

func (s *Service) MarkRead(ctx context.Context, id, requesterID int64) (*notification.Notification, error) {
	return s.store.MarkRead(ctx, id, requesterID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, id, requesterID int64) error {
	return s.store.Delete(ctx, id, requesterID)
}
