// Package notifier is the out-of-process channel worker: it consumes
// delivery jobs and drives the email and push channels, tracking status
// per channel on the notification record. Channels are fire-and-forget
// from the producer's point of view; this worker is where the firing
// actually happens.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/domain/notification"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/obs"
	"github.com/taskhive/taskhive/internal/obs/retry"
	kafkax "github.com/taskhive/taskhive/internal/repository/kafka"
	"github.com/taskhive/taskhive/internal/repository/postgres"
)

// EmailSender is satisfied by Mailer; split out so tests can fake it.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Handler struct {
	log    *zap.Logger
	notifs notification.Repo
	users  user.Repo
	mail   EmailSender
	push   PushSender
}

func NewHandler(log *zap.Logger, notifs notification.Repo, users user.Repo, mail EmailSender, push PushSender) *Handler {
	return &Handler{
		log:    log.With(zap.String("component", "notifier.handler")),
		notifs: notifs,
		users:  users,
		mail:   mail,
		push:   push,
	}
}

// HandleDelivery processes one (notification, channel) job. A send failure
// marks the channel failed and consumes the job; only store errors
// propagate so the message can be retried later.
func (h *Handler) HandleDelivery(ctx context.Context, ev *kafkax.DeliveryRequested) error {
	log := obs.WithTrace(ctx, h.log).With(
		zap.Int64("notification_id", ev.NotificationID),
		zap.String("channel", string(ev.Channel)),
	)

	n, err := h.notifs.GetByID(ctx, ev.NotificationID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			// Deleted since the job was enqueued. Nothing to deliver.
			log.Debug("notification gone, dropping job")
			return nil
		}
		return fmt.Errorf("load notification: %w", err)
	}

	u, err := h.users.GetByID(ctx, n.RecipientID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			log.Warn("recipient gone, dropping job")
			return nil
		}
		return fmt.Errorf("load recipient: %w", err)
	}

	var sendErr error
	switch ev.Channel {
	case notification.ChannelEmail:
		if !n.Channels.Email {
			return nil
		}
		sendErr = retry.Do(ctx, func() error {
			return h.mail.Send(ctx, u.Email, n.Title, n.Message)
		}, retry.SendPolicy("email", log))
	case notification.ChannelPush:
		if !n.Channels.Push {
			return nil
		}
		sendErr = retry.Do(ctx, func() error {
			return h.push.Send(ctx, u.ID, n.Title, n.Message)
		}, retry.SendPolicy("push", log))
	default:
		log.Warn("job for unknown channel, dropping")
		return nil
	}

	status := notification.DeliveryDelivered
	if sendErr != nil {
		status = notification.DeliveryFailed
		log.Warn("channel delivery failed", zap.Error(sendErr))
	}

	if err := h.notifs.SetDeliveryStatus(ctx, n.ID, ev.Channel, status); err != nil {
		return fmt.Errorf("set delivery status: %w", err)
	}
	return nil
}
