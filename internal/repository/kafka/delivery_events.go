package kafka

import (
	"context"

	"github.com/taskhive/taskhive/internal/domain/notification"
)

// DeliveryRequested is the wire message handed to the channel worker. One
// message per (notification, channel) pair.
type DeliveryRequested struct {
	NotificationID int64                `json:"notification_id"`
	Channel        notification.Channel `json:"channel"`
}

type DeliveryEventsKafka struct {
	p *Producer
}

var _ notification.DeliveryEvents = (*DeliveryEventsKafka)(nil)

func NewDeliveryEventsKafka(p *Producer) *DeliveryEventsKafka { return &DeliveryEventsKafka{p: p} }

func (e *DeliveryEventsKafka) PublishDeliveryRequested(ctx context.Context, notificationID int64, ch notification.Channel) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(notificationID), DeliveryRequested{
		NotificationID: notificationID,
		Channel:        ch,
	})
}
