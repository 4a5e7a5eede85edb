package notification

import (
	"errors"
	"time"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrBadKind    = errors.New("unknown notification kind")
)

type Kind string

const (
	KindTaskAssigned  Kind = "task_assigned"
	KindTaskCompleted Kind = "task_completed"
	KindTaskDueSoon   Kind = "task_due_soon"
	KindTaskOverdue   Kind = "task_overdue"
	KindCommentAdded  Kind = "comment_added"
	KindMention       Kind = "mention"
	KindProjectInvite Kind = "project_invite"
	KindProjectUpdate Kind = "project_update"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTaskAssigned, KindTaskCompleted, KindTaskDueSoon, KindTaskOverdue,
		KindCommentAdded, KindMention, KindProjectInvite, KindProjectUpdate:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Channels marks which delivery channels a notification is routed to.
// The zero value routes nowhere; DefaultChannels is in-app only.
type Channels struct {
	InApp bool `json:"in_app"`
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

func DefaultChannels() Channels { return Channels{InApp: true} }

// Delivery tracks per-channel delivery state independently.
type Delivery struct {
	InApp DeliveryStatus `json:"in_app"`
	Email DeliveryStatus `json:"email"`
	Push  DeliveryStatus `json:"push"`
}

func PendingDelivery() Delivery {
	return Delivery{InApp: DeliveryPending, Email: DeliveryPending, Push: DeliveryPending}
}

// Notification is a durable per-recipient record. Fan-out of one logical
// event to N recipients produces N records, never one record shared by many.
type Notification struct {
	ID               int64     `json:"id"`
	RecipientID      int64     `json:"recipient_id"`
	SenderID         *int64    `json:"sender_id,omitempty"`
	Kind             Kind      `json:"kind"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	RelatedTaskID    *int64    `json:"related_task_id,omitempty"`
	RelatedProjectID *int64    `json:"related_project_id,omitempty"`
	Read             bool      `json:"read"`
	Channels         Channels  `json:"channels"`
	Delivery         Delivery  `json:"delivery"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the fields required before any write.
func (n *Notification) Validate() error {
	if n.RecipientID <= 0 || n.Title == "" || n.Message == "" {
		return ErrValidation
	}
	if !n.Kind.Valid() {
		return ErrBadKind
	}
	return nil
}

// View is a notification enriched with display fields resolved for the
// realtime payload: who sent it and what it is about.
type View struct {
	Notification
	SenderName       string `json:"sender_name,omitempty"`
	SenderAvatar     string `json:"sender_avatar,omitempty"`
	RelatedTaskTitle string `json:"related_task_title,omitempty"`
	RelatedProject   string `json:"related_project_name,omitempty"`
}
