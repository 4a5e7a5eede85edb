package notification

import "context"

// ListQuery selects a page of a user's notifications, newest first.
// Page is 1-indexed.
type ListQuery struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	return q
}

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)

	// MarkRead and Delete are predicated on ownership: a record that does
	// not exist and a record owned by someone else both come back as
	// not-found, so callers cannot probe for existence.
	MarkRead(ctx context.Context, id, requesterID int64) (*Notification, error)
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, id, requesterID int64) error

	List(ctx context.Context, userID int64, q ListQuery) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)

	SetDeliveryStatus(ctx context.Context, id int64, ch Channel, st DeliveryStatus) error
}

// Fanout pushes an event to a recipient's live sessions. Best-effort: no
// session is a no-op, and a delivery failure never propagates to the
// durable write that preceded it.
type Fanout interface {
	Push(userID int64, event string, payload any)
}

// DeliveryEvents hands a notification off to the out-of-process channel
// worker (email, push). Fire-and-forget from the caller's point of view.
type DeliveryEvents interface {
	PublishDeliveryRequested(ctx context.Context, notificationID int64, ch Channel) error
}
