package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskhive/taskhive/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notifCols = `
id, recipient_id, sender_id, kind, title, message, related_task_id, related_project_id,
is_read, channel_in_app, channel_email, channel_push,
delivery_in_app, delivery_email, delivery_push, created_at`

const (
	qNotifInsert = `
INSERT INTO notifications
  (recipient_id, sender_id, kind, title, message, related_task_id, related_project_id,
   channel_in_app, channel_email, channel_push)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + notifCols + `;`

	qNotifByID = `
SELECT ` + notifCols + `
FROM notifications
WHERE id = $1;`

	qNotifMarkRead = `
UPDATE notifications
SET is_read = TRUE, delivery_in_app = 'delivered'
WHERE id = $1 AND recipient_id = $2
RETURNING ` + notifCols + `;`

	qNotifMarkAllRead = `
UPDATE notifications
SET is_read = TRUE
WHERE recipient_id = $1 AND is_read = FALSE;`

	qNotifDelete = `
DELETE FROM notifications
WHERE id = $1 AND recipient_id = $2;`

	qNotifList = `
SELECT ` + notifCols + `
FROM notifications
WHERE recipient_id = $1 AND ($2::bool = FALSE OR is_read = FALSE)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;`

	qNotifCount = `
SELECT COUNT(*)
FROM notifications
WHERE recipient_id = $1 AND ($2::bool = FALSE OR is_read = FALSE);`

	qNotifUnread = `
SELECT COUNT(*)
FROM notifications
WHERE recipient_id = $1 AND is_read = FALSE;`

	qNotifDelivery = `
UPDATE notifications
SET delivery_in_app = CASE WHEN $2 = 'in_app' THEN $3 ELSE delivery_in_app END,
    delivery_email  = CASE WHEN $2 = 'email'  THEN $3 ELSE delivery_email  END,
    delivery_push   = CASE WHEN $2 = 'push'   THEN $3 ELSE delivery_push   END
WHERE id = $1;`
)

func scanNotification(row pgx.Row, n *notification.Notification) error {
	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.SenderID,
		&n.Kind,
		&n.Title,
		&n.Message,
		&n.RelatedTaskID,
		&n.RelatedProjectID,
		&n.Read,
		&n.Channels.InApp,
		&n.Channels.Email,
		&n.Channels.Push,
		&n.Delivery.InApp,
		&n.Delivery.Email,
		&n.Delivery.Push,
		&n.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.Pool.QueryRow(ctx, qNotifInsert,
		n.RecipientID,
		n.SenderID,
		n.Kind,
		n.Title,
		n.Message,
		n.RelatedTaskID,
		n.RelatedProjectID,
		n.Channels.InApp,
		n.Channels.Email,
		n.Channels.Push,
	)
	if err := scanNotification(row, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id int64) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	if err := scanNotification(r.db.Pool.QueryRow(ctx, qNotifByID, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id, requesterID int64) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	if err := scanNotification(r.db.Pool.QueryRow(ctx, qNotifMarkRead, id, requesterID), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qNotifMarkAllRead, userID); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id, requesterID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifDelete, id, requesterID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) List(ctx context.Context, userID int64, q notification.ListQuery) ([]*notification.Notification, int, error) {
	q = q.Normalize()

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	offset := (q.Page - 1) * q.PageSize
	rows, err := r.db.Pool.Query(ctx, qNotifList, userID, q.UnreadOnly, q.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0, q.PageSize)
	for rows.Next() {
		var n notification.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, 0, err
		}
		nc := n
		out = append(out, &nc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, qNotifCount, userID, q.UnreadOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return out, total, nil
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.Pool.QueryRow(ctx, qNotifUnread, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

func (r *NotificationRepo) SetDeliveryStatus(ctx context.Context, id int64, ch notification.Channel, st notification.DeliveryStatus) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifDelivery, id, string(ch), string(st))
	if err != nil {
		return fmt.Errorf("set delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
