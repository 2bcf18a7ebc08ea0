package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, customer_id, type, channel, title, body, read_at, metadata, created_at`

func scanNotification(row rowScanner) (Notification, error) {
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.CustomerID,
		&i.Type,
		&i.Channel,
		&i.Title,
		&i.Body,
		&i.ReadAt,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const createNotification = `INSERT INTO notifications (user_id, customer_id, type, channel, title, body, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + notificationColumns

type CreateNotificationParams struct {
	UserID     *uuid.UUID
	CustomerID *uuid.UUID
	Type       string
	Channel    string
	Title      string
	Body       string
	Metadata   json.RawMessage
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, createNotification,
		arg.UserID,
		arg.CustomerID,
		arg.Type,
		arg.Channel,
		arg.Title,
		arg.Body,
		arg.Metadata,
	)
	return scanNotification(row)
}

const listNotifications = `SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = $1 AND ($2 = false OR read_at IS NULL)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotifications, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNotification)
}

const countNotifications = `SELECT count(*) FROM notifications WHERE user_id = $1 AND ($2 = false OR read_at IS NULL)`

func (q *Queries) CountNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countNotifications, userID, unreadOnly).Scan(&n)
	return n, err
}

const markNotificationRead = `UPDATE notifications SET read_at = COALESCE(read_at, now())
WHERE id = $1 AND user_id = $2
RETURNING ` + notificationColumns

func (q *Queries) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, markNotificationRead, id, userID))
}

const markAllNotificationsRead = `UPDATE notifications SET read_at = now() WHERE user_id = $1 AND read_at IS NULL`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markAllNotificationsRead, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
