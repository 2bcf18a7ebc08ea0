package database

import (
	"context"

	"github.com/google/uuid"
)

const chatThreadColumns = `id, order_id, customer_id, subject, status, created_by, created_at, updated_at`

func scanChatThread(row rowScanner) (ChatThread, error) {
	var i ChatThread
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.CustomerID,
		&i.Subject,
		&i.Status,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createChatThread = `INSERT INTO chat_threads (order_id, customer_id, subject, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + chatThreadColumns

type CreateChatThreadParams struct {
	OrderID    *uuid.UUID
	CustomerID uuid.UUID
	Subject    *string
	CreatedBy  string
}

func (q *Queries) CreateChatThread(ctx context.Context, arg CreateChatThreadParams) (ChatThread, error) {
	return scanChatThread(q.db.QueryRow(ctx, createChatThread, arg.OrderID, arg.CustomerID, arg.Subject, arg.CreatedBy))
}

const getChatThread = `SELECT ` + chatThreadColumns + ` FROM chat_threads WHERE id = $1`

func (q *Queries) GetChatThread(ctx context.Context, id uuid.UUID) (ChatThread, error) {
	return scanChatThread(q.db.QueryRow(ctx, getChatThread, id))
}

const getChatThreadByOrder = `SELECT ` + chatThreadColumns + ` FROM chat_threads WHERE order_id = $1`

func (q *Queries) GetChatThreadByOrder(ctx context.Context, orderID uuid.UUID) (ChatThread, error) {
	return scanChatThread(q.db.QueryRow(ctx, getChatThreadByOrder, orderID))
}

type ChatThreadFilter struct {
	CustomerID *uuid.UUID
	Status     *string
}

const listChatThreads = `SELECT ` + chatThreadColumns + ` FROM chat_threads
WHERE ($1::uuid IS NULL OR customer_id = $1)
  AND ($2::text IS NULL OR status = $2)
ORDER BY updated_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListChatThreads(ctx context.Context, f ChatThreadFilter, limit, offset int32) ([]ChatThread, error) {
	rows, err := q.db.Query(ctx, listChatThreads, f.CustomerID, f.Status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanChatThread)
}

const countChatThreads = `SELECT count(*) FROM chat_threads
WHERE ($1::uuid IS NULL OR customer_id = $1)
  AND ($2::text IS NULL OR status = $2)`

func (q *Queries) CountChatThreads(ctx context.Context, f ChatThreadFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countChatThreads, f.CustomerID, f.Status).Scan(&n)
	return n, err
}

const closeChatThread = `UPDATE chat_threads SET status = 'closed', updated_at = now() WHERE id = $1 RETURNING ` + chatThreadColumns

func (q *Queries) CloseChatThread(ctx context.Context, id uuid.UUID) (ChatThread, error) {
	return scanChatThread(q.db.QueryRow(ctx, closeChatThread, id))
}

const touchChatThread = `UPDATE chat_threads SET updated_at = now() WHERE id = $1`

func (q *Queries) TouchChatThread(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchChatThread, id)
	return err
}

// --- Messages ---

const chatMessageColumns = `id, thread_id, sender_type, sender_customer_id, sender_user_id, body, created_at`

func scanChatMessage(row rowScanner) (ChatMessage, error) {
	var i ChatMessage
	err := row.Scan(
		&i.ID,
		&i.ThreadID,
		&i.SenderType,
		&i.SenderCustomerID,
		&i.SenderUserID,
		&i.Body,
		&i.CreatedAt,
	)
	return i, err
}

const createChatMessage = `INSERT INTO chat_messages (thread_id, sender_type, sender_customer_id, sender_user_id, body)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + chatMessageColumns

type CreateChatMessageParams struct {
	ThreadID         uuid.UUID
	SenderType       string
	SenderCustomerID *uuid.UUID
	SenderUserID     *uuid.UUID
	Body             string
}

func (q *Queries) CreateChatMessage(ctx context.Context, arg CreateChatMessageParams) (ChatMessage, error) {
	row := q.db.QueryRow(ctx, createChatMessage,
		arg.ThreadID,
		arg.SenderType,
		arg.SenderCustomerID,
		arg.SenderUserID,
		arg.Body,
	)
	return scanChatMessage(row)
}

const listChatMessages = `SELECT ` + chatMessageColumns + ` FROM chat_messages
WHERE thread_id = $1
ORDER BY created_at
LIMIT $2 OFFSET $3`

func (q *Queries) ListChatMessages(ctx context.Context, threadID uuid.UUID, limit, offset int32) ([]ChatMessage, error) {
	rows, err := q.db.Query(ctx, listChatMessages, threadID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanChatMessage)
}

const countChatMessages = `SELECT count(*) FROM chat_messages WHERE thread_id = $1`

func (q *Queries) CountChatMessages(ctx context.Context, threadID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countChatMessages, threadID).Scan(&n)
	return n, err
}
