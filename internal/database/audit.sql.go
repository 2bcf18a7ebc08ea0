package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const auditLogColumns = `id, actor_user_id, action, target_type, target_id, before, after, metadata, created_at`

func scanAuditLog(row rowScanner) (AuditLog, error) {
	var i AuditLog
	err := row.Scan(
		&i.ID,
		&i.ActorUserID,
		&i.Action,
		&i.TargetType,
		&i.TargetID,
		&i.Before,
		&i.After,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const createAuditLog = `INSERT INTO audit_logs (actor_user_id, action, target_type, target_id, before, after, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + auditLogColumns

type CreateAuditLogParams struct {
	ActorUserID *uuid.UUID
	Action      string
	TargetType  string
	TargetID    *string
	Before      json.RawMessage
	After       json.RawMessage
	Metadata    json.RawMessage
}

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) (AuditLog, error) {
	row := q.db.QueryRow(ctx, createAuditLog,
		arg.ActorUserID,
		arg.Action,
		arg.TargetType,
		arg.TargetID,
		arg.Before,
		arg.After,
		arg.Metadata,
	)
	return scanAuditLog(row)
}

const getAuditLog = `SELECT ` + auditLogColumns + ` FROM audit_logs WHERE id = $1`

func (q *Queries) GetAuditLog(ctx context.Context, id uuid.UUID) (AuditLog, error) {
	return scanAuditLog(q.db.QueryRow(ctx, getAuditLog, id))
}

type AuditLogFilter struct {
	Action     *string
	TargetType *string
	TargetID   *string
}

const listAuditLogs = `SELECT ` + auditLogColumns + ` FROM audit_logs
WHERE ($1::text IS NULL OR action = $1)
  AND ($2::text IS NULL OR target_type = $2)
  AND ($3::text IS NULL OR target_id = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`

func (q *Queries) ListAuditLogs(ctx context.Context, f AuditLogFilter, limit, offset int32) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogs, f.Action, f.TargetType, f.TargetID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAuditLog)
}

const countAuditLogs = `SELECT count(*) FROM audit_logs
WHERE ($1::text IS NULL OR action = $1)
  AND ($2::text IS NULL OR target_type = $2)
  AND ($3::text IS NULL OR target_id = $3)`

func (q *Queries) CountAuditLogs(ctx context.Context, f AuditLogFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countAuditLogs, f.Action, f.TargetType, f.TargetID).Scan(&n)
	return n, err
}
