package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/database"
)

// AuditStore persists audit entries.
// Satisfied by *database.Queries.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error)
}

// Auditor writes audit entries. A failed write is logged and never fails
// the operation being audited.
type Auditor struct {
	store  AuditStore
	logger *zap.Logger
}

// NewAuditor creates a new Auditor.
func NewAuditor(store AuditStore, logger *zap.Logger) *Auditor {
	return &Auditor{store: store, logger: logger}
}

// AuditEntry is one recorded action.
type AuditEntry struct {
	ActorID    *uuid.UUID
	Action     string
	TargetType string
	TargetID   string
	Before     any
	After      any
	Metadata   map[string]any
}

// Record stores e. Safe on a nil *Auditor.
func (a *Auditor) Record(ctx context.Context, e AuditEntry) {
	if a == nil {
		return
	}
	_, err := a.store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		ActorUserID: e.ActorID,
		Action:      e.Action,
		TargetType:  e.TargetType,
		TargetID:    strPtr(e.TargetID),
		Before:      toJSON(e.Before),
		After:       toJSON(e.After),
		Metadata:    toJSON(e.Metadata),
	})
	if err != nil {
		a.logger.Warn("audit log write failed",
			zap.String("action", e.Action),
			zap.String("target_type", e.TargetType),
			zap.String("target_id", e.TargetID),
			zap.Error(err),
		)
	}
}

// toJSON returns nil for a nil value so the column stays NULL.
func toJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok && m == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
