package database

import (
	"context"

	"github.com/google/uuid"
)

const getLatestSettings = `SELECT version, data FROM app_settings ORDER BY version DESC LIMIT 1`

// GetLatestSettings returns the newest settings document. It returns
// pgx.ErrNoRows before the first write.
func (q *Queries) GetLatestSettings(ctx context.Context) (int64, []byte, error) {
	var version int64
	var data []byte
	err := q.db.QueryRow(ctx, getLatestSettings).Scan(&version, &data)
	return version, data, err
}

const insertSettings = `INSERT INTO app_settings (data, updated_by) VALUES ($1, $2) RETURNING version`

func (q *Queries) InsertSettings(ctx context.Context, data []byte, updatedBy *uuid.UUID) (int64, error) {
	var version int64
	err := q.db.QueryRow(ctx, insertSettings, data, updatedBy).Scan(&version)
	return version, err
}
