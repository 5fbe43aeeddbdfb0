package synclog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlabs/webinsight/internal/models"
)

// Repository handles the append-only sync_history table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sync history repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts one audit row. Rows are never updated or deleted.
func (r *Repository) Append(ctx context.Context, h *models.SyncHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_history (id, user_id, sync_type, status, items_synced, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		h.ID, h.UserID, h.SyncType, h.Status, h.ItemsSynced, h.Message)
	return err
}

// ListByUser returns the most recent sync runs for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SyncHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, sync_type, status, items_synced, message, created_at
		 FROM sync_history WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SyncHistory
	for rows.Next() {
		var h models.SyncHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.SyncType, &h.Status, &h.ItemsSynced, &h.Message, &h.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}
