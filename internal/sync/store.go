package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumenlabs/webinsight/internal/models"
)

// Store is the row-level cache the sync subsystem writes through. Only
// upsert/select semantics are assumed; non-destructive behavior comes from
// never issuing deletes, not from transactions or locking.
type Store interface {
	// ListWebinars returns the cached webinars for a user, ordered by
	// start_time descending.
	ListWebinars(ctx context.Context, userID uuid.UUID) ([]models.Webinar, error)
	// UpsertWebinar inserts or updates on conflict (user_id, webinar_id).
	UpsertWebinar(ctx context.Context, w *models.Webinar) error
	// ListInstances returns cached instances of one webinar.
	ListInstances(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.WebinarInstance, error)
	// UpsertInstance inserts or updates on conflict
	// (user_id, webinar_id, instance_id).
	UpsertInstance(ctx context.Context, inst *models.WebinarInstance) error
}

// HistoryStore appends sync-history audit rows.
type HistoryStore interface {
	Append(ctx context.Context, h *models.SyncHistory) error
}

// ProgressPublisher receives stage-transition events during a run. Wired to
// the realtime hub in production; a no-op in tests.
type ProgressPublisher interface {
	PublishProgress(userID uuid.UUID, stage string, detail map[string]interface{})
}

// NopProgress discards progress events.
type NopProgress struct{}

// PublishProgress implements ProgressPublisher.
func (NopProgress) PublishProgress(uuid.UUID, string, map[string]interface{}) {}
