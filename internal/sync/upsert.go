package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/models"
)

// upsertBatchSize bounds per-call latency against the store.
const upsertBatchSize = 10

// UpsertEngine reconciles a freshly fetched webinar batch against the cached
// set. Inserts new rows, updates rows whose significant fields changed, and
// leaves untouched any cached row absent from the fetch: a webinar missing
// from one run (provider outage, rolling window) must never lose its history.
type UpsertEngine struct {
	store  Store
	clock  Clock
	logger *zap.Logger
}

// NewUpsertEngine creates an upsert engine over the given store. A nil clock
// defaults to the system clock.
func NewUpsertEngine(store Store, clock Clock, logger *zap.Logger) *UpsertEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpsertEngine{store: store, clock: clock, logger: logger}
}

// Reconcile applies the fetched set for one user and reports counts. Per-item
// store failures are logged and skipped; the batch always completes.
func (u *UpsertEngine) Reconcile(ctx context.Context, userID uuid.UUID, fetched []models.Webinar) (models.SyncResults, error) {
	results := models.SyncResults{}

	cached, err := u.store.ListWebinars(ctx, userID)
	if err != nil {
		return results, err
	}
	cachedByID := make(map[string]*models.Webinar, len(cached))
	for i := range cached {
		cachedByID[cached[i].WebinarID] = &cached[i]
	}

	fetchedIDs := make(map[string]bool, len(fetched))

	for start := 0; start < len(fetched); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(fetched) {
			end = len(fetched)
		}
		for i := start; i < end; i++ {
			w := &fetched[i]
			fetchedIDs[w.WebinarID] = true

			existing, ok := cachedByID[w.WebinarID]
			if ok && !significantFieldsChanged(existing, w) {
				// Cosmetic no-op: identical significant fields are not
				// counted as updates.
				continue
			}

			w.SyncedAt = u.clock.Now().UTC()
			if err := u.store.UpsertWebinar(ctx, w); err != nil {
				u.logger.Warn("webinar upsert failed, skipping item",
					zap.String("webinar_id", w.WebinarID), zap.Error(err))
				continue
			}
			if ok {
				results.UpdatedWebinars++
			} else {
				results.NewWebinars++
			}
		}
	}

	for id := range cachedByID {
		if !fetchedIDs[id] {
			results.PreservedWebinars++
		}
	}
	results.TotalWebinars = len(fetchedIDs) + results.PreservedWebinars
	return results, nil
}

// significantFieldsChanged compares the fixed field set that constitutes a
// real update: topic, scheduled start/duration, actual start/duration, and
// status.
func significantFieldsChanged(existing, fetched *models.Webinar) bool {
	if existing.Topic != fetched.Topic {
		return true
	}
	if !timePtrEqual(existing.StartTime, fetched.StartTime) {
		return true
	}
	if existing.Duration != fetched.Duration {
		return true
	}
	if !timePtrEqual(existing.ActualStartTime, fetched.ActualStartTime) {
		return true
	}
	if !intPtrEqual(existing.ActualDuration, fetched.ActualDuration) {
		return true
	}
	if existing.Status != fetched.Status {
		return true
	}
	return false
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
