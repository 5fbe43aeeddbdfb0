package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/webinsight/internal/models"
)

func TestReconcileNewWebinars(t *testing.T) {
	store := newMemStore()
	u := NewUpsertEngine(store, nil, nil)
	userID := uuid.New()

	fetched := []models.Webinar{
		{UserID: userID, WebinarID: "1", Topic: "one"},
		{UserID: userID, WebinarID: "2", Topic: "two"},
	}
	res, err := u.Reconcile(context.Background(), userID, fetched)
	require.NoError(t, err)

	assert.Equal(t, 2, res.NewWebinars)
	assert.Zero(t, res.UpdatedWebinars)
	assert.Zero(t, res.PreservedWebinars)
	assert.Equal(t, 2, res.TotalWebinars)
	assert.Len(t, store.webinars, 2)
	assert.False(t, store.webinars["1"].SyncedAt.IsZero())
}

func TestReconcileStampsSyncedAtFromClock(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	u := NewUpsertEngine(store, fixedClock{t: now}, nil)
	userID := uuid.New()

	_, err := u.Reconcile(context.Background(), userID, []models.Webinar{
		{UserID: userID, WebinarID: "1", Topic: "one"},
	})
	require.NoError(t, err)

	assert.Equal(t, now, store.webinars["1"].SyncedAt)
}

func TestReconcileUnchangedRowsAreNotUpdates(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cached := models.Webinar{UserID: userID, WebinarID: "1", Topic: "one", StartTime: &start, Duration: 60, Status: models.StatusEnded}
	store.webinars["1"] = cached

	u := NewUpsertEngine(store, nil, nil)
	res, err := u.Reconcile(context.Background(), userID, []models.Webinar{cached})
	require.NoError(t, err)

	assert.Zero(t, res.NewWebinars)
	assert.Zero(t, res.UpdatedWebinars)
	assert.Equal(t, 1, res.TotalWebinars)
}

func TestReconcileSignificantChangeCountsAsUpdate(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	store.webinars["1"] = models.Webinar{UserID: userID, WebinarID: "1", Topic: "old topic", Status: models.StatusWaiting}

	u := NewUpsertEngine(store, nil, nil)
	res, err := u.Reconcile(context.Background(), userID, []models.Webinar{
		{UserID: userID, WebinarID: "1", Topic: "old topic", Status: models.StatusEnded},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.UpdatedWebinars)
	assert.Zero(t, res.NewWebinars)
	assert.Equal(t, models.StatusEnded, store.webinars["1"].Status)
}

func TestReconcilePreservesCachedRowsAbsentFromFetch(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	store.webinars["old-1"] = models.Webinar{UserID: userID, WebinarID: "old-1", Topic: "historical"}
	store.webinars["old-2"] = models.Webinar{UserID: userID, WebinarID: "old-2", Topic: "historical"}

	u := NewUpsertEngine(store, nil, nil)
	res, err := u.Reconcile(context.Background(), userID, []models.Webinar{
		{UserID: userID, WebinarID: "new-1", Topic: "fresh"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.NewWebinars)
	assert.Equal(t, 2, res.PreservedWebinars)
	assert.Equal(t, 3, res.TotalWebinars)
	// Preserved rows are untouched, never deleted.
	assert.Contains(t, store.webinars, "old-1")
	assert.Contains(t, store.webinars, "old-2")
}

func TestReconcileSkipsFailedItems(t *testing.T) {
	store := newMemStore()
	store.upsertErrs = map[string]error{"2": errors.New("constraint violation")}
	userID := uuid.New()

	u := NewUpsertEngine(store, nil, nil)
	res, err := u.Reconcile(context.Background(), userID, []models.Webinar{
		{UserID: userID, WebinarID: "1"},
		{UserID: userID, WebinarID: "2"},
		{UserID: userID, WebinarID: "3"},
	})
	require.NoError(t, err, "per-item failures must not abort the batch")

	assert.Equal(t, 2, res.NewWebinars)
	assert.NotContains(t, store.webinars, "2")
	assert.Equal(t, 3, res.TotalWebinars)
}

func TestReconcileListFailurePropagates(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("connection refused")

	u := NewUpsertEngine(store, nil, nil)
	_, err := u.Reconcile(context.Background(), uuid.New(), []models.Webinar{{WebinarID: "1"}})
	assert.Error(t, err)
}

func TestSignificantFieldsChanged(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	base := func() *models.Webinar {
		return &models.Webinar{
			Topic:           "t",
			StartTime:       &start,
			Duration:        60,
			ActualStartTime: &start,
			ActualDuration:  intPtr(58),
			Status:          models.StatusEnded,
		}
	}

	assert.False(t, significantFieldsChanged(base(), base()))

	changed := base()
	changed.ActualDuration = intPtr(59)
	assert.True(t, significantFieldsChanged(base(), changed))

	changed = base()
	changed.ActualStartTime = nil
	assert.True(t, significantFieldsChanged(base(), changed))

	// Cosmetic fields do not constitute a change.
	changed = base()
	changed.JoinURL = "https://example.com/j/1"
	changed.Agenda = "different agenda"
	assert.False(t, significantFieldsChanged(base(), changed))
}
