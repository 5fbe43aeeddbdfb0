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
	"github.com/lumenlabs/webinsight/internal/provider"
)

type orchFixture struct {
	api       *fakeOrchAPI
	collector *fakeCollectorAPI
	pastAPI   *fakePastAPI
	store     *memStore
	history   *memHistory
	progress  *recordingProgress
	orch      *Orchestrator
}

func newOrchFixture(now time.Time) *orchFixture {
	f := &orchFixture{
		api:       &fakeOrchAPI{me: &provider.User{ID: "prov-1", Email: "owner@example.com"}},
		collector: &fakeCollectorAPI{},
		pastAPI:   &fakePastAPI{responses: map[string]*provider.PastWebinar{}},
		store:     newMemStore(),
		history:   &memHistory{},
		progress:  &recordingProgress{},
	}
	clock := fixedClock{t: now}
	detector := NewDetector(clock)
	fetcher := NewPastDataFetcher(f.pastAPI, time.Second, nil)
	cfg := Config{BatchSize: 5, MaxConsecutiveFailures: 3}
	f.orch = NewOrchestrator(
		f.api,
		NewCollector(f.collector, clock, nil),
		NewEnhancer(detector, fetcher, cfg, clock, nil),
		NewUpsertEngine(f.store, clock, nil),
		NewInstanceSyncer(&fakeInstancesAPI{}, detector, fetcher, f.store, clock, nil),
		f.store,
		f.history,
		f.progress,
		cfg,
		clock,
		nil,
	)
	return f
}

func TestSyncServesCacheWithoutForce(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	userID := uuid.New()
	f.store.webinars["1"] = models.Webinar{UserID: userID, WebinarID: "1", Topic: "cached"}

	out, err := f.orch.Sync(context.Background(), userID, Credentials{Token: "tok"}, false)
	require.NoError(t, err)

	assert.True(t, out.FromCache)
	require.Len(t, out.Webinars, 1)
	assert.Equal(t, 1, out.Results.TotalWebinars)
	assert.Zero(t, f.api.meCalls, "cache hit must not touch the provider")
	assert.Equal(t, []string{StageCheckingCache, StageDone}, f.progress.stages)
}

func TestSyncEmptyTokenIsFatal(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	userID := uuid.New()

	_, err := f.orch.Sync(context.Background(), userID, Credentials{}, true)
	require.Error(t, err)

	require.Len(t, f.history.rows, 1)
	assert.Equal(t, models.SyncStatusFailed, f.history.rows[0].Status)
	assert.Equal(t, models.SyncTypeWebinars, f.history.rows[0].SyncType)
}

func TestSyncCredentialProbeFailureIsFatal(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	f.api.me = nil
	f.api.meErr = &provider.APIError{StatusCode: 401, Message: "invalid token"}

	_, err := f.orch.Sync(context.Background(), uuid.New(), Credentials{Token: "bad"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify credentials")

	require.Len(t, f.history.rows, 1)
	assert.Equal(t, models.SyncStatusFailed, f.history.rows[0].Status)
	assert.Contains(t, f.history.rows[0].Message, "credential verification failed")
}

func TestSyncFullRun(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	userID := uuid.New()

	f.collector.historical = []provider.ReportWebinar{{
		ID:        jsonNumber("100"),
		UUID:      "hist-uuid==",
		Topic:     "Past session",
		Type:      models.WebinarTypeSingle,
		StartTime: now.Add(-48 * time.Hour).Format(time.RFC3339),
		EndTime:   now.Add(-47 * time.Hour).Format(time.RFC3339),
		Duration:  60,
	}}
	f.collector.upcoming = []provider.StandardWebinar{{
		ID:        jsonNumber("200"),
		UUID:      "up-uuid==",
		Topic:     "Future session",
		Type:      models.WebinarTypeSingle,
		StartTime: now.Add(48 * time.Hour).Format(time.RFC3339),
		Duration:  45,
	}}
	f.pastAPI.responses["100"] = &provider.PastWebinar{
		StartTime:         now.Add(-48 * time.Hour).Format(time.RFC3339),
		Duration:          62,
		ParticipantsCount: 31,
	}
	// Pre-existing row absent from this fetch must survive.
	f.store.webinars["old"] = models.Webinar{UserID: userID, WebinarID: "old", Topic: "ancient"}

	out, err := f.orch.Sync(context.Background(), userID, Credentials{Token: "tok", ProviderUserID: "prov-1"}, true)
	require.NoError(t, err)

	assert.False(t, out.FromCache)
	assert.True(t, out.ScopeValidation.Valid)
	assert.Equal(t, "owner@example.com", out.ScopeValidation.AccountEmail)
	assert.False(t, out.ScopeValidation.MissingReportScope)

	assert.Equal(t, 2, out.Results.NewWebinars)
	assert.Equal(t, 1, out.Results.PreservedWebinars)
	assert.Equal(t, 3, out.Results.TotalWebinars)
	assert.NotEmpty(t, out.Results.DataRange)
	assert.Equal(t, 1, out.Enhancement.Enhanced)
	assert.Equal(t, 1, out.Enhancement.NotCompleted)
	assert.Len(t, out.Webinars, 3, "post-reconcile cache includes preserved rows")

	stored := f.store.webinars["100"]
	assert.True(t, stored.EnhancedWithPastData)
	require.NotNil(t, stored.ActualDuration)
	assert.Equal(t, 62, *stored.ActualDuration)

	// Both singles get a synthesized instance row.
	assert.Contains(t, f.store.instances, "100/hist-uuid==")
	assert.Contains(t, f.store.instances, "200/up-uuid==")

	require.Len(t, f.history.rows, 1)
	assert.Equal(t, models.SyncStatusSuccess, f.history.rows[0].Status)
	assert.Contains(t, f.history.rows[0].Message, "2 new")
	assert.Equal(t, StageDone, f.progress.stages[len(f.progress.stages)-1])
}

func TestSyncSurfacesMissingReportScope(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	f.collector.histErr = &provider.APIError{StatusCode: 400, Code: provider.CodeMissingScope, Message: "missing scopes"}
	f.collector.upcoming = []provider.StandardWebinar{{
		ID:        jsonNumber("300"),
		Type:      models.WebinarTypeSingle,
		StartTime: now.Add(48 * time.Hour).Format(time.RFC3339),
	}}

	out, err := f.orch.Sync(context.Background(), uuid.New(), Credentials{Token: "tok"}, true)
	require.NoError(t, err)

	assert.True(t, out.ScopeValidation.Valid)
	assert.True(t, out.ScopeValidation.MissingReportScope)
	assert.NotEmpty(t, out.ScopeValidation.Message)
}

func TestSyncCollectionFailureIsFatal(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	f.collector.histErr = errors.New("down")
	f.collector.upErr = errors.New("down")
	f.collector.rangeErr = errors.New("down")

	_, err := f.orch.Sync(context.Background(), uuid.New(), Credentials{Token: "tok"}, true)
	require.Error(t, err)

	require.Len(t, f.history.rows, 1)
	assert.Equal(t, models.SyncStatusFailed, f.history.rows[0].Status)
	assert.Contains(t, f.history.rows[0].Message, "collection failed")
}

func TestSyncSingleWebinar(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	userID := uuid.New()
	f.api.webinar = &provider.StandardWebinar{
		ID:        jsonNumber("400"),
		UUID:      "single-uuid==",
		Topic:     "One-off",
		Type:      models.WebinarTypeSingle,
		Status:    models.StatusEnded,
		StartTime: now.Add(-3 * time.Hour).Format(time.RFC3339),
		Duration:  30,
	}
	f.pastAPI.responses["400"] = &provider.PastWebinar{
		StartTime: now.Add(-3 * time.Hour).Format(time.RFC3339),
		Duration:  28,
	}

	w, err := f.orch.SyncSingleWebinar(context.Background(), userID, Credentials{Token: "tok"}, "400")
	require.NoError(t, err)

	assert.Equal(t, "400", w.WebinarID)
	assert.True(t, w.EnhancedWithPastData)
	assert.Contains(t, f.store.webinars, "400")
	require.Len(t, f.history.rows, 1)
	assert.Equal(t, models.SyncTypeSingleWebinar, f.history.rows[0].SyncType)
	assert.Equal(t, models.SyncStatusSuccess, f.history.rows[0].Status)
}

func TestGetInstancesSyncsUnknownWebinar(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := newOrchFixture(now)
	userID := uuid.New()
	f.api.webinar = &provider.StandardWebinar{
		ID:        jsonNumber("500"),
		UUID:      "inst-uuid==",
		Type:      models.WebinarTypeSingle,
		StartTime: now.Add(48 * time.Hour).Format(time.RFC3339),
	}

	instances, err := f.orch.GetInstances(context.Background(), userID, Credentials{Token: "tok"}, "500")
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "inst-uuid==", instances[0].InstanceID)
	assert.True(t, instances[0].Synthesized)
}
