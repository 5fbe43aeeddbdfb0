package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

func newTestEnhancer(api pastWebinarAPI, cfg Config, now time.Time) *Enhancer {
	clock := fixedClock{t: now}
	detector := NewDetector(clock)
	fetcher := NewPastDataFetcher(api, time.Second, nil)
	return NewEnhancer(detector, fetcher, cfg, clock, nil)
}

func completedWebinars(n int, now time.Time) []models.Webinar {
	out := make([]models.Webinar, n)
	for i := range out {
		out[i] = models.Webinar{
			WebinarID: string(rune('a' + i)),
			Status:    models.StatusEnded,
			StartTime: timePtr(now.Add(-3 * time.Hour)),
			Duration:  60,
		}
	}
	return out
}

func TestEnhanceAllWithAPISuccess(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	api := &fakePastAPI{responses: map[string]*provider.PastWebinar{}}
	webinars := completedWebinars(3, now)
	for _, w := range webinars {
		api.responses[w.WebinarID] = &provider.PastWebinar{
			StartTime: "2026-03-15T09:02:00Z",
			Duration:  58,
		}
	}
	e := newTestEnhancer(api, Config{BatchSize: 2}, now)

	out, stats := e.EnhanceAll(context.Background(), "tok", webinars, now.Add(time.Minute))

	assert.Equal(t, 3, stats.Enhanced)
	assert.Zero(t, stats.Failed)
	for _, w := range out {
		assert.True(t, w.EnhancedWithPastData)
		require.NotNil(t, w.CompletionAnalysis)
		assert.True(t, w.CompletionAnalysis.IsCompleted)
		require.NotNil(t, w.ActualDuration)
		assert.Equal(t, 58, *w.ActualDuration)
	}
}

func TestEnhanceAllNotCompletedSkipsFetch(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	api := &fakePastAPI{}
	webinars := []models.Webinar{{
		WebinarID: "future",
		Status:    models.StatusWaiting,
		StartTime: timePtr(now.Add(24 * time.Hour)),
		Duration:  60,
	}}
	e := newTestEnhancer(api, Config{}, now)

	_, stats := e.EnhanceAll(context.Background(), "tok", webinars, now.Add(time.Minute))

	assert.Equal(t, 1, stats.NotCompleted)
	assert.Empty(t, api.calls)
}

func TestEnhanceAllBreakerTripsOnAPIFailures(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	// Every lookup 404s; calculation salvages each record but the provider
	// failures still feed the breaker.
	api := &fakePastAPI{}
	webinars := completedWebinars(6, now)
	e := newTestEnhancer(api, Config{BatchSize: 2, MaxConsecutiveFailures: 3}, now)

	out, stats := e.EnhanceAll(context.Background(), "tok", webinars, now.Add(time.Minute))

	// Batches one and two run (four calculated records, four failures),
	// opening the breaker before batch three dispatches.
	assert.Equal(t, 4, stats.Calculated)
	assert.Equal(t, 2, stats.SkippedBreaker)
	assert.Zero(t, stats.SkippedBudget)

	for _, w := range out[:4] {
		require.NotNil(t, w.ActualEndTime)
	}
	for _, w := range out[4:] {
		assert.Nil(t, w.ActualEndTime, "skipped records must not be enhanced")
		require.NotNil(t, w.CompletionAnalysis, "skipped records still get completion analysis")
	}
}

func TestEnhanceAllDeadlineSkips(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	api := &fakePastAPI{}
	webinars := completedWebinars(3, now)
	e := newTestEnhancer(api, Config{BatchSize: 5}, now)

	// Deadline already in the past: nothing gets network enhancement.
	_, stats := e.EnhanceAll(context.Background(), "tok", webinars, now.Add(-time.Second))

	assert.Equal(t, 3, stats.SkippedBudget)
	assert.Empty(t, api.calls)
}

func TestEnhanceOnePanicRecovery(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	// A nil API makes the fetch path panic; the record must survive with an
	// error note instead of taking the run down.
	e := newTestEnhancer(nil, Config{}, now)
	w := models.Webinar{WebinarID: "123", Status: models.StatusEnded}

	assert.NotPanics(t, func() {
		e.EnhanceOne(context.Background(), "tok", &w)
	})
	assert.False(t, w.EnhancedWithPastData)
	assert.Contains(t, w.EnhancementError, "enhancement panic")
}

func TestMergeActualsNeverClearsSeededFields(t *testing.T) {
	seeded := time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)
	w := models.Webinar{
		ActualStartTime: &seeded,
		ActualDuration:  intPtr(65),
	}

	mergeActuals(&w, PastDataResult{Success: false, ErrorDetails: []string{"first", "last"}})

	require.NotNil(t, w.ActualStartTime)
	assert.True(t, w.ActualStartTime.Equal(seeded))
	assert.Equal(t, 65, *w.ActualDuration)
	assert.False(t, w.EnhancedWithPastData)
	assert.Equal(t, "last", w.EnhancementError)
}
