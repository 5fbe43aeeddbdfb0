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

func TestFetchSkipsWhenAnalysisAdvisesAgainst(t *testing.T) {
	api := &fakePastAPI{}
	f := NewPastDataFetcher(api, time.Second, nil)

	w := models.Webinar{WebinarID: "123", UUID: "abc=="}
	res := f.Fetch(context.Background(), "tok", &w, nil, models.CompletionResult{ShouldFetchActualData: false})

	assert.False(t, res.Success)
	assert.Empty(t, api.calls)
	assert.Empty(t, res.APICallsMade)
	require.Len(t, res.ErrorDetails, 1)
	assert.Contains(t, res.ErrorDetails[0], "advises against fetching")
}

func TestFetchByIDSucceeds(t *testing.T) {
	api := &fakePastAPI{responses: map[string]*provider.PastWebinar{
		"123": {
			StartTime:         "2026-03-01T10:05:00Z",
			EndTime:           "2026-03-01T11:10:00Z",
			Duration:          65,
			ParticipantsCount: 42,
		},
	}}
	f := NewPastDataFetcher(api, time.Second, nil)

	w := models.Webinar{WebinarID: "123", UUID: "abc=="}
	res := f.Fetch(context.Background(), "tok", &w, nil, models.CompletionResult{ShouldFetchActualData: true})

	require.True(t, res.Success)
	assert.False(t, res.ViaCalculation)
	assert.Equal(t, []string{"123"}, api.calls)
	assert.Equal(t, []string{"123"}, res.IdentifiersUsed)
	assert.Equal(t, []string{"GET /past_webinars/123"}, res.APICallsMade)
	require.NotNil(t, res.ActualStartTime)
	assert.Equal(t, "2026-03-01T10:05:00Z", res.ActualStartTime.Format(time.RFC3339))
	require.NotNil(t, res.ActualDuration)
	assert.Equal(t, 65, *res.ActualDuration)
	require.NotNil(t, res.ParticipantsCount)
	assert.Equal(t, 42, *res.ParticipantsCount)
}

func TestFetchFallsBackToUUID(t *testing.T) {
	api := &fakePastAPI{
		errs: map[string]error{
			"123": &provider.APIError{StatusCode: 404, Message: "not found"},
		},
		responses: map[string]*provider.PastWebinar{
			"abc==": {StartTime: "2026-03-01T10:00:00Z", Duration: 60},
		},
	}
	f := NewPastDataFetcher(api, time.Second, nil)

	w := models.Webinar{WebinarID: "123", UUID: "abc=="}
	res := f.Fetch(context.Background(), "tok", &w, nil, models.CompletionResult{ShouldFetchActualData: true})

	require.True(t, res.Success)
	assert.False(t, res.ViaCalculation)
	assert.Equal(t, []string{"123", "abc=="}, api.calls)
	assert.Equal(t, []string{"123", "abc=="}, res.IdentifiersUsed)
	require.Len(t, res.ErrorDetails, 1)
	assert.Contains(t, res.ErrorDetails[0], "past_webinars/123")
}

func TestFetchPrefersInstanceUUID(t *testing.T) {
	api := &fakePastAPI{responses: map[string]*provider.PastWebinar{
		"occ-uuid": {StartTime: "2026-03-01T10:00:00Z", Duration: 30},
	}}
	f := NewPastDataFetcher(api, time.Second, nil)

	w := models.Webinar{WebinarID: "123", UUID: "parent=="}
	inst := models.WebinarInstance{InstanceID: "occ-uuid"}
	res := f.Fetch(context.Background(), "tok", &w, &inst, models.CompletionResult{ShouldFetchActualData: true})

	require.True(t, res.Success)
	assert.Equal(t, []string{"123", "occ-uuid"}, api.calls)
}

func TestFetchSynthesizedInstanceUsesParentUUID(t *testing.T) {
	api := &fakePastAPI{responses: map[string]*provider.PastWebinar{
		"parent==": {StartTime: "2026-03-01T10:00:00Z", Duration: 30},
	}}
	f := NewPastDataFetcher(api, time.Second, nil)

	w := models.Webinar{WebinarID: "123", UUID: "parent=="}
	inst := models.WebinarInstance{InstanceID: "synthetic-123", Synthesized: true}
	res := f.Fetch(context.Background(), "tok", &w, &inst, models.CompletionResult{ShouldFetchActualData: true})

	require.True(t, res.Success)
	assert.Equal(t, []string{"123", "parent=="}, api.calls)
}

func TestFetchDegradesToCalculation(t *testing.T) {
	api := &fakePastAPI{} // every lookup 404s
	f := NewPastDataFetcher(api, time.Second, nil)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w := models.Webinar{WebinarID: "123", UUID: "abc==", StartTime: &start, Duration: 45}
	res := f.Fetch(context.Background(), "tok", &w, nil, models.CompletionResult{ShouldFetchActualData: true})

	require.True(t, res.Success)
	assert.True(t, res.ViaCalculation)
	assert.Len(t, res.APICallsMade, 2)
	assert.Len(t, res.ErrorDetails, 2)
	require.NotNil(t, res.ActualStartTime)
	assert.True(t, res.ActualStartTime.Equal(start))
	require.NotNil(t, res.ActualDuration)
	assert.Equal(t, 45, *res.ActualDuration)
	require.NotNil(t, res.ActualEndTime)
	assert.True(t, res.ActualEndTime.Equal(start.Add(45*time.Minute)))
}

func TestFetchCalculationUsesInstanceTiming(t *testing.T) {
	api := &fakePastAPI{}
	f := NewPastDataFetcher(api, time.Second, nil)

	parentStart := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	instStart := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	w := models.Webinar{WebinarID: "123", StartTime: &parentStart, Duration: 60}
	inst := models.WebinarInstance{InstanceID: "occ", StartTime: &instStart, Duration: 30}

	res := f.Fetch(context.Background(), "tok", &w, &inst, models.CompletionResult{ShouldFetchActualData: true})

	require.True(t, res.Success)
	assert.True(t, res.ViaCalculation)
	assert.True(t, res.ActualStartTime.Equal(instStart))
	assert.Equal(t, 30, *res.ActualDuration)
}

func TestFetchFailsWithoutAnySchedule(t *testing.T) {
	api := &fakePastAPI{}
	f := NewPastDataFetcher(api, time.Second, nil)

	w := models.Webinar{WebinarID: "123"}
	res := f.Fetch(context.Background(), "tok", &w, nil, models.CompletionResult{ShouldFetchActualData: true})

	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorDetails[len(res.ErrorDetails)-1], "no scheduled start time")
}

func TestApplyPastWebinarDerivesEndTime(t *testing.T) {
	res := PastDataResult{}
	applyPastWebinar(&provider.PastWebinar{
		StartTime:    "2026-03-01T10:00:00Z",
		TotalMinutes: 50, // duration absent, total_minutes stands in
	}, &res)

	require.NotNil(t, res.ActualDuration)
	assert.Equal(t, 50, *res.ActualDuration)
	require.NotNil(t, res.ActualEndTime)
	assert.Equal(t, "2026-03-01T10:50:00Z", res.ActualEndTime.Format(time.RFC3339))
}
