package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

func standardWebinar(id string) provider.StandardWebinar {
	return provider.StandardWebinar{ID: jsonNumber(id), Topic: "topic " + id}
}

func reportWebinar(id string) provider.ReportWebinar {
	return provider.ReportWebinar{ID: jsonNumber(id), Topic: "topic " + id}
}

func TestCollectDedupePrefersHistorical(t *testing.T) {
	api := &fakeCollectorAPI{
		historical: []provider.ReportWebinar{reportWebinar("1"), reportWebinar("2")},
		upcoming:   []provider.StandardWebinar{standardWebinar("2"), standardWebinar("3")},
	}
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c := NewCollector(api, fixedClock{t: now}, nil)

	res, err := c.Collect(context.Background(), "tok", "me")
	require.NoError(t, err)
	require.Len(t, res.Webinars, 3)
	assert.False(t, res.UsedFallback)
	assert.Nil(t, res.ScopeError)
	assert.Equal(t, "2024-03-15 to 2026-03-15", res.DataRange)

	byID := make(map[string]SourceWebinar)
	for _, sw := range res.Webinars {
		byID[sw.ID()] = sw
	}
	assert.True(t, byID["1"].IsHistorical)
	assert.True(t, byID["2"].IsHistorical, "webinar on both endpoints keeps the historical entry")
	assert.Equal(t, models.SourceReportEndpoint, byID["2"].Source)
	assert.False(t, byID["3"].IsHistorical)
	assert.Equal(t, models.SourceStandardEndpoint, byID["3"].Source)
}

func TestCollectScopeErrorTriggersFallbackScan(t *testing.T) {
	// A token without the report scope loses the historical endpoint; the
	// month-by-month scan recovers concluded webinars the standard
	// endpoint's default window omits.
	scopeErr := &provider.APIError{StatusCode: 403, Code: provider.CodeMissingScope, Message: "missing scopes"}
	api := &fakeCollectorAPI{
		histErr:  scopeErr,
		upcoming: []provider.StandardWebinar{standardWebinar("up-1")},
		ranged:   []provider.StandardWebinar{standardWebinar("hist-1")},
	}
	c := NewCollector(api, fixedClock{t: time.Now()}, nil)

	res, err := c.Collect(context.Background(), "tok", "me")
	require.NoError(t, err)
	assert.NotNil(t, res.ScopeError)
	assert.True(t, provider.IsScopeError(res.ScopeError))
	assert.True(t, res.UsedFallback)
	assert.Len(t, api.rangeCalls, 2)

	ids := make([]string, 0, len(res.Webinars))
	for _, sw := range res.Webinars {
		ids = append(ids, sw.ID())
	}
	assert.ElementsMatch(t, []string{"up-1", "hist-1"}, ids)
	assert.Contains(t, res.DataRange, "(fallback scan)")
}

func TestCollectServesPartialWhenScanAlsoFails(t *testing.T) {
	// Standard endpoint down takes the scan down with it; the historical
	// result still gets served.
	api := &fakeCollectorAPI{
		historical: []provider.ReportWebinar{reportWebinar("7")},
		upErr:      errors.New("standard endpoint down"),
		rangeErr:   errors.New("range scan down"),
	}
	c := NewCollector(api, fixedClock{t: time.Now()}, nil)

	res, err := c.Collect(context.Background(), "tok", "me")
	require.NoError(t, err, "one working endpoint must still yield a result")
	require.Len(t, res.Webinars, 1)
	assert.Equal(t, "7", res.Webinars[0].ID())
	assert.True(t, res.Webinars[0].IsHistorical)
	assert.False(t, res.UsedFallback)
}

func TestCollectFallbackScan(t *testing.T) {
	api := &fakeCollectorAPI{
		histErr:  errors.New("report endpoint down"),
		upErr:    errors.New("standard endpoint down"),
		ranged:   []provider.StandardWebinar{standardWebinar("9")},
		rangeErr: nil,
	}
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c := NewCollector(api, fixedClock{t: now}, nil)

	res, err := c.Collect(context.Background(), "tok", "me")
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "2025-03-15 to 2026-03-15 (fallback scan)", res.DataRange)

	// Trailing year scanned in two six-month windows.
	require.Len(t, api.rangeCalls, 2)
	assert.Equal(t, now.AddDate(0, -12, 0), api.rangeCalls[0][0])
	assert.Equal(t, now.AddDate(0, -6, 0), api.rangeCalls[0][1])
	assert.Equal(t, now.AddDate(0, -6, 0), api.rangeCalls[1][0])
	assert.Equal(t, now, api.rangeCalls[1][1])

	require.Len(t, res.Webinars, 1)
	assert.Equal(t, models.SourceMonthlyScan, res.Webinars[0].Source)
}

func TestCollectFailsWhenEverythingFails(t *testing.T) {
	api := &fakeCollectorAPI{
		histErr:  errors.New("report endpoint down"),
		upErr:    errors.New("standard endpoint down"),
		rangeErr: errors.New("range scan down"),
	}
	c := NewCollector(api, fixedClock{t: time.Now()}, nil)

	_, err := c.Collect(context.Background(), "tok", "me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect webinars")
}

func TestCollectSkipsEntriesWithoutID(t *testing.T) {
	api := &fakeCollectorAPI{
		upcoming: []provider.StandardWebinar{{Topic: "no id"}, standardWebinar("4")},
	}
	c := NewCollector(api, fixedClock{t: time.Now()}, nil)

	res, err := c.Collect(context.Background(), "tok", "me")
	require.NoError(t, err)
	require.Len(t, res.Webinars, 1)
	assert.Equal(t, "4", res.Webinars[0].ID())
}
