package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

// Historical collection bounds.
const (
	// historicalWindowMonths is the rolling window queried from the
	// reporting endpoint.
	historicalWindowMonths = 24
	// fallbackScanMonths is how far back the month-by-month fallback scan
	// reaches when the dual-endpoint strategy fails.
	fallbackScanMonths = 12
	// fallbackChunkMonths bounds call volume during the fallback scan.
	fallbackChunkMonths = 6
)

// collectorAPI is the slice of the provider client the collector uses.
type collectorAPI interface {
	ListWebinars(ctx context.Context, token, userID string) ([]provider.StandardWebinar, error)
	ListWebinarsRange(ctx context.Context, token, userID string, from, to time.Time) ([]provider.StandardWebinar, error)
	ListReportWebinars(ctx context.Context, token, userID string, from, to time.Time) ([]provider.ReportWebinar, error)
}

// CollectResult is the combined, deduplicated webinar set plus collection
// provenance.
type CollectResult struct {
	Webinars     []SourceWebinar
	DataRange    string
	UsedFallback bool
	// ScopeError is set when the reporting endpoint rejected the token for
	// a missing OAuth scope. Collection still proceeds via fallback; the
	// caller surfaces this so the UI can prompt for re-authorization.
	ScopeError error
}

// Collector fetches the full webinar set by combining the reporting
// (historical) endpoint with the standard (upcoming) endpoint.
type Collector struct {
	api    collectorAPI
	clock  Clock
	logger *zap.Logger
}

// NewCollector creates a collector.
func NewCollector(api collectorAPI, clock Clock, logger *zap.Logger) *Collector {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{api: api, clock: clock, logger: logger}
}

// Collect returns every webinar the provider will admit to, deduplicated by
// id. A webinar present on both endpoints keeps the historical version, which
// carries actual timing data the standard endpoint lacks.
func (c *Collector) Collect(ctx context.Context, token, providerUserID string) (*CollectResult, error) {
	now := c.clock.Now()
	from := now.AddDate(0, -historicalWindowMonths, 0)
	res := &CollectResult{
		DataRange: fmt.Sprintf("%s to %s", from.Format("2006-01-02"), now.Format("2006-01-02")),
	}

	historical, histErr := c.api.ListReportWebinars(ctx, token, providerUserID, from, now)
	if histErr != nil {
		if provider.IsScopeError(histErr) {
			// Distinct signal: the caller should request the report scope,
			// not retry. Data collection still degrades gracefully below.
			res.ScopeError = histErr
			c.logger.Warn("reporting endpoint rejected token for missing scope", zap.Error(histErr))
		} else {
			c.logger.Warn("historical endpoint failed", zap.Error(histErr))
		}
	}

	upcoming, upErr := c.api.ListWebinars(ctx, token, providerUserID)
	if upErr != nil {
		c.logger.Warn("standard endpoint failed", zap.Error(upErr))
	}

	if histErr == nil && upErr == nil {
		res.Webinars = dedupe(historical, upcoming)
		return res, nil
	}

	// Any endpoint failure, scope rejection included, can hide months of
	// webinars. Scan the trailing year month by month against the standard
	// endpoint and merge whatever it recovers with what did come back.
	c.logger.Warn("endpoint failure, scanning month by month",
		zap.NamedError("historical", histErr), zap.NamedError("standard", upErr))
	scanned, scanErr := c.fallbackScan(ctx, token, providerUserID, now)
	if scanErr != nil {
		if histErr != nil && upErr != nil {
			return nil, fmt.Errorf("collect webinars: %w", scanErr)
		}
		// The scan recovered nothing extra; serve the endpoint that worked.
		c.logger.Warn("fallback scan failed, serving partial results", zap.Error(scanErr))
		res.Webinars = dedupe(historical, upcoming)
		return res, nil
	}
	res.Webinars = mergeScanned(dedupe(historical, upcoming), scanned)
	res.UsedFallback = true
	res.DataRange = fmt.Sprintf("%s to %s (fallback scan)",
		now.AddDate(0, -fallbackScanMonths, 0).Format("2006-01-02"), now.Format("2006-01-02"))
	return res, nil
}

// fallbackScan walks the trailing fallbackScanMonths in fallbackChunkMonths
// windows, then supplements with one unbounded call to catch anything
// in flight near now.
func (c *Collector) fallbackScan(ctx context.Context, token, providerUserID string, now time.Time) ([]SourceWebinar, error) {
	byID := make(map[string]SourceWebinar)
	order := make([]string, 0)
	succeeded := false
	var lastErr error

	add := func(ws []provider.StandardWebinar, source string) {
		for i := range ws {
			sw := SourceWebinar{Source: source, Standard: &ws[i]}
			id := sw.ID()
			if id == "" {
				continue
			}
			if _, ok := byID[id]; !ok {
				order = append(order, id)
			}
			byID[id] = sw
		}
	}

	for offset := fallbackScanMonths; offset > 0; offset -= fallbackChunkMonths {
		chunkFrom := now.AddDate(0, -offset, 0)
		chunkTo := now.AddDate(0, -(offset - fallbackChunkMonths), 0)
		ws, err := c.api.ListWebinarsRange(ctx, token, providerUserID, chunkFrom, chunkTo)
		if err != nil {
			lastErr = err
			c.logger.Warn("fallback chunk failed",
				zap.Time("from", chunkFrom), zap.Time("to", chunkTo), zap.Error(err))
			continue
		}
		succeeded = true
		add(ws, models.SourceMonthlyScan)
	}

	// Most recent, unbounded.
	if ws, err := c.api.ListWebinars(ctx, token, providerUserID); err == nil {
		succeeded = true
		add(ws, models.SourceStandardEndpoint)
	} else {
		lastErr = err
	}

	if !succeeded {
		return nil, lastErr
	}

	out := make([]SourceWebinar, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// mergeScanned appends scan results the endpoint sets did not already cover.
// Endpoint entries win: a historical row carries actuals the scan lacks.
func mergeScanned(base, scanned []SourceWebinar) []SourceWebinar {
	seen := make(map[string]bool, len(base))
	for _, sw := range base {
		seen[sw.ID()] = true
	}
	for _, sw := range scanned {
		id := sw.ID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		base = append(base, sw)
	}
	return base
}

// dedupe merges the two endpoint result sets by webinar id, preferring the
// historical entry when both have one.
func dedupe(historical []provider.ReportWebinar, upcoming []provider.StandardWebinar) []SourceWebinar {
	seen := make(map[string]bool, len(historical))
	out := make([]SourceWebinar, 0, len(historical)+len(upcoming))

	for i := range historical {
		sw := SourceWebinar{
			Source:       models.SourceReportEndpoint,
			IsHistorical: true,
			Report:       &historical[i],
		}
		id := sw.ID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, sw)
	}
	for i := range upcoming {
		sw := SourceWebinar{
			Source:   models.SourceStandardEndpoint,
			Standard: &upcoming[i],
		}
		id := sw.ID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, sw)
	}
	return out
}
