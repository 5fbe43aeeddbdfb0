package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/models"
)

// EnhanceStats summarizes one enhancement pass.
type EnhanceStats struct {
	Enhanced       int `json:"enhanced"`
	Calculated     int `json:"calculated"`
	NotCompleted   int `json:"not_completed"`
	Failed         int `json:"failed"`
	SkippedBudget  int `json:"skipped_budget"`
	SkippedBreaker int `json:"skipped_breaker"`
}

// Enhancer runs the completion detector over every normalized webinar and,
// for those judged completed, merges actual timing data from the past-data
// fetcher. Items degrade individually; the pipeline never drops a record and
// never aborts the batch.
type Enhancer struct {
	detector *Detector
	fetcher  *PastDataFetcher
	cfg      Config
	clock    Clock
	logger   *zap.Logger
}

// NewEnhancer creates an enhancement pipeline.
func NewEnhancer(detector *Detector, fetcher *PastDataFetcher, cfg Config, clock Clock, logger *zap.Logger) *Enhancer {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{detector: detector, fetcher: fetcher, cfg: cfg.withDefaults(), clock: clock, logger: logger}
}

// EnhanceAll processes webinars in fixed-size batches. Items within a batch
// run in parallel; batches run sequentially with an inter-batch delay to
// respect provider rate limits. Once deadline passes or the circuit breaker
// opens, remaining items still get their completion analysis but no network
// enhancement.
func (e *Enhancer) EnhanceAll(ctx context.Context, token string, webinars []models.Webinar, deadline time.Time) ([]models.Webinar, EnhanceStats) {
	stats := EnhanceStats{}
	breaker := NewBreaker(e.cfg.MaxConsecutiveFailures)
	outcomes := make([]enhanceOutcome, len(webinars))

	for start := 0; start < len(webinars); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(webinars) {
			end = len(webinars)
		}

		overBudget := e.clock.Now().After(deadline)
		skip := overBudget || !breaker.Allow()

		var wg stdsync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = e.enhanceOne(ctx, token, &webinars[i], skip)
			}(i)
		}
		wg.Wait()

		// Breaker bookkeeping happens in item order, between dispatches, so
		// "consecutive" has a stable meaning.
		for i := start; i < end; i++ {
			switch outcomes[i] {
			case outcomeEnhanced:
				stats.Enhanced++
				breaker.RecordSuccess()
			case outcomeCalculated:
				stats.Calculated++
			case outcomeCalculatedAPIFailed:
				// Record salvaged by calculation, but the provider itself is
				// failing; that still feeds the breaker.
				stats.Calculated++
				breaker.RecordFailure()
			case outcomeNotCompleted:
				stats.NotCompleted++
			case outcomeFailed:
				stats.Failed++
				breaker.RecordFailure()
			case outcomeSkipped:
				if overBudget {
					stats.SkippedBudget++
				} else {
					stats.SkippedBreaker++
				}
			}
		}

		if !breaker.Allow() && stats.SkippedBreaker == 0 && stats.SkippedBudget == 0 {
			e.logger.Warn("enhancement circuit breaker opened",
				zap.Int("consecutive_failures", breaker.ConsecutiveFailures()))
		}

		if end < len(webinars) && !skip && e.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				// Treat cancellation like budget exhaustion: remaining items
				// pass through without enhancement.
				deadline = e.clock.Now().Add(-time.Nanosecond)
			case <-time.After(e.cfg.BatchDelay):
			}
		}
	}
	return webinars, stats
}

type enhanceOutcome int

const (
	outcomeNotCompleted enhanceOutcome = iota
	outcomeEnhanced
	outcomeCalculated
	outcomeCalculatedAPIFailed
	outcomeFailed
	outcomeSkipped
)

// EnhanceOne analyzes and enhances a single webinar in place. Used by the
// single-webinar sync path.
func (e *Enhancer) EnhanceOne(ctx context.Context, token string, w *models.Webinar) {
	e.enhanceOne(ctx, token, w, false)
}

func (e *Enhancer) enhanceOne(ctx context.Context, token string, w *models.Webinar, skipFetch bool) (outcome enhanceOutcome) {
	// A panic on one record must not take down the run; the record is
	// emitted unenhanced with an error note.
	defer func() {
		if r := recover(); r != nil {
			w.EnhancedWithPastData = false
			w.EnhancementError = fmt.Sprintf("enhancement panic: %v", r)
			e.logger.Error("enhancement panicked",
				zap.String("webinar_id", w.WebinarID), zap.Any("panic", r))
			outcome = outcomeFailed
		}
	}()

	cr := e.detector.Analyze(w, nil)
	w.CompletionAnalysis = &cr

	if !cr.ShouldFetchActualData {
		return outcomeNotCompleted
	}
	if skipFetch {
		return outcomeSkipped
	}

	res := e.fetcher.Fetch(ctx, token, w, nil, cr)
	mergeActuals(w, res)

	switch {
	case res.Success && !res.ViaCalculation:
		return outcomeEnhanced
	case res.Success && len(res.APICallsMade) > 0:
		return outcomeCalculatedAPIFailed
	case res.Success:
		return outcomeCalculated
	default:
		return outcomeFailed
	}
}

// mergeActuals copies resolved actual-execution fields onto the record.
// Fields already seeded (e.g. from the reporting endpoint) are only
// overwritten by fresher API data, never cleared.
func mergeActuals(w *models.Webinar, res PastDataResult) {
	if res.ActualStartTime != nil {
		w.ActualStartTime = res.ActualStartTime
	}
	if res.ActualDuration != nil {
		w.ActualDuration = res.ActualDuration
	}
	if res.ActualEndTime != nil {
		w.ActualEndTime = res.ActualEndTime
	}
	if res.ParticipantsCount != nil {
		w.ParticipantsCount = res.ParticipantsCount
	}
	w.EnhancedWithPastData = res.Success
	if !res.Success && len(res.ErrorDetails) > 0 {
		w.EnhancementError = res.ErrorDetails[len(res.ErrorDetails)-1]
	}
}
