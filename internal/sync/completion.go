package sync

import (
	"fmt"
	"time"

	"github.com/lumenlabs/webinsight/internal/models"
)

// Completion confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// completionGraceBuffer is added past the scheduled end before a webinar is
// considered concluded, so sessions that ran long are not falsely completed.
const completionGraceBuffer = 30 * time.Minute

// staleFallbackAge is how old a webinar with no usable start time must be
// before it is assumed concluded.
const staleFallbackAge = 24 * time.Hour

// Detector infers whether a webinar has actually concluded. The provider's
// status field is frequently stale or missing for long-tail historical data,
// so explicit terminal statuses are trusted but everything else falls back to
// time-based inference.
type Detector struct {
	clock Clock
}

// NewDetector creates a completion detector using the given clock.
func NewDetector(clock Clock) *Detector {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Detector{clock: clock}
}

// Analyze judges completion for a webinar, optionally overridden by one of
// its instances. Instance-level status and timing take precedence over the
// parent's when present.
func (d *Detector) Analyze(w *models.Webinar, inst *models.WebinarInstance) models.CompletionResult {
	status := w.Status
	startTime := w.StartTime
	duration := w.Duration
	if inst != nil {
		if inst.Status != "" {
			status = inst.Status
		}
		if inst.StartTime != nil {
			startTime = inst.StartTime
		}
		if inst.Duration > 0 {
			duration = inst.Duration
		}
	}

	now := d.clock.Now()

	// 1. Explicit terminal status is the strongest signal available.
	if status == models.StatusEnded || status == models.StatusAborted {
		return models.CompletionResult{
			IsCompleted:           true,
			Reason:                fmt.Sprintf("explicit status %q", status),
			ConfidenceLevel:       ConfidenceHigh,
			ShouldFetchActualData: true,
		}
	}

	// 2. Time-based inference from the scheduled window.
	if startTime != nil && !startTime.IsZero() {
		calculatedEnd := startTime.Add(time.Duration(duration) * time.Minute)
		endWithBuffer := calculatedEnd.Add(completionGraceBuffer)

		switch {
		case now.After(endWithBuffer):
			endedAgo := now.Sub(calculatedEnd).Round(time.Minute)
			return models.CompletionResult{
				IsCompleted:           true,
				Reason:                fmt.Sprintf("time-based: scheduled end passed %s ago", endedAgo),
				ConfidenceLevel:       ConfidenceHigh,
				ShouldFetchActualData: true,
			}
		case now.After(*startTime):
			return models.CompletionResult{
				IsCompleted:     false,
				Reason:          "in progress or within grace buffer",
				ConfidenceLevel: ConfidenceMedium,
			}
		default:
			return models.CompletionResult{
				IsCompleted:     false,
				Reason:          "scheduled in the future",
				ConfidenceLevel: ConfidenceHigh,
			}
		}
	}

	// 3. No usable start time: fall back to age of whatever reference
	// timestamp exists.
	ref := startTime
	if ref == nil || ref.IsZero() {
		ref = w.ProviderCreatedAt
	}
	if ref != nil && !ref.IsZero() && now.Sub(*ref) > staleFallbackAge {
		return models.CompletionResult{
			IsCompleted:           true,
			Reason:                "fallback: reference timestamp more than 24h old",
			ConfidenceLevel:       ConfidenceMedium,
			ShouldFetchActualData: true,
		}
	}

	// 4. Nothing to go on.
	return models.CompletionResult{
		IsCompleted:     false,
		Reason:          "insufficient data to determine completion",
		ConfidenceLevel: ConfidenceLow,
	}
}
