package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

// defaultCallTimeout bounds each individual past-webinar lookup.
const defaultCallTimeout = 5 * time.Second

// PastDataResult is the outcome of a best-effort actual-execution lookup.
// It is never an error: failed API attempts are journaled and the chain
// degrades to a calculated end time.
type PastDataResult struct {
	Success           bool       `json:"success"`
	ActualStartTime   *time.Time `json:"actual_start_time,omitempty"`
	ActualDuration    *int       `json:"actual_duration,omitempty"` // minutes
	ActualEndTime     *time.Time `json:"actual_end_time,omitempty"`
	ParticipantsCount *int       `json:"participants_count,omitempty"`
	ViaCalculation    bool       `json:"via_calculation"`
	IdentifiersUsed   []string   `json:"identifiers_used,omitempty"`
	APICallsMade      []string   `json:"api_calls_made,omitempty"`
	ErrorDetails      []string   `json:"error_details,omitempty"`
}

// pastWebinarAPI is the slice of the provider client the fetcher needs.
type pastWebinarAPI interface {
	GetPastWebinar(ctx context.Context, token, idOrUUID string) (*provider.PastWebinar, error)
}

// PastDataFetcher resolves actual-execution timing for a webinar believed to
// be completed, trying identifier strategies in a fixed order and falling
// back to calculation from scheduled data.
type PastDataFetcher struct {
	api         pastWebinarAPI
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewPastDataFetcher creates a fetcher. callTimeout <= 0 uses the 5s default.
func NewPastDataFetcher(api pastWebinarAPI, callTimeout time.Duration, logger *zap.Logger) *PastDataFetcher {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PastDataFetcher{api: api, callTimeout: callTimeout, logger: logger}
}

// pastDataStrategy is one step of the fallback chain. run reports whether the
// strategy yielded enough data (both start time and duration) to stop.
type pastDataStrategy struct {
	name string
	run  func(ctx context.Context, res *PastDataResult) bool
}

// Fetch attempts to resolve actual timing data. If the completion analysis
// says not to fetch, it returns immediately without any network calls.
func (f *PastDataFetcher) Fetch(ctx context.Context, token string, w *models.Webinar, inst *models.WebinarInstance, cr models.CompletionResult) PastDataResult {
	res := PastDataResult{}
	if !cr.ShouldFetchActualData {
		res.ErrorDetails = append(res.ErrorDetails, "skipped: completion analysis advises against fetching")
		return res
	}

	for _, s := range f.strategies(token, w, inst) {
		if s.run(ctx, &res) {
			res.Success = true
			return res
		}
	}
	return res
}

// strategies builds the ordered fallback chain for one webinar. Order matters:
// the numeric id is the cheapest lookup, the UUID targets a specific
// execution, and calculation never fails.
func (f *PastDataFetcher) strategies(token string, w *models.Webinar, inst *models.WebinarInstance) []pastDataStrategy {
	var chain []pastDataStrategy

	if w.WebinarID != "" {
		chain = append(chain, pastDataStrategy{
			name: "past-webinar by id",
			run: func(ctx context.Context, res *PastDataResult) bool {
				return f.tryPastWebinar(ctx, token, w.WebinarID, res)
			},
		})
	}

	// A distinct UUID identifies one execution instance; preferring the
	// instance's own UUID over the parent's.
	uuid := w.UUID
	if inst != nil && !inst.Synthesized && inst.InstanceID != "" {
		uuid = inst.InstanceID
	}
	if uuid != "" && uuid != w.WebinarID {
		chain = append(chain, pastDataStrategy{
			name: "past-webinar by uuid",
			run: func(ctx context.Context, res *PastDataResult) bool {
				return f.tryPastWebinar(ctx, token, uuid, res)
			},
		})
	}

	chain = append(chain, pastDataStrategy{
		name: "calculated from schedule",
		run: func(_ context.Context, res *PastDataResult) bool {
			return calculateFromSchedule(w, inst, res)
		},
	})
	return chain
}

func (f *PastDataFetcher) tryPastWebinar(ctx context.Context, token, id string, res *PastDataResult) bool {
	callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	res.IdentifiersUsed = append(res.IdentifiersUsed, id)
	res.APICallsMade = append(res.APICallsMade, "GET /past_webinars/"+id)

	pw, err := f.api.GetPastWebinar(callCtx, token, id)
	if err != nil {
		res.ErrorDetails = append(res.ErrorDetails, fmt.Sprintf("past_webinars/%s: %v", id, err))
		f.logger.Debug("past webinar lookup failed", zap.String("id", id), zap.Error(err))
		return false
	}
	applyPastWebinar(pw, res)
	return res.ActualStartTime != nil && res.ActualDuration != nil
}

// applyPastWebinar copies whatever usable fields the past-webinar payload
// carries onto the result, leaving earlier values in place.
func applyPastWebinar(pw *provider.PastWebinar, res *PastDataResult) {
	if res.ActualStartTime == nil {
		if t, err := time.Parse(time.RFC3339, pw.StartTime); err == nil {
			res.ActualStartTime = &t
		}
	}
	if res.ActualDuration == nil {
		d := pw.Duration
		if d == 0 {
			d = pw.TotalMinutes
		}
		if d > 0 {
			res.ActualDuration = &d
		}
	}
	if res.ActualEndTime == nil {
		if t, err := time.Parse(time.RFC3339, pw.EndTime); err == nil {
			res.ActualEndTime = &t
		}
	}
	if res.ParticipantsCount == nil && pw.ParticipantsCount > 0 {
		pc := pw.ParticipantsCount
		res.ParticipantsCount = &pc
	}
	// End time derivable once start and duration are known.
	if res.ActualEndTime == nil && res.ActualStartTime != nil && res.ActualDuration != nil {
		end := res.ActualStartTime.Add(time.Duration(*res.ActualDuration) * time.Minute)
		res.ActualEndTime = &end
	}
}

// calculateFromSchedule is the terminal fallback: derive the end time from
// the best available scheduled start/duration pair (instance first, then the
// parent webinar). Always succeeds when a scheduled start exists.
func calculateFromSchedule(w *models.Webinar, inst *models.WebinarInstance, res *PastDataResult) bool {
	start := w.StartTime
	duration := w.Duration
	if inst != nil {
		if inst.StartTime != nil {
			start = inst.StartTime
		}
		if inst.Duration > 0 {
			duration = inst.Duration
		}
	}
	if start == nil || start.IsZero() {
		res.ErrorDetails = append(res.ErrorDetails, "calculation fallback: no scheduled start time available")
		return false
	}

	if res.ActualStartTime == nil {
		res.ActualStartTime = start
	}
	if res.ActualDuration == nil && duration > 0 {
		d := duration
		res.ActualDuration = &d
	}
	if res.ActualEndTime == nil {
		end := start.Add(time.Duration(duration) * time.Minute)
		res.ActualEndTime = &end
	}
	res.ViaCalculation = true
	return true
}
