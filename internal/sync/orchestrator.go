// Package sync implements the webinar synchronization and
// completion-inference subsystem: collection from the provider's dual
// endpoints, normalization, actual-data enhancement, non-destructive cache
// reconciliation, and per-occurrence instance sync.
package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

// Pipeline stages, published as progress events in order.
const (
	StageCheckingCache    = "checking-cache"
	StageFetching         = "fetching"
	StageNormalizing      = "normalizing"
	StageEnhancing        = "enhancing"
	StageUpserting        = "upserting"
	StageSyncingInstances = "syncing-instances"
	StageRecordingHistory = "recording-history"
	StageDone             = "done"
)

// Credentials is the provider access a sync run operates with.
type Credentials struct {
	Token          string
	ProviderUserID string // provider account id; "me" when unset
}

// ScopeValidation reports what the token could and could not do this run.
type ScopeValidation struct {
	Valid              bool   `json:"valid"`
	AccountEmail       string `json:"account_email,omitempty"`
	MissingReportScope bool   `json:"missing_report_scope"`
	Message            string `json:"message,omitempty"`
}

// SyncOutcome is what a sync run hands back to UI/CLI collaborators.
type SyncOutcome struct {
	Webinars        []models.Webinar   `json:"webinars"`
	Results         models.SyncResults `json:"sync_results"`
	ScopeValidation ScopeValidation    `json:"scope_validation"`
	FromCache       bool               `json:"from_cache"`
	Enhancement     EnhanceStats       `json:"enhancement"`
}

// orchestratorAPI is the slice of the provider client the orchestrator itself
// calls (credential probe and single-webinar lookups).
type orchestratorAPI interface {
	GetMe(ctx context.Context, token string) (*provider.User, error)
	GetWebinar(ctx context.Context, token, id string) (*provider.StandardWebinar, error)
}

// Orchestrator drives a full sync run: cache check, collect, normalize,
// enhance, reconcile, instance sync, history. Only fatal errors (unusable
// credentials, total collection failure) propagate; everything else degrades
// into a partial result.
type Orchestrator struct {
	api       orchestratorAPI
	collector *Collector
	enhancer  *Enhancer
	upserter  *UpsertEngine
	instances *InstanceSyncer
	store     Store
	history   HistoryStore
	progress  ProgressPublisher
	cfg       Config
	clock     Clock
	logger    *zap.Logger
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(api orchestratorAPI, collector *Collector, enhancer *Enhancer, upserter *UpsertEngine, instances *InstanceSyncer, store Store, history HistoryStore, progress ProgressPublisher, cfg Config, clock Clock, logger *zap.Logger) *Orchestrator {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if progress == nil {
		progress = NopProgress{}
	}
	return &Orchestrator{
		api:       api,
		collector: collector,
		enhancer:  enhancer,
		upserter:  upserter,
		instances: instances,
		store:     store,
		history:   history,
		progress:  progress,
		cfg:       cfg.withDefaults(),
		clock:     clock,
		logger:    logger,
	}
}

// Sync runs the full pipeline for one dashboard user. With force false and a
// non-empty cache it short-circuits and returns the cached rows without
// touching the provider; cache freshness is caller-driven.
func (o *Orchestrator) Sync(ctx context.Context, userID uuid.UUID, creds Credentials, force bool) (*SyncOutcome, error) {
	o.progress.PublishProgress(userID, StageCheckingCache, nil)

	if !force {
		cached, err := o.store.ListWebinars(ctx, userID)
		if err == nil && len(cached) > 0 {
			o.progress.PublishProgress(userID, StageDone, map[string]interface{}{"from_cache": true})
			return &SyncOutcome{
				Webinars:  cached,
				Results:   models.SyncResults{TotalWebinars: len(cached), PreservedWebinars: len(cached)},
				FromCache: true,
			}, nil
		}
		if err != nil {
			o.logger.Warn("cache check failed, continuing with full sync", zap.Error(err))
		}
	}

	if creds.Token == "" {
		err := fmt.Errorf("no provider access token available")
		o.recordHistory(ctx, userID, models.SyncTypeWebinars, models.SyncStatusFailed, 0, err.Error())
		return nil, err
	}
	providerUserID := creds.ProviderUserID
	if providerUserID == "" {
		providerUserID = "me"
	}

	scope := ScopeValidation{}
	me, err := o.api.GetMe(ctx, creds.Token)
	if err != nil {
		// Unusable credentials are the one fatal case: nothing downstream
		// can succeed.
		o.recordHistory(ctx, userID, models.SyncTypeWebinars, models.SyncStatusFailed, 0,
			fmt.Sprintf("credential verification failed: %v", err))
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	scope.Valid = true
	scope.AccountEmail = me.Email

	deadline := o.clock.Now().Add(o.cfg.ProcessingTimeLimit)

	o.progress.PublishProgress(userID, StageFetching, nil)
	collected, err := o.collector.Collect(ctx, creds.Token, providerUserID)
	if err != nil {
		o.recordHistory(ctx, userID, models.SyncTypeWebinars, models.SyncStatusFailed, 0,
			fmt.Sprintf("collection failed: %v", err))
		return nil, fmt.Errorf("collect webinars: %w", err)
	}
	if collected.ScopeError != nil {
		scope.MissingReportScope = true
		scope.Message = "token is missing the reporting OAuth scope; historical data is degraded"
	}

	o.progress.PublishProgress(userID, StageNormalizing, map[string]interface{}{"count": len(collected.Webinars)})
	webinars := make([]models.Webinar, 0, len(collected.Webinars))
	for _, src := range collected.Webinars {
		if src.ID() == "" {
			continue
		}
		webinars = append(webinars, Normalize(src, userID))
	}

	o.progress.PublishProgress(userID, StageEnhancing, map[string]interface{}{"count": len(webinars)})
	webinars, enhStats := o.enhancer.EnhanceAll(ctx, creds.Token, webinars, deadline)

	o.progress.PublishProgress(userID, StageUpserting, nil)
	results, err := o.upserter.Reconcile(ctx, userID, webinars)
	if err != nil {
		// Store trouble is degraded completion, not failure: the fetched
		// data is still returned to the caller.
		o.logger.Error("reconcile failed", zap.Error(err))
	}
	results.DataRange = collected.DataRange

	o.progress.PublishProgress(userID, StageSyncingInstances, nil)
	instancesSynced := 0
	for i := range webinars {
		if o.clock.Now().After(deadline) {
			o.logger.Warn("time budget exhausted, skipping remaining instance syncs",
				zap.Int("remaining", len(webinars)-i))
			break
		}
		n, err := o.instances.SyncInstances(ctx, creds.Token, userID, &webinars[i])
		if err != nil {
			o.logger.Warn("instance sync failed for webinar",
				zap.String("webinar_id", webinars[i].WebinarID), zap.Error(err))
			continue
		}
		instancesSynced += n
	}

	o.progress.PublishProgress(userID, StageRecordingHistory, nil)
	status := models.SyncStatusSuccess
	if enhStats.SkippedBudget > 0 || enhStats.SkippedBreaker > 0 {
		status = models.SyncStatusPartial
	}
	msg := fmt.Sprintf("synced %d new, %d updated, %d preserved; %d instances; %d enhanced, %d calculated, %d skipped",
		results.NewWebinars, results.UpdatedWebinars, results.PreservedWebinars,
		instancesSynced, enhStats.Enhanced, enhStats.Calculated,
		enhStats.SkippedBudget+enhStats.SkippedBreaker)
	o.recordHistory(ctx, userID, models.SyncTypeWebinars, status,
		results.NewWebinars+results.UpdatedWebinars, msg)

	// Return the post-reconcile cache so preserved historical rows are
	// included; fall back to the fetched set if the read fails.
	outWebinars := webinars
	if all, err := o.store.ListWebinars(ctx, userID); err == nil {
		outWebinars = all
	}

	o.progress.PublishProgress(userID, StageDone, map[string]interface{}{"total": results.TotalWebinars})
	return &SyncOutcome{
		Webinars:        outWebinars,
		Results:         results,
		ScopeValidation: scope,
		Enhancement:     enhStats,
	}, nil
}

// SyncSingleWebinar refreshes one webinar by id: fetch, normalize, enhance,
// upsert, and re-sync its instances.
func (o *Orchestrator) SyncSingleWebinar(ctx context.Context, userID uuid.UUID, creds Credentials, webinarID string) (*models.Webinar, error) {
	if creds.Token == "" {
		return nil, fmt.Errorf("no provider access token available")
	}

	sw, err := o.api.GetWebinar(ctx, creds.Token, webinarID)
	if err != nil {
		o.recordHistory(ctx, userID, models.SyncTypeSingleWebinar, models.SyncStatusFailed, 0,
			fmt.Sprintf("webinar %s: %v", webinarID, err))
		return nil, fmt.Errorf("fetch webinar %s: %w", webinarID, err)
	}

	w := Normalize(SourceWebinar{Source: models.SourceStandardEndpoint, Standard: sw}, userID)
	o.enhancer.EnhanceOne(ctx, creds.Token, &w)

	if err := o.store.UpsertWebinar(ctx, &w); err != nil {
		o.logger.Error("single-webinar upsert failed", zap.String("webinar_id", webinarID), zap.Error(err))
	}
	if _, err := o.instances.SyncInstances(ctx, creds.Token, userID, &w); err != nil {
		o.logger.Warn("instance sync failed", zap.String("webinar_id", webinarID), zap.Error(err))
	}

	o.recordHistory(ctx, userID, models.SyncTypeSingleWebinar, models.SyncStatusSuccess, 1,
		fmt.Sprintf("synced webinar %s", webinarID))
	return &w, nil
}

// GetInstances re-syncs and returns the occurrences of a cached webinar.
func (o *Orchestrator) GetInstances(ctx context.Context, userID uuid.UUID, creds Credentials, webinarID string) ([]models.WebinarInstance, error) {
	cached, err := o.store.ListWebinars(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cached webinars: %w", err)
	}
	var target *models.Webinar
	for i := range cached {
		if cached[i].WebinarID == webinarID {
			target = &cached[i]
			break
		}
	}
	if target == nil {
		w, err := o.SyncSingleWebinar(ctx, userID, creds, webinarID)
		if err != nil {
			return nil, err
		}
		target = w
	} else if creds.Token != "" {
		if _, err := o.instances.SyncInstances(ctx, creds.Token, userID, target); err != nil {
			o.logger.Warn("instance refresh failed", zap.String("webinar_id", webinarID), zap.Error(err))
		}
	}
	return o.store.ListInstances(ctx, userID, webinarID)
}

func (o *Orchestrator) recordHistory(ctx context.Context, userID uuid.UUID, syncType, status string, items int, msg string) {
	h := &models.SyncHistory{
		ID:          uuid.New(),
		UserID:      userID,
		SyncType:    syncType,
		Status:      status,
		ItemsSynced: items,
		Message:     msg,
		CreatedAt:   o.clock.Now().UTC(),
	}
	if err := o.history.Append(ctx, h); err != nil {
		o.logger.Error("sync history append failed", zap.Error(err))
	}
}
