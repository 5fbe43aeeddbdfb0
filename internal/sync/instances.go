package sync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

// instancesAPI is the slice of the provider client the instance syncer uses.
type instancesAPI interface {
	GetWebinarInstances(ctx context.Context, token, id string) ([]provider.Occurrence, error)
}

// InstanceSyncer maintains the per-occurrence table. Recurring webinars get
// their occurrences from the provider; single webinars get one synthesized
// instance so downstream consumers can query both uniformly.
type InstanceSyncer struct {
	api      instancesAPI
	detector *Detector
	fetcher  *PastDataFetcher
	store    Store
	clock    Clock
	logger   *zap.Logger
}

// NewInstanceSyncer creates an instance syncer. A nil clock defaults to the
// system clock.
func NewInstanceSyncer(api instancesAPI, detector *Detector, fetcher *PastDataFetcher, store Store, clock Clock, logger *zap.Logger) *InstanceSyncer {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstanceSyncer{api: api, detector: detector, fetcher: fetcher, store: store, clock: clock, logger: logger}
}

// SyncInstances reconciles the instances of one webinar, returning how many
// were upserted. Occurrence-level data wins over parent-webinar data, which
// wins over computed defaults, which win over literal fallbacks.
func (s *InstanceSyncer) SyncInstances(ctx context.Context, token string, userID uuid.UUID, w *models.Webinar) (int, error) {
	var instances []models.WebinarInstance

	if w.IsRecurring() {
		occurrences, err := s.api.GetWebinarInstances(ctx, token, w.WebinarID)
		if err != nil {
			return 0, err
		}
		for _, occ := range occurrences {
			instances = append(instances, s.fromOccurrence(userID, w, occ))
		}
	} else {
		instances = append(instances, s.synthesize(userID, w))
	}

	synced := 0
	for i := range instances {
		inst := &instances[i]

		cr := s.detector.Analyze(w, inst)
		if cr.ShouldFetchActualData {
			res := s.fetcher.Fetch(ctx, token, w, inst, cr)
			if res.ActualStartTime != nil {
				inst.ActualStartTime = res.ActualStartTime
			}
			if res.ActualDuration != nil {
				inst.ActualDuration = res.ActualDuration
			}
			if res.ActualEndTime != nil {
				inst.ActualEndTime = res.ActualEndTime
			}
			if res.ParticipantsCount != nil {
				inst.ParticipantsCount = res.ParticipantsCount
			}
			inst.EnhancedWithPastData = res.Success
		}

		inst.SyncedAt = s.clock.Now().UTC()
		if err := s.store.UpsertInstance(ctx, inst); err != nil {
			s.logger.Warn("instance upsert failed, skipping",
				zap.String("webinar_id", w.WebinarID),
				zap.String("instance_id", inst.InstanceID),
				zap.Error(err))
			continue
		}
		synced++
	}
	return synced, nil
}

// fromOccurrence builds an instance row from a provider occurrence,
// inheriting anything the occurrence lacks from the parent webinar.
func (s *InstanceSyncer) fromOccurrence(userID uuid.UUID, w *models.Webinar, occ provider.Occurrence) models.WebinarInstance {
	inst := models.WebinarInstance{
		UserID:     userID,
		WebinarID:  w.WebinarID,
		InstanceID: occ.UUID,
	}
	if inst.InstanceID == "" {
		inst.InstanceID = syntheticInstanceID(w)
	}

	if t := parseTime(occ.StartTime); t != nil {
		inst.StartTime = t
	} else {
		inst.StartTime = w.StartTime
	}
	if occ.Duration > 0 {
		inst.Duration = occ.Duration
	} else {
		inst.Duration = w.Duration
	}
	if occ.Status != "" {
		inst.Status = occ.Status
	} else if w.Status != "" {
		inst.Status = w.Status
	} else {
		inst.Status = models.StatusWaiting
	}
	inst.Topic = firstNonEmpty(w.Topic, DefaultTopic)
	return inst
}

// synthesize builds the single instance of a non-recurring webinar from the
// parent record alone.
func (s *InstanceSyncer) synthesize(userID uuid.UUID, w *models.Webinar) models.WebinarInstance {
	return models.WebinarInstance{
		UserID:      userID,
		WebinarID:   w.WebinarID,
		InstanceID:  syntheticInstanceID(w),
		Topic:       firstNonEmpty(w.Topic, DefaultTopic),
		StartTime:   w.StartTime,
		Duration:    w.Duration,
		Status:      firstNonEmpty(w.Status, models.StatusWaiting),
		Synthesized: true,
	}
}

// syntheticInstanceID prefers the webinar's own execution UUID; webinars that
// never ran have none, so a stable synthetic id keyed by webinar id is used.
func syntheticInstanceID(w *models.Webinar) string {
	if w.UUID != "" {
		return w.UUID
	}
	return "synthetic-" + w.WebinarID
}
