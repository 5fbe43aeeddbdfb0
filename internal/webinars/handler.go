package webinars

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/credentials"
	"github.com/lumenlabs/webinsight/internal/middleware"
	"github.com/lumenlabs/webinsight/internal/sync"
	"github.com/lumenlabs/webinsight/pkg/queue"
	"github.com/lumenlabs/webinsight/pkg/response"
)

// Chunked-sync batch sizes the dashboard is allowed to request.
const maxChunkBatch = 50

// Handler exposes the sync pipeline over HTTP.
type Handler struct {
	orch        *sync.Orchestrator
	repo        *Repository
	creds       *credentials.Repository
	jobs        *queue.Queue
	rdb         *goredis.Client
	minInterval time.Duration
	logger      *zap.Logger
}

// NewHandler creates a webinar sync handler.
func NewHandler(orch *sync.Orchestrator, repo *Repository, creds *credentials.Repository, jobs *queue.Queue, rdb *goredis.Client, minInterval time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minInterval <= 0 {
		minInterval = 5 * time.Minute
	}
	return &Handler{
		orch:        orch,
		repo:        repo,
		creds:       creds,
		jobs:        jobs,
		rdb:         rdb,
		minInterval: minInterval,
		logger:      logger,
	}
}

func (h *Handler) loadCredentials(c *gin.Context, userID uuid.UUID) (sync.Credentials, bool) {
	stored, err := h.creds.Get(c.Request.Context(), userID)
	if err == credentials.ErrNotFound {
		response.BadRequest(c, "no provider credentials configured")
		return sync.Credentials{}, false
	}
	if err != nil {
		response.Internal(c, "failed to load credentials")
		return sync.Credentials{}, false
	}
	return sync.Credentials{Token: stored.AccessToken, ProviderUserID: stored.ProviderUserID}, true
}

// acquireSyncGate rate-limits provider-hitting syncs per user. Returns false
// when a sync ran within the minimum interval. Redis trouble fails open.
func (h *Handler) acquireSyncGate(c *gin.Context, userID uuid.UUID) bool {
	key := fmt.Sprintf("sync:gate:%s", userID)
	ok, err := h.rdb.SetNX(c.Request.Context(), key, time.Now().Unix(), h.minInterval).Result()
	if err != nil {
		h.logger.Warn("sync gate check failed, allowing sync", zap.Error(err))
		return true
	}
	return ok
}

// SyncAll handles POST /api/webinars/sync?force=true.
// Without force a warm cache is returned as-is. With force the provider is
// re-queried, subject to the per-user minimum interval.
func (h *Handler) SyncAll(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	force := c.Query("force") == "true"

	if force && !h.acquireSyncGate(c, userID) {
		// Recent run exists; serve the cache instead of hammering the provider.
		h.logger.Info("forced sync within minimum interval, serving cache",
			zap.String("user_id", userID.String()))
		force = false
	}

	creds, ok := h.loadCredentials(c, userID)
	if !ok {
		return
	}

	outcome, err := h.orch.Sync(c.Request.Context(), userID, creds, force)
	if err != nil {
		h.logger.Error("sync failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.ServiceUnavailable(c, "sync failed: "+err.Error())
		return
	}
	response.OK(c, outcome)
}

// SyncOne handles POST /api/webinars/:id/sync.
func (h *Handler) SyncOne(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	webinarID := c.Param("id")
	if webinarID == "" {
		response.BadRequest(c, "missing webinar id")
		return
	}

	creds, ok := h.loadCredentials(c, userID)
	if !ok {
		return
	}

	w, err := h.orch.SyncSingleWebinar(c.Request.Context(), userID, creds, webinarID)
	if err != nil {
		h.logger.Error("single webinar sync failed",
			zap.String("webinar_id", webinarID), zap.Error(err))
		response.ServiceUnavailable(c, "sync failed: "+err.Error())
		return
	}
	response.OK(c, w)
}

// List handles GET /api/webinars. Reads the cache only; never touches the
// provider.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	list, err := h.repo.ListWebinars(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list webinars")
		return
	}
	response.OK(c, gin.H{"webinars": list, "total": len(list)})
}

// GetInstances handles GET /api/webinars/:id/instances.
func (h *Handler) GetInstances(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	webinarID := c.Param("id")
	if webinarID == "" {
		response.BadRequest(c, "missing webinar id")
		return
	}

	creds, ok := h.loadCredentials(c, userID)
	if !ok {
		return
	}

	instances, err := h.orch.GetInstances(c.Request.Context(), userID, creds, webinarID)
	if err != nil {
		response.ServiceUnavailable(c, "failed to get instances: "+err.Error())
		return
	}
	response.OK(c, gin.H{"instances": instances, "total": len(instances)})
}

type chunkedRequest struct {
	DataType   string   `json:"data_type" binding:"required"`
	WebinarIDs []string `json:"webinar_ids" binding:"required"`
	BatchIndex int      `json:"batch_index"`
}

var chunkTypes = map[string]bool{
	sync.ChunkParticipants: true,
	sync.ChunkChat:         true,
	sync.ChunkPolls:        true,
	sync.ChunkQuestions:    true,
	sync.ChunkRecordings:   true,
	sync.ChunkRegistrants:  true,
	sync.ChunkPanelists:    true,
}

// ChunkedSync handles POST /api/sync/chunked. The heavy per-webinar pulls run
// on the worker; the request only validates and enqueues.
func (h *Handler) ChunkedSync(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req chunkedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "data_type and webinar_ids are required")
		return
	}
	if !chunkTypes[req.DataType] {
		response.BadRequest(c, "unknown data_type "+req.DataType)
		return
	}
	if len(req.WebinarIDs) == 0 || len(req.WebinarIDs) > maxChunkBatch {
		response.BadRequest(c, fmt.Sprintf("webinar_ids must contain 1-%d ids", maxChunkBatch))
		return
	}

	jobID, err := h.jobs.EnqueueChunkedSync(c.Request.Context(), queue.ChunkedSyncPayload{
		UserID:     userID.String(),
		DataType:   req.DataType,
		WebinarIDs: req.WebinarIDs,
		BatchIndex: req.BatchIndex,
	})
	if err != nil {
		response.Internal(c, "failed to enqueue chunked sync")
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "data_type": req.DataType, "webinars": len(req.WebinarIDs)})
}
