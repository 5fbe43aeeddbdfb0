package engagement

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/middleware"
	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/pkg/response"
	"github.com/lumenlabs/webinsight/pkg/storage"
)

// Handler serves synced engagement data per webinar.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates an engagement handler. s3 may be nil when the recordings
// mirror is disabled.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, logger: logger}
}

func requestScope(c *gin.Context) (uuid.UUID, string, bool) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	webinarID := c.Param("id")
	if webinarID == "" {
		response.BadRequest(c, "missing webinar id")
		return uuid.Nil, "", false
	}
	return userID, webinarID, true
}

// ListParticipants handles GET /api/webinars/:id/participants.
func (h *Handler) ListParticipants(c *gin.Context) {
	userID, webinarID, ok := requestScope(c)
	if !ok {
		return
	}
	list, err := h.repo.ListParticipants(c.Request.Context(), userID, webinarID)
	if err != nil {
		response.Internal(c, "failed to list participants")
		return
	}
	response.OK(c, gin.H{"participants": list, "total": len(list)})
}

// ListChat handles GET /api/webinars/:id/chat.
func (h *Handler) ListChat(c *gin.Context) {
	userID, webinarID, ok := requestScope(c)
	if !ok {
		return
	}
	list, err := h.repo.ListChat(c.Request.Context(), userID, webinarID)
	if err != nil {
		response.Internal(c, "failed to list chat messages")
		return
	}
	response.OK(c, gin.H{"messages": list, "total": len(list)})
}

// ListPolls handles GET /api/webinars/:id/polls.
func (h *Handler) ListPolls(c *gin.Context) {
	userID, webinarID, ok := requestScope(c)
	if !ok {
		return
	}
	list, err := h.repo.ListPolls(c.Request.Context(), userID, webinarID)
	if err != nil {
		response.Internal(c, "failed to list polls")
		return
	}
	response.OK(c, gin.H{"polls": list, "total": len(list)})
}

// ListQuestions handles GET /api/webinars/:id/questions.
func (h *Handler) ListQuestions(c *gin.Context) {
	userID, webinarID, ok := requestScope(c)
	if !ok {
		return
	}
	list, err := h.repo.ListQuestions(c.Request.Context(), userID, webinarID)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"questions": list, "total": len(list)})
}

// ListRegistrants handles GET /api/webinars/:id/registrants.
func (h *Handler) ListRegistrants(c *gin.Context) {
	userID, webinarID, ok := requestScope(c)
	if !ok {
		return
	}
	list, err := h.repo.ListRegistrants(c.Request.Context(), userID, webinarID)
	if err != nil {
		response.Internal(c, "failed to list registrants")
		return
	}
	response.OK(c, gin.H{"registrants": list, "total": len(list)})
}

// ListPanelists handles GET /api/webinars/:id/panelists.
func (h *Handler) ListPanelists(c *gin.Context) {
	userID, webinarID, ok := requestScope(c)
	if !ok {
		return
	}
	list, err := h.repo.ListPanelists(c.Request.Context(), userID, webinarID)
	if err != nil {
		response.Internal(c, "failed to list panelists")
		return
	}
	response.OK(c, gin.H{"panelists": list, "total": len(list)})
}

// recordingView is a Recording plus a short-lived signed URL when mirrored.
type recordingView struct {
	models.Recording
	SignedURL string `json:"signed_url,omitempty"`
}

// ListRecordings handles GET /api/webinars/:id/recordings. Mirrored files get
// a pre-signed S3 URL; unmirrored ones expose the provider download URL only.
func (h *Handler) ListRecordings(c *gin.Context) {
	userID, webinarID, ok := requestScope(c)
	if !ok {
		return
	}
	list, err := h.repo.ListRecordings(c.Request.Context(), userID, webinarID)
	if err != nil {
		response.Internal(c, "failed to list recordings")
		return
	}
	views := make([]recordingView, 0, len(list))
	for _, rec := range list {
		view := recordingView{Recording: rec}
		if h.s3 != nil && rec.Status == models.RecordingStatusCompleted && rec.S3Key != "" {
			url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), rec.S3Key, h.s3.PresignExpire())
			if err != nil {
				h.logger.Warn("presign failed", zap.String("s3_key", rec.S3Key), zap.Error(err))
			} else {
				view.SignedURL = url
			}
		}
		views = append(views, view)
	}
	response.OK(c, gin.H{"recordings": views, "total": len(views)})
}
