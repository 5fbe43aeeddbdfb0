package synclog

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlabs/webinsight/internal/middleware"
	"github.com/lumenlabs/webinsight/pkg/response"
)

// Handler serves the sync history audit trail.
type Handler struct {
	repo *Repository
}

// NewHandler creates a sync history handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /api/sync/history?limit=50.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.repo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.Internal(c, "failed to list sync history")
		return
	}
	response.OK(c, gin.H{"history": list})
}
