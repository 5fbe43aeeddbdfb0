package credentials

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlabs/webinsight/internal/middleware"
	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/pkg/response"
)

// Handler manages provider credentials for the authenticated user.
type Handler struct {
	repo *Repository
}

// NewHandler creates a credentials handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type saveRequest struct {
	AccessToken    string `json:"access_token" binding:"required"`
	ProviderUserID string `json:"provider_user_id"`
}

// Save handles PUT /api/credentials.
func (h *Handler) Save(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "access_token is required")
		return
	}
	creds := &models.ProviderCredentials{
		UserID:         userID,
		ProviderUserID: req.ProviderUserID,
		AccessToken:    req.AccessToken,
	}
	if err := h.repo.Save(c.Request.Context(), creds); err != nil {
		response.Internal(c, "failed to save credentials")
		return
	}
	response.OK(c, gin.H{"provider_user_id": creds.ProviderUserID})
}

// Status handles GET /api/credentials. It reports whether credentials exist
// without ever returning the token.
func (h *Handler) Status(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	creds, err := h.repo.Get(c.Request.Context(), userID)
	if err == ErrNotFound {
		response.OK(c, gin.H{"configured": false})
		return
	}
	if err != nil {
		response.Internal(c, "failed to load credentials")
		return
	}
	response.OK(c, gin.H{
		"configured":       true,
		"provider_user_id": creds.ProviderUserID,
		"updated_at":       creds.UpdatedAt,
	})
}
