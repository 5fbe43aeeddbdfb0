package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(write func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c)
	return w
}

func TestOKEnvelope(t *testing.T) {
	w := record(func(c *gin.Context) { OK(c, gin.H{"total": 3}) })

	assert.Equal(t, http.StatusOK, w.Code)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Empty(t, body.Error)
}

func TestAcceptedForQueuedWork(t *testing.T) {
	w := record(func(c *gin.Context) { Accepted(c, gin.H{"job_id": "j-1"}) })

	assert.Equal(t, http.StatusAccepted, w.Code)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
}

func TestErrorEnvelopeOmitsData(t *testing.T) {
	w := record(func(c *gin.Context) { BadRequest(c, "missing webinar id") })

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, false, raw["success"])
	assert.Equal(t, "missing webinar id", raw["error"])
	assert.NotContains(t, raw, "data")
}
