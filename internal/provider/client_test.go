package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil), srv
}

func TestGetMeSendsBearerToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"id":"u1","email":"owner@example.com"}`)
	})

	u, err := c.GetMe(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "owner@example.com", u.Email)
}

func TestScopeErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"by code", `{"code":4711,"message":"Invalid access token"}`},
		{"by message", `{"code":200,"message":"Invalid access token, does not contain scopes: [report:read:admin]"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.ListReportWebinars(context.Background(), "tok", "me",
				time.Now().AddDate(0, -1, 0), time.Now())
			require.Error(t, err)
			assert.True(t, IsScopeError(err))
			assert.False(t, IsNotFound(err))
		})
	}
}

func TestNotFoundClassification(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":3001,"message":"Webinar not found"}`)
	})

	_, err := c.GetPastWebinar(context.Background(), "tok", "123")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsScopeError(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, 3001, apiErr.Code)
	assert.Equal(t, "Webinar not found", apiErr.Message)
}

func TestListWebinarsFollowsPagination(t *testing.T) {
	var tokens []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("next_page_token")
		tokens = append(tokens, token)
		if token == "" {
			fmt.Fprint(w, `{"next_page_token":"page2","webinars":[{"id":1,"topic":"a"},{"id":2,"topic":"b"}]}`)
			return
		}
		fmt.Fprint(w, `{"next_page_token":"","webinars":[{"id":3,"topic":"c"}]}`)
	})

	ws, err := c.ListWebinars(context.Background(), "tok", "me")
	require.NoError(t, err)
	require.Len(t, ws, 3)
	assert.Equal(t, []string{"", "page2"}, tokens)
	assert.Equal(t, "3", ws[2].ID.String())
	assert.NotEmpty(t, ws[0].Raw, "verbatim payload kept for provenance")
}

func TestListReportWebinarsSendsDateBounds(t *testing.T) {
	var gotFrom, gotTo string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		fmt.Fprint(w, `{"webinars":[]}`)
	})

	from := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	to := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err := c.ListReportWebinars(context.Background(), "tok", "me", from, to)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", gotFrom)
	assert.Equal(t, "2026-03-15", gotTo)
}

func TestEscapeIDDoubleEncodesSlashUUIDs(t *testing.T) {
	assert.Equal(t, "123", escapeID("123"))
	assert.Equal(t, "a%2Fb", escapeID("a/b"), "interior single slash gets one pass")
	// UUIDs starting with "/" or containing "//" need two passes so the
	// path segment survives intermediary decoding.
	assert.Equal(t, "%252Fabc123", escapeID("/abc123"))
	assert.Equal(t, "ab%252F%252Fcd", escapeID("ab//cd"))
}

func TestGetPastWebinarUsesEscapedPath(t *testing.T) {
	var gotURI string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		fmt.Fprint(w, `{"uuid":"/abc123","duration":60}`)
	})

	pw, err := c.GetPastWebinar(context.Background(), "tok", "/abc123")
	require.NoError(t, err)
	assert.Equal(t, "/past_webinars/%252Fabc123", gotURI)
	assert.Equal(t, 60, pw.Duration)
}

func TestListWebinarsSkipsUndecodableItems(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"webinars":[{"id":1,"topic":"ok"},{"id":"not-a-number-or-string-id","type":"bad"}]}`)
	})

	ws, err := c.ListWebinars(context.Background(), "tok", "me")
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "ok", ws[0].Topic)
}

func TestErrorBodyFallsBackToRawText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	})

	_, err := c.GetMe(context.Background(), "tok")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}
