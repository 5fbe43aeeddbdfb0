// Package provider implements the REST client for the video-conferencing
// provider's API: bearer-token auth, pagination, and error classification.
// Payloads are decoded into per-endpoint types at this boundary; nothing
// downstream sees provider-shaped raw maps.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the provider's v2 REST API root.
const DefaultBaseURL = "https://api.zoom.us/v2"

// maxBodyBytes caps how much of a response body is read (error bodies
// included).
const maxBodyBytes = 10 << 20

// listPageSize is the page size requested from list endpoints.
const listPageSize = 300

// Client is a thin HTTP client over the provider API. Tokens are passed per
// call because one process serves many dashboard users.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a provider API client. timeout bounds every request;
// callers layer tighter per-call deadlines via ctx where needed.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: path}
		// Error bodies are {code, message}; keep whatever parses.
		_ = json.Unmarshal(body, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		c.logger.Debug("provider error response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Int("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

// escapeID prepares a webinar id or UUID for use in a URL path. UUIDs that
// start with "/" or contain "//" must be double-encoded per the provider's
// API docs.
func escapeID(id string) string {
	if strings.HasPrefix(id, "/") || strings.Contains(id, "//") {
		return url.PathEscape(url.PathEscape(id))
	}
	return url.PathEscape(id)
}

// GetMe verifies the token against GET /users/me and returns the owning
// account. This is the cheapest credential/scope probe the API offers.
func (c *Client) GetMe(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.get(ctx, token, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns the provider account for id (host lookup).
func (c *Client) GetUser(ctx context.Context, token, id string) (*User, error) {
	var u User
	if err := c.get(ctx, token, "/users/"+escapeID(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

type webinarListPage struct {
	PageSize      int               `json:"page_size"`
	TotalRecords  int               `json:"total_records"`
	NextPageToken string            `json:"next_page_token"`
	Webinars      []json.RawMessage `json:"webinars"`
}

// ListWebinars returns all scheduled/upcoming webinars for the provider user,
// following next_page_token until exhausted. Each item keeps its verbatim
// payload in Raw.
func (c *Client) ListWebinars(ctx context.Context, token, userID string) ([]StandardWebinar, error) {
	var all []StandardWebinar
	pageToken := ""
	for {
		q := url.Values{"page_size": {fmt.Sprint(listPageSize)}}
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}
		var page webinarListPage
		if err := c.get(ctx, token, "/users/"+escapeID(userID)+"/webinars", q, &page); err != nil {
			return nil, err
		}
		for _, raw := range page.Webinars {
			var w StandardWebinar
			if err := json.Unmarshal(raw, &w); err != nil {
				c.logger.Warn("skipping undecodable webinar payload", zap.Error(err))
				continue
			}
			w.Raw = raw
			all = append(all, w)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return all, nil
}

// ListWebinarsRange calls the standard webinars endpoint with from/to query
// bounds. Not every provider plan honors the bounds (some ignore them and
// return the full upcoming set), so callers must deduplicate across chunks.
func (c *Client) ListWebinarsRange(ctx context.Context, token, userID string, from, to time.Time) ([]StandardWebinar, error) {
	var all []StandardWebinar
	pageToken := ""
	for {
		q := url.Values{
			"page_size": {fmt.Sprint(listPageSize)},
			"from":      {from.UTC().Format("2006-01-02")},
			"to":        {to.UTC().Format("2006-01-02")},
		}
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}
		var page webinarListPage
		if err := c.get(ctx, token, "/users/"+escapeID(userID)+"/webinars", q, &page); err != nil {
			return nil, err
		}
		for _, raw := range page.Webinars {
			var w StandardWebinar
			if err := json.Unmarshal(raw, &w); err != nil {
				continue
			}
			w.Raw = raw
			all = append(all, w)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return all, nil
}

// ListReportWebinars returns concluded webinars for the provider user within
// [from, to], following pagination. The reporting endpoint requires the
// report OAuth scope; a rejection surfaces as an APIError with
// IsScopeError() true.
func (c *Client) ListReportWebinars(ctx context.Context, token, userID string, from, to time.Time) ([]ReportWebinar, error) {
	var all []ReportWebinar
	pageToken := ""
	for {
		q := url.Values{
			"page_size": {fmt.Sprint(listPageSize)},
			"from":      {from.UTC().Format("2006-01-02")},
			"to":        {to.UTC().Format("2006-01-02")},
		}
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}
		var page webinarListPage
		if err := c.get(ctx, token, "/report/users/"+escapeID(userID)+"/webinars", q, &page); err != nil {
			return nil, err
		}
		for _, raw := range page.Webinars {
			var w ReportWebinar
			if err := json.Unmarshal(raw, &w); err != nil {
				c.logger.Warn("skipping undecodable report payload", zap.Error(err))
				continue
			}
			w.Raw = raw
			all = append(all, w)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return all, nil
}

// GetWebinar returns one webinar by id from the standard endpoint.
func (c *Client) GetWebinar(ctx context.Context, token, id string) (*StandardWebinar, error) {
	var raw json.RawMessage
	if err := c.get(ctx, token, "/webinars/"+escapeID(id), nil, &raw); err != nil {
		return nil, err
	}
	var w StandardWebinar
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode webinar %s: %w", id, err)
	}
	w.Raw = raw
	return &w, nil
}

// GetWebinarInstances returns the occurrences of a (typically recurring)
// webinar.
func (c *Client) GetWebinarInstances(ctx context.Context, token, id string) ([]Occurrence, error) {
	var page struct {
		Webinars []Occurrence `json:"webinars"`
	}
	if err := c.get(ctx, token, "/webinars/"+escapeID(id)+"/instances", nil, &page); err != nil {
		return nil, err
	}
	return page.Webinars, nil
}

// GetPastWebinar returns actual-execution data for a concluded webinar,
// keyed by numeric id or instance UUID.
func (c *Client) GetPastWebinar(ctx context.Context, token, idOrUUID string) (*PastWebinar, error) {
	var pw PastWebinar
	if err := c.get(ctx, token, "/past_webinars/"+escapeID(idOrUUID), nil, &pw); err != nil {
		return nil, err
	}
	return &pw, nil
}

// ListRegistrants returns all registrants for a webinar.
func (c *Client) ListRegistrants(ctx context.Context, token, id string) ([]Registrant, error) {
	var all []Registrant
	pageToken := ""
	for {
		q := url.Values{"page_size": {fmt.Sprint(listPageSize)}}
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}
		var page struct {
			NextPageToken string       `json:"next_page_token"`
			Registrants   []Registrant `json:"registrants"`
		}
		if err := c.get(ctx, token, "/webinars/"+escapeID(id)+"/registrants", q, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Registrants...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return all, nil
}

// ListPastParticipants returns all attendees of a concluded webinar.
func (c *Client) ListPastParticipants(ctx context.Context, token, id string) ([]Participant, error) {
	var all []Participant
	pageToken := ""
	for {
		q := url.Values{"page_size": {fmt.Sprint(listPageSize)}}
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}
		var page struct {
			NextPageToken string        `json:"next_page_token"`
			Participants  []Participant `json:"participants"`
		}
		if err := c.get(ctx, token, "/past_webinars/"+escapeID(id)+"/participants", q, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Participants...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return all, nil
}

// ListPastChat returns the in-webinar chat transcript of a concluded webinar.
func (c *Client) ListPastChat(ctx context.Context, token, id string) ([]ChatMessage, error) {
	var page struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := c.get(ctx, token, "/past_webinars/"+escapeID(id)+"/chat", nil, &page); err != nil {
		return nil, err
	}
	return page.Messages, nil
}

// ListPastPolls returns poll questions and answers of a concluded webinar.
func (c *Client) ListPastPolls(ctx context.Context, token, id string) ([]PollQuestion, error) {
	var page struct {
		Questions []PollQuestion `json:"questions"`
	}
	if err := c.get(ctx, token, "/past_webinars/"+escapeID(id)+"/polls", nil, &page); err != nil {
		return nil, err
	}
	return page.Questions, nil
}

// ListPastQA returns the Q&A entries of a concluded webinar.
func (c *Client) ListPastQA(ctx context.Context, token, id string) ([]QAEntry, error) {
	var page struct {
		Questions []QAEntry `json:"questions"`
	}
	if err := c.get(ctx, token, "/past_webinars/"+escapeID(id)+"/qa", nil, &page); err != nil {
		return nil, err
	}
	return page.Questions, nil
}

// ListPastRecordings returns the recording files of a concluded webinar.
func (c *Client) ListPastRecordings(ctx context.Context, token, id string) ([]RecordingFile, error) {
	var page struct {
		RecordingFiles []RecordingFile `json:"recording_files"`
	}
	if err := c.get(ctx, token, "/past_webinars/"+escapeID(id)+"/recordings", nil, &page); err != nil {
		return nil, err
	}
	return page.RecordingFiles, nil
}

// ListPanelists returns the panelists assigned to a webinar.
func (c *Client) ListPanelists(ctx context.Context, token, id string) ([]Panelist, error) {
	var page struct {
		Panelists []Panelist `json:"panelists"`
	}
	if err := c.get(ctx, token, "/webinars/"+escapeID(id)+"/panelists", nil, &page); err != nil {
		return nil, err
	}
	return page.Panelists, nil
}
