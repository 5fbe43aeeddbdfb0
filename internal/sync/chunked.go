package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

// Chunked-sync data types, enriched independently of the core webinar sync.
const (
	ChunkParticipants = "participants"
	ChunkChat         = "chat"
	ChunkPolls        = "polls"
	ChunkQuestions    = "questions"
	ChunkRecordings   = "recordings"
	ChunkRegistrants  = "registrants"
	ChunkPanelists    = "panelists"
)

// chunkedAPI is the slice of the provider client chunked sync uses.
type chunkedAPI interface {
	ListPastParticipants(ctx context.Context, token, id string) ([]provider.Participant, error)
	ListPastChat(ctx context.Context, token, id string) ([]provider.ChatMessage, error)
	ListPastPolls(ctx context.Context, token, id string) ([]provider.PollQuestion, error)
	ListPastQA(ctx context.Context, token, id string) ([]provider.QAEntry, error)
	ListPastRecordings(ctx context.Context, token, id string) ([]provider.RecordingFile, error)
	ListRegistrants(ctx context.Context, token, id string) ([]provider.Registrant, error)
	ListPanelists(ctx context.Context, token, id string) ([]provider.Panelist, error)
}

// EngagementStore persists per-webinar enrichment rows. Replace methods
// delete the webinar's existing rows before inserting the fresh set; this
// explicit resync is the only place the system ever deletes.
type EngagementStore interface {
	ReplaceParticipants(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Participant) error
	ReplaceChat(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.ChatMessage) error
	ReplacePolls(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.PollResult) error
	ReplaceQuestions(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Question) error
	ReplaceRegistrants(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Registrant) error
	ReplacePanelists(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Panelist) error
	UpsertRecording(ctx context.Context, rec *models.Recording) error
}

// MirrorEnqueuer schedules background mirroring of a recording file to S3.
type MirrorEnqueuer interface {
	EnqueueRecordingMirror(ctx context.Context, recordingID uuid.UUID, webinarID, downloadURL string) error
}

// ChunkResult reports one chunked-sync batch.
type ChunkResult struct {
	DataType   string   `json:"data_type"`
	BatchIndex int      `json:"batch_index"`
	Processed  int      `json:"processed"`
	ItemCount  int      `json:"item_count"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// ChunkedSyncer performs incremental enrichment of engagement data for
// explicit webinar id batches, decoupled from the core webinar sync so the
// dashboard can page through heavy data types.
type ChunkedSyncer struct {
	api      chunkedAPI
	store    EngagementStore
	mirror   MirrorEnqueuer
	history  HistoryStore
	callTime time.Duration
	logger   *zap.Logger
}

// NewChunkedSyncer creates a chunked syncer. mirror may be nil when S3
// mirroring is disabled.
func NewChunkedSyncer(api chunkedAPI, store EngagementStore, mirror MirrorEnqueuer, history HistoryStore, callTimeout time.Duration, logger *zap.Logger) *ChunkedSyncer {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChunkedSyncer{api: api, store: store, mirror: mirror, history: history, callTime: callTimeout, logger: logger}
}

// SyncChunk fetches and replaces one data type for each webinar in the batch.
// Per-webinar failures are accumulated and skipped; the chunk always
// completes.
func (c *ChunkedSyncer) SyncChunk(ctx context.Context, creds Credentials, userID uuid.UUID, dataType string, webinarIDs []string, batchIndex int) (*ChunkResult, error) {
	res := &ChunkResult{DataType: dataType, BatchIndex: batchIndex}

	if creds.Token == "" {
		return nil, fmt.Errorf("no provider access token available")
	}

	for _, id := range webinarIDs {
		n, err := c.syncOne(ctx, creds.Token, userID, dataType, id)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", id, err))
			c.logger.Warn("chunked sync item failed",
				zap.String("data_type", dataType), zap.String("webinar_id", id), zap.Error(err))
			continue
		}
		res.Processed++
		res.ItemCount += n
	}

	if c.history != nil {
		status := models.SyncStatusSuccess
		if res.Failed > 0 && res.Processed == 0 {
			status = models.SyncStatusFailed
		} else if res.Failed > 0 {
			status = models.SyncStatusPartial
		}
		h := &models.SyncHistory{
			ID:          uuid.New(),
			UserID:      userID,
			SyncType:    models.SyncTypeChunked,
			Status:      status,
			ItemsSynced: res.ItemCount,
			Message: fmt.Sprintf("%s batch %d: %d webinars processed, %d failed, %d items",
				dataType, batchIndex, res.Processed, res.Failed, res.ItemCount),
			CreatedAt: time.Now().UTC(),
		}
		if err := c.history.Append(ctx, h); err != nil {
			c.logger.Error("chunked sync history append failed", zap.Error(err))
		}
	}
	return res, nil
}

func (c *ChunkedSyncer) syncOne(ctx context.Context, token string, userID uuid.UUID, dataType, webinarID string) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTime)
	defer cancel()

	switch dataType {
	case ChunkParticipants:
		ps, err := c.api.ListPastParticipants(callCtx, token, webinarID)
		if err != nil {
			return 0, err
		}
		rows := make([]models.Participant, 0, len(ps))
		for _, p := range ps {
			rows = append(rows, models.Participant{
				ID:               uuid.New(),
				UserID:           userID,
				WebinarID:        webinarID,
				ParticipantID:    firstNonEmpty(p.ParticipantUUID, p.ID),
				Name:             p.Name,
				Email:            p.UserEmail,
				JoinTime:         parseTime(p.JoinTime),
				LeaveTime:        parseTime(p.LeaveTime),
				DurationSeconds:  p.Duration,
				AttentivenessPct: parsePercent(p.AttentivenessPct),
			})
		}
		return len(rows), c.store.ReplaceParticipants(ctx, userID, webinarID, rows)

	case ChunkChat:
		msgs, err := c.api.ListPastChat(callCtx, token, webinarID)
		if err != nil {
			return 0, err
		}
		rows := make([]models.ChatMessage, 0, len(msgs))
		for _, m := range msgs {
			rows = append(rows, models.ChatMessage{
				ID:        uuid.New(),
				UserID:    userID,
				WebinarID: webinarID,
				Sender:    m.Sender,
				Message:   m.Message,
				SentAt:    parseTime(m.DateTime),
			})
		}
		return len(rows), c.store.ReplaceChat(ctx, userID, webinarID, rows)

	case ChunkPolls:
		polls, err := c.api.ListPastPolls(callCtx, token, webinarID)
		if err != nil {
			return 0, err
		}
		rows := make([]models.PollResult, 0, len(polls))
		for _, p := range polls {
			rows = append(rows, models.PollResult{
				ID:        uuid.New(),
				UserID:    userID,
				WebinarID: webinarID,
				PollID:    p.PollID,
				Question:  p.Question,
				Answers:   p.Answers,
			})
		}
		return len(rows), c.store.ReplacePolls(ctx, userID, webinarID, rows)

	case ChunkQuestions:
		qa, err := c.api.ListPastQA(callCtx, token, webinarID)
		if err != nil {
			return 0, err
		}
		rows := make([]models.Question, 0, len(qa))
		for _, q := range qa {
			rows = append(rows, models.Question{
				ID:        uuid.New(),
				UserID:    userID,
				WebinarID: webinarID,
				Asker:     q.Name,
				Content:   q.Question,
				Answer:    q.Answer,
			})
		}
		return len(rows), c.store.ReplaceQuestions(ctx, userID, webinarID, rows)

	case ChunkRegistrants:
		regs, err := c.api.ListRegistrants(callCtx, token, webinarID)
		if err != nil {
			return 0, err
		}
		rows := make([]models.Registrant, 0, len(regs))
		for _, r := range regs {
			rows = append(rows, models.Registrant{
				ID:           uuid.New(),
				UserID:       userID,
				WebinarID:    webinarID,
				RegistrantID: r.ID,
				Email:        r.Email,
				FirstName:    r.FirstName,
				LastName:     r.LastName,
				Status:       r.Status,
				RegisteredAt: parseTime(r.CreateTime),
			})
		}
		return len(rows), c.store.ReplaceRegistrants(ctx, userID, webinarID, rows)

	case ChunkPanelists:
		panelists, err := c.api.ListPanelists(callCtx, token, webinarID)
		if err != nil {
			return 0, err
		}
		rows := make([]models.Panelist, 0, len(panelists))
		for _, p := range panelists {
			rows = append(rows, models.Panelist{
				ID:         uuid.New(),
				UserID:     userID,
				WebinarID:  webinarID,
				PanelistID: p.ID,
				Name:       p.Name,
				Email:      p.Email,
			})
		}
		return len(rows), c.store.ReplacePanelists(ctx, userID, webinarID, rows)

	case ChunkRecordings:
		files, err := c.api.ListPastRecordings(callCtx, token, webinarID)
		if err != nil {
			return 0, err
		}
		count := 0
		for _, f := range files {
			rec := &models.Recording{
				ID:                  uuid.New(),
				UserID:              userID,
				WebinarID:           webinarID,
				ProviderRecordingID: f.ID,
				FileType:            f.FileType,
				DownloadURL:         f.DownloadURL,
				FileSize:            f.FileSize,
				RecordingStart:      parseTime(f.RecordingStart),
				RecordingEnd:        parseTime(f.RecordingEnd),
				Status:              models.RecordingStatusPending,
			}
			if err := c.store.UpsertRecording(ctx, rec); err != nil {
				c.logger.Warn("recording upsert failed",
					zap.String("webinar_id", webinarID), zap.String("recording_id", f.ID), zap.Error(err))
				continue
			}
			count++
			if c.mirror != nil && f.DownloadURL != "" {
				if err := c.mirror.EnqueueRecordingMirror(ctx, rec.ID, webinarID, f.DownloadURL); err != nil {
					c.logger.Warn("recording mirror enqueue failed", zap.Error(err))
				}
			}
		}
		return count, nil

	default:
		return 0, fmt.Errorf("unknown chunked data type %q", dataType)
	}
}

// parsePercent parses provider attentiveness values like "87%" or "87".
func parsePercent(s string) *int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
