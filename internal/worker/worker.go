package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlabs/webinsight/internal/credentials"
	"github.com/lumenlabs/webinsight/internal/engagement"
	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/sync"
	"github.com/lumenlabs/webinsight/pkg/queue"
	"github.com/lumenlabs/webinsight/pkg/storage"
)

const dequeueTimeout = 5 * time.Second

// Worker drains the chunked-sync and recording-mirror queues.
type Worker struct {
	syncer  *sync.ChunkedSyncer
	engRepo *engagement.Repository
	creds   *credentials.Repository
	s3      *storage.S3
	queue   *queue.Queue
	logger  *zap.Logger
}

// New creates a worker. s3 may be nil; mirror jobs then fail into retry.
func New(syncer *sync.ChunkedSyncer, engRepo *engagement.Repository, creds *credentials.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{syncer: syncer, engRepo: engRepo, creds: creds, s3: s3, queue: q, logger: logger}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		job, queueName, err := w.queue.Dequeue(ctx, dequeueTimeout, queue.QueueChunkedSync, queue.QueueRecordingMirror)
		if err != nil {
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", job.Type))
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
			if reErr := w.queue.Retry(ctx, queueName, job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}

// Process executes one job.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeChunkedSync:
		return w.processChunkedSync(ctx, job)
	case queue.JobTypeRecordingMirror:
		return w.processRecordingMirror(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processChunkedSync(ctx context.Context, job *queue.Job) error {
	var payload queue.ChunkedSyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", payload.UserID, err)
	}

	stored, err := w.creds.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	creds := sync.Credentials{Token: stored.AccessToken, ProviderUserID: stored.ProviderUserID}

	res, err := w.syncer.SyncChunk(ctx, creds, userID, payload.DataType, payload.WebinarIDs, payload.BatchIndex)
	if err != nil {
		return fmt.Errorf("chunked sync: %w", err)
	}
	w.logger.Info("chunked sync batch completed",
		zap.String("data_type", res.DataType),
		zap.Int("batch_index", res.BatchIndex),
		zap.Int("processed", res.Processed),
		zap.Int("items", res.ItemCount),
		zap.Int("failed", res.Failed))
	return nil
}

func (w *Worker) processRecordingMirror(ctx context.Context, job *queue.Job) error {
	if w.s3 == nil {
		return fmt.Errorf("recordings mirror disabled")
	}
	var payload queue.RecordingMirrorPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	recordingID, err := uuid.Parse(payload.RecordingID)
	if err != nil {
		return fmt.Errorf("invalid recording id %q: %w", payload.RecordingID, err)
	}

	rec, err := w.engRepo.GetRecordingByID(ctx, recordingID)
	if err != nil {
		return fmt.Errorf("recording not found: %s", payload.RecordingID)
	}
	if rec.Status == models.RecordingStatusCompleted {
		w.logger.Info("recording already mirrored", zap.String("recording_id", rec.ID.String()))
		return nil
	}
	if err := w.engRepo.UpdateRecordingStatus(ctx, rec.ID, models.RecordingStatusMirroring); err != nil {
		w.logger.Warn("status update failed", zap.Error(err))
	}

	downloadURL := payload.DownloadURL
	if downloadURL == "" {
		downloadURL = rec.DownloadURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return w.failMirror(ctx, rec.ID, fmt.Errorf("create request: %w", err))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return w.failMirror(ctx, rec.ID, fmt.Errorf("download: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return w.failMirror(ctx, rec.ID, fmt.Errorf("download status: %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.ContentTypeForFileType(rec.FileType)
	}
	key := storage.RecordingKey(rec.WebinarID, rec.ID.String(), rec.FileType)

	s3URL, err := w.s3.Upload(ctx, key, contentType, resp.Body, resp.ContentLength)
	if err != nil {
		return w.failMirror(ctx, rec.ID, fmt.Errorf("s3 upload: %w", err))
	}

	size := resp.ContentLength
	if size < 0 {
		size = rec.FileSize
	}
	if err := w.engRepo.UpdateRecordingMirror(ctx, rec.ID, s3URL, key, size); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	w.logger.Info("recording mirrored",
		zap.String("recording_id", rec.ID.String()), zap.String("s3_key", key))
	return nil
}

// failMirror marks the row failed and returns the error so the job retries.
// A later attempt moves the row back to mirroring.
func (w *Worker) failMirror(ctx context.Context, id uuid.UUID, cause error) error {
	if err := w.engRepo.UpdateRecordingStatus(ctx, id, models.RecordingStatusFailed); err != nil {
		w.logger.Warn("status update failed", zap.Error(err))
	}
	return cause
}
