package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueChunkedSync holds deferred per-webinar engagement sync jobs.
	QueueChunkedSync = "queue:chunked_sync"
	// QueueRecordingMirror holds recording download-and-mirror jobs.
	QueueRecordingMirror = "queue:recording_mirror"
	// QueueDead receives jobs that exhausted their retries.
	QueueDead = "queue:dead"

	// MaxRetries is the number of attempts before a job lands in the dead queue.
	MaxRetries = 3

	// RetryBackoff is how long the worker sleeps after a failed job before
	// polling again.
	RetryBackoff = 2 * time.Second
)

// Job types.
const (
	JobTypeChunkedSync     = "chunked_sync"
	JobTypeRecordingMirror = "recording_mirror"
)

// Job is the envelope pushed onto Redis lists.
type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChunkedSyncPayload asks the worker to pull one engagement data type for a
// set of webinars belonging to a user.
type ChunkedSyncPayload struct {
	UserID     string   `json:"user_id"`
	DataType   string   `json:"data_type"`
	WebinarIDs []string `json:"webinar_ids"`
	BatchIndex int      `json:"batch_index"`
}

// RecordingMirrorPayload asks the worker to stream one provider recording
// file into the S3 mirror bucket. The worker resolves owner and file type
// from the recording row.
type RecordingMirrorPayload struct {
	RecordingID string `json:"recording_id"`
	WebinarID   string `json:"webinar_id"`
	DownloadURL string `json:"download_url"`
}

// Queue is a Redis-list backed job queue with retry and dead-letter support.
type Queue struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func New(rdb *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{rdb: rdb, logger: logger}
}

// Enqueue pushes a new job onto the given queue.
func (q *Queue) Enqueue(ctx context.Context, queueName, jobType string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.RPush(ctx, queueName, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush %s: %w", queueName, err)
	}
	q.logger.Debug("job enqueued",
		zap.String("queue", queueName),
		zap.String("job_id", job.ID),
		zap.String("type", jobType))
	return job.ID, nil
}

// EnqueueChunkedSync queues an engagement data pull for later processing.
func (q *Queue) EnqueueChunkedSync(ctx context.Context, p ChunkedSyncPayload) (string, error) {
	return q.Enqueue(ctx, QueueChunkedSync, JobTypeChunkedSync, p)
}

// EnqueueRecordingMirror queues an S3 mirror job for a recording file.
func (q *Queue) EnqueueRecordingMirror(ctx context.Context, recordingID uuid.UUID, webinarID, downloadURL string) error {
	_, err := q.Enqueue(ctx, QueueRecordingMirror, JobTypeRecordingMirror, RecordingMirrorPayload{
		RecordingID: recordingID.String(),
		WebinarID:   webinarID,
		DownloadURL: downloadURL,
	})
	return err
}

// Dequeue blocks up to timeout waiting for a job on any of the given queues.
// Returns nil job when the wait times out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration, queues ...string) (*Job, string, error) {
	res, err := q.rdb.BLPop(ctx, timeout, queues...).Result()
	if err == redis.Nil {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("blpop: %w", err)
	}
	// res[0] is the queue name, res[1] the payload.
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, "", fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, res[0], nil
}

// Retry requeues a failed job, or moves it to the dead queue once the
// attempt budget is spent.
func (q *Queue) Retry(ctx context.Context, queueName string, job *Job) error {
	job.Attempts++
	if job.Attempts >= MaxRetries {
		return q.moveToDead(ctx, job)
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.RPush(ctx, queueName, raw).Err(); err != nil {
		return fmt.Errorf("rpush retry: %w", err)
	}
	q.logger.Warn("job requeued",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempts))
	return nil
}

func (q *Queue) moveToDead(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.RPush(ctx, QueueDead, raw).Err(); err != nil {
		return fmt.Errorf("rpush dead: %w", err)
	}
	q.logger.Error("job moved to dead queue",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempts))
	return nil
}
