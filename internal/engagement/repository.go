// Package engagement persists per-webinar enrichment data (participants,
// chat, polls, Q&A, registrants, panelists, recordings) synced from the
// provider's reporting endpoints.
package engagement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlabs/webinsight/internal/models"
)

// Repository handles engagement persistence. Replace methods delete the
// webinar's existing rows before inserting the fresh provider set; this
// explicit resync is the only delete the system performs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an engagement repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceParticipants swaps the participant set of one webinar.
func (r *Repository) ReplaceParticipants(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Participant) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM participants WHERE user_id = $1 AND webinar_id = $2`, userID, webinarID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	for _, p := range rows {
		_, err := r.pool.Exec(ctx, `INSERT INTO participants
			(id, user_id, webinar_id, participant_id, name, email, join_time, leave_time, duration_seconds, attentiveness_pct)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			p.ID, p.UserID, p.WebinarID, p.ParticipantID, p.Name, p.Email, p.JoinTime, p.LeaveTime, p.DurationSeconds, p.AttentivenessPct)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	return nil
}

// ReplaceChat swaps the chat transcript of one webinar.
func (r *Repository) ReplaceChat(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.ChatMessage) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1 AND webinar_id = $2`, userID, webinarID); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	for _, m := range rows {
		_, err := r.pool.Exec(ctx, `INSERT INTO chat_messages (id, user_id, webinar_id, sender, message, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, m.UserID, m.WebinarID, m.Sender, m.Message, m.SentAt)
		if err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}
	return nil
}

// ReplacePolls swaps the poll results of one webinar.
func (r *Repository) ReplacePolls(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.PollResult) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM poll_results WHERE user_id = $1 AND webinar_id = $2`, userID, webinarID); err != nil {
		return fmt.Errorf("clear polls: %w", err)
	}
	for _, p := range rows {
		_, err := r.pool.Exec(ctx, `INSERT INTO poll_results (id, user_id, webinar_id, poll_id, question, answers)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.UserID, p.WebinarID, p.PollID, p.Question, p.Answers)
		if err != nil {
			return fmt.Errorf("insert poll result: %w", err)
		}
	}
	return nil
}

// ReplaceQuestions swaps the Q&A entries of one webinar.
func (r *Repository) ReplaceQuestions(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Question) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE user_id = $1 AND webinar_id = $2`, userID, webinarID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range rows {
		_, err := r.pool.Exec(ctx, `INSERT INTO questions (id, user_id, webinar_id, asker, content, answer)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, q.UserID, q.WebinarID, q.Asker, q.Content, q.Answer)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}
	return nil
}

// ReplaceRegistrants swaps the registrant set of one webinar.
func (r *Repository) ReplaceRegistrants(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Registrant) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM registrants WHERE user_id = $1 AND webinar_id = $2`, userID, webinarID); err != nil {
		return fmt.Errorf("clear registrants: %w", err)
	}
	for _, reg := range rows {
		_, err := r.pool.Exec(ctx, `INSERT INTO registrants
			(id, user_id, webinar_id, registrant_id, email, first_name, last_name, status, registered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			reg.ID, reg.UserID, reg.WebinarID, reg.RegistrantID, reg.Email, reg.FirstName, reg.LastName, reg.Status, reg.RegisteredAt)
		if err != nil {
			return fmt.Errorf("insert registrant: %w", err)
		}
	}
	return nil
}

// ReplacePanelists swaps the panelist set of one webinar.
func (r *Repository) ReplacePanelists(ctx context.Context, userID uuid.UUID, webinarID string, rows []models.Panelist) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM panelists WHERE user_id = $1 AND webinar_id = $2`, userID, webinarID); err != nil {
		return fmt.Errorf("clear panelists: %w", err)
	}
	for _, p := range rows {
		_, err := r.pool.Exec(ctx, `INSERT INTO panelists (id, user_id, webinar_id, panelist_id, name, email)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.UserID, p.WebinarID, p.PanelistID, p.Name, p.Email)
		if err != nil {
			return fmt.Errorf("insert panelist: %w", err)
		}
	}
	return nil
}

// UpsertRecording inserts or updates a recording row on conflict (user_id,
// webinar_id, provider_recording_id), preserving any S3 mirror already made.
func (r *Repository) UpsertRecording(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings
		(id, user_id, webinar_id, provider_recording_id, file_type, download_url, s3_url, s3_key, file_size,
			recording_start, recording_end, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, webinar_id, provider_recording_id) DO UPDATE SET
			file_type = EXCLUDED.file_type,
			download_url = EXCLUDED.download_url,
			file_size = EXCLUDED.file_size,
			recording_start = EXCLUDED.recording_start,
			recording_end = EXCLUDED.recording_end,
			status = CASE WHEN recordings.status = 'completed' THEN recordings.status ELSE EXCLUDED.status END,
			updated_at = NOW()
		RETURNING id`
	return r.pool.QueryRow(ctx, q,
		rec.ID, rec.UserID, rec.WebinarID, rec.ProviderRecordingID, rec.FileType, rec.DownloadURL,
		rec.S3URL, rec.S3Key, rec.FileSize, rec.RecordingStart, rec.RecordingEnd, rec.Status).Scan(&rec.ID)
}

// GetRecordingByID returns one recording row.
func (r *Repository) GetRecordingByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	const q = `SELECT id, user_id, webinar_id, provider_recording_id, file_type, download_url, s3_url, s3_key,
			file_size, recording_start, recording_end, status, created_at, updated_at
		FROM recordings WHERE id = $1`
	var rec models.Recording
	err := r.pool.QueryRow(ctx, q, id).Scan(&rec.ID, &rec.UserID, &rec.WebinarID, &rec.ProviderRecordingID,
		&rec.FileType, &rec.DownloadURL, &rec.S3URL, &rec.S3Key, &rec.FileSize,
		&rec.RecordingStart, &rec.RecordingEnd, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRecordingMirror records a completed S3 mirror.
func (r *Repository) UpdateRecordingMirror(ctx context.Context, id uuid.UUID, s3URL, s3Key string, fileSize int64) error {
	const q = `UPDATE recordings SET s3_url = $1, s3_key = $2, file_size = $3, status = $4, updated_at = NOW() WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, s3URL, s3Key, fileSize, models.RecordingStatusCompleted, id)
	return err
}

// UpdateRecordingStatus sets a recording's mirror status.
func (r *Repository) UpdateRecordingStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE recordings SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// ListParticipants returns the synced participants of one webinar.
func (r *Repository) ListParticipants(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.Participant, error) {
	const q = `SELECT id, user_id, webinar_id, participant_id, name, email, join_time, leave_time,
			duration_seconds, attentiveness_pct, created_at
		FROM participants WHERE user_id = $1 AND webinar_id = $2 ORDER BY join_time ASC NULLS LAST`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.UserID, &p.WebinarID, &p.ParticipantID, &p.Name, &p.Email,
			&p.JoinTime, &p.LeaveTime, &p.DurationSeconds, &p.AttentivenessPct, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListChat returns the synced chat messages of one webinar in send order.
func (r *Repository) ListChat(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.ChatMessage, error) {
	const q = `SELECT id, user_id, webinar_id, sender, message, sent_at, created_at
		FROM chat_messages WHERE user_id = $1 AND webinar_id = $2 ORDER BY sent_at ASC NULLS LAST`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list chat: %w", err)
	}
	defer rows.Close()

	var list []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.WebinarID, &m.Sender, &m.Message, &m.SentAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// ListPolls returns the synced poll results of one webinar.
func (r *Repository) ListPolls(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.PollResult, error) {
	const q = `SELECT id, user_id, webinar_id, poll_id, question, answers, created_at
		FROM poll_results WHERE user_id = $1 AND webinar_id = $2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()

	var list []models.PollResult
	for rows.Next() {
		var p models.PollResult
		if err := rows.Scan(&p.ID, &p.UserID, &p.WebinarID, &p.PollID, &p.Question, &p.Answers, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan poll result: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListQuestions returns the synced Q&A entries of one webinar.
func (r *Repository) ListQuestions(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.Question, error) {
	const q = `SELECT id, user_id, webinar_id, asker, content, answer, created_at
		FROM questions WHERE user_id = $1 AND webinar_id = $2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var list []models.Question
	for rows.Next() {
		var qu models.Question
		if err := rows.Scan(&qu.ID, &qu.UserID, &qu.WebinarID, &qu.Asker, &qu.Content, &qu.Answer, &qu.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		list = append(list, qu)
	}
	return list, rows.Err()
}

// ListRegistrants returns the synced registrants of one webinar.
func (r *Repository) ListRegistrants(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.Registrant, error) {
	const q = `SELECT id, user_id, webinar_id, registrant_id, email, first_name, last_name, status, registered_at, created_at
		FROM registrants WHERE user_id = $1 AND webinar_id = $2 ORDER BY registered_at ASC NULLS LAST`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	defer rows.Close()

	var list []models.Registrant
	for rows.Next() {
		var reg models.Registrant
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.WebinarID, &reg.RegistrantID, &reg.Email,
			&reg.FirstName, &reg.LastName, &reg.Status, &reg.RegisteredAt, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registrant: %w", err)
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// ListPanelists returns the synced panelists of one webinar.
func (r *Repository) ListPanelists(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.Panelist, error) {
	const q = `SELECT id, user_id, webinar_id, panelist_id, name, email, created_at
		FROM panelists WHERE user_id = $1 AND webinar_id = $2 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list panelists: %w", err)
	}
	defer rows.Close()

	var list []models.Panelist
	for rows.Next() {
		var p models.Panelist
		if err := rows.Scan(&p.ID, &p.UserID, &p.WebinarID, &p.PanelistID, &p.Name, &p.Email, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan panelist: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListRecordings returns the synced recording files of one webinar.
func (r *Repository) ListRecordings(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.Recording, error) {
	const q = `SELECT id, user_id, webinar_id, provider_recording_id, file_type, download_url, s3_url, s3_key,
			file_size, recording_start, recording_end, status, created_at, updated_at
		FROM recordings WHERE user_id = $1 AND webinar_id = $2 ORDER BY recording_start ASC NULLS LAST`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var list []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.WebinarID, &rec.ProviderRecordingID, &rec.FileType,
			&rec.DownloadURL, &rec.S3URL, &rec.S3Key, &rec.FileSize, &rec.RecordingStart, &rec.RecordingEnd,
			&rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
