package webinars

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlabs/webinsight/internal/models"
)

// Repository handles webinar cache persistence. Sync runs never delete rows;
// rows absent from a fetch simply stay as cached history.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const webinarColumns = `user_id, webinar_id, uuid, topic, agenda, start_time, duration, timezone, type, status, join_url,
	host_id, host_email, host_name, host_first_name, host_last_name,
	host_video, panelists_video, is_simulive, enforce_login, approval_type,
	actual_start_time, actual_duration, actual_end_time, participants_count,
	raw_data, data_source, is_historical, enhanced_with_past_data, enhancement_error, completion_analysis,
	provider_created_at, synced_at, updated_at`

// ListWebinars returns the cached webinars for a user, newest scheduled
// first.
func (r *Repository) ListWebinars(ctx context.Context, userID uuid.UUID) ([]models.Webinar, error) {
	q := `SELECT ` + webinarColumns + ` FROM webinars WHERE user_id = $1 ORDER BY start_time DESC NULLS LAST`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list webinars: %w", err)
	}
	defer rows.Close()

	var list []models.Webinar
	for rows.Next() {
		var w models.Webinar
		var analysis []byte
		err := rows.Scan(&w.UserID, &w.WebinarID, &w.UUID, &w.Topic, &w.Agenda, &w.StartTime, &w.Duration,
			&w.Timezone, &w.Type, &w.Status, &w.JoinURL,
			&w.HostID, &w.HostEmail, &w.HostName, &w.HostFirstName, &w.HostLastName,
			&w.HostVideo, &w.PanelistsVideo, &w.IsSimulive, &w.EnforceLogin, &w.ApprovalType,
			&w.ActualStartTime, &w.ActualDuration, &w.ActualEndTime, &w.ParticipantsCount,
			&w.RawData, &w.DataSource, &w.IsHistorical, &w.EnhancedWithPastData, &w.EnhancementError, &analysis,
			&w.ProviderCreatedAt, &w.SyncedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan webinar: %w", err)
		}
		if len(analysis) > 0 {
			var cr models.CompletionResult
			if json.Unmarshal(analysis, &cr) == nil {
				w.CompletionAnalysis = &cr
			}
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// UpsertWebinar inserts or updates a webinar on conflict (user_id,
// webinar_id). Actual-execution fields never regress to NULL: a later sync
// that could not enhance keeps the previously stored actuals.
func (r *Repository) UpsertWebinar(ctx context.Context, w *models.Webinar) error {
	var analysis []byte
	if w.CompletionAnalysis != nil {
		analysis, _ = json.Marshal(w.CompletionAnalysis)
	}
	const q = `INSERT INTO webinars (` + webinarColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, NOW())
		ON CONFLICT (user_id, webinar_id) DO UPDATE SET
			uuid = EXCLUDED.uuid,
			topic = EXCLUDED.topic,
			agenda = EXCLUDED.agenda,
			start_time = EXCLUDED.start_time,
			duration = EXCLUDED.duration,
			timezone = EXCLUDED.timezone,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			join_url = EXCLUDED.join_url,
			host_id = EXCLUDED.host_id,
			host_email = EXCLUDED.host_email,
			host_name = EXCLUDED.host_name,
			host_first_name = EXCLUDED.host_first_name,
			host_last_name = EXCLUDED.host_last_name,
			host_video = EXCLUDED.host_video,
			panelists_video = EXCLUDED.panelists_video,
			is_simulive = EXCLUDED.is_simulive,
			enforce_login = EXCLUDED.enforce_login,
			approval_type = EXCLUDED.approval_type,
			actual_start_time = COALESCE(EXCLUDED.actual_start_time, webinars.actual_start_time),
			actual_duration = COALESCE(EXCLUDED.actual_duration, webinars.actual_duration),
			actual_end_time = COALESCE(EXCLUDED.actual_end_time, webinars.actual_end_time),
			participants_count = COALESCE(EXCLUDED.participants_count, webinars.participants_count),
			raw_data = EXCLUDED.raw_data,
			data_source = EXCLUDED.data_source,
			is_historical = EXCLUDED.is_historical,
			enhanced_with_past_data = EXCLUDED.enhanced_with_past_data,
			enhancement_error = EXCLUDED.enhancement_error,
			completion_analysis = EXCLUDED.completion_analysis,
			provider_created_at = COALESCE(EXCLUDED.provider_created_at, webinars.provider_created_at),
			synced_at = EXCLUDED.synced_at,
			updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q,
		w.UserID, w.WebinarID, w.UUID, w.Topic, w.Agenda, w.StartTime, w.Duration, w.Timezone, w.Type, w.Status, w.JoinURL,
		w.HostID, w.HostEmail, w.HostName, w.HostFirstName, w.HostLastName,
		w.HostVideo, w.PanelistsVideo, w.IsSimulive, w.EnforceLogin, w.ApprovalType,
		w.ActualStartTime, w.ActualDuration, w.ActualEndTime, w.ParticipantsCount,
		w.RawData, w.DataSource, w.IsHistorical, w.EnhancedWithPastData, w.EnhancementError, analysis,
		w.ProviderCreatedAt, w.SyncedAt)
	if err != nil {
		return fmt.Errorf("upsert webinar %s: %w", w.WebinarID, err)
	}
	return nil
}

// ListInstances returns the cached occurrences of one webinar, oldest first.
func (r *Repository) ListInstances(ctx context.Context, userID uuid.UUID, webinarID string) ([]models.WebinarInstance, error) {
	const q = `SELECT user_id, webinar_id, instance_id, topic, start_time, duration, status,
			actual_start_time, actual_duration, actual_end_time, participants_count,
			synthesized, enhanced_with_past_data, synced_at, updated_at
		FROM webinar_instances WHERE user_id = $1 AND webinar_id = $2 ORDER BY start_time ASC NULLS LAST`
	rows, err := r.pool.Query(ctx, q, userID, webinarID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var list []models.WebinarInstance
	for rows.Next() {
		var inst models.WebinarInstance
		err := rows.Scan(&inst.UserID, &inst.WebinarID, &inst.InstanceID, &inst.Topic, &inst.StartTime,
			&inst.Duration, &inst.Status,
			&inst.ActualStartTime, &inst.ActualDuration, &inst.ActualEndTime, &inst.ParticipantsCount,
			&inst.Synthesized, &inst.EnhancedWithPastData, &inst.SyncedAt, &inst.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		list = append(list, inst)
	}
	return list, rows.Err()
}

// UpsertInstance inserts or updates an occurrence on conflict (user_id,
// webinar_id, instance_id).
func (r *Repository) UpsertInstance(ctx context.Context, inst *models.WebinarInstance) error {
	const q = `INSERT INTO webinar_instances (user_id, webinar_id, instance_id, topic, start_time, duration, status,
			actual_start_time, actual_duration, actual_end_time, participants_count,
			synthesized, enhanced_with_past_data, synced_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (user_id, webinar_id, instance_id) DO UPDATE SET
			topic = EXCLUDED.topic,
			start_time = EXCLUDED.start_time,
			duration = EXCLUDED.duration,
			status = EXCLUDED.status,
			actual_start_time = COALESCE(EXCLUDED.actual_start_time, webinar_instances.actual_start_time),
			actual_duration = COALESCE(EXCLUDED.actual_duration, webinar_instances.actual_duration),
			actual_end_time = COALESCE(EXCLUDED.actual_end_time, webinar_instances.actual_end_time),
			participants_count = COALESCE(EXCLUDED.participants_count, webinar_instances.participants_count),
			synthesized = EXCLUDED.synthesized,
			enhanced_with_past_data = EXCLUDED.enhanced_with_past_data,
			synced_at = EXCLUDED.synced_at,
			updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q,
		inst.UserID, inst.WebinarID, inst.InstanceID, inst.Topic, inst.StartTime, inst.Duration, inst.Status,
		inst.ActualStartTime, inst.ActualDuration, inst.ActualEndTime, inst.ParticipantsCount,
		inst.Synthesized, inst.EnhancedWithPastData, inst.SyncedAt)
	if err != nil {
		return fmt.Errorf("upsert instance %s/%s: %w", inst.WebinarID, inst.InstanceID, err)
	}
	return nil
}
