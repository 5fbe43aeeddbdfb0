package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one attendee of a past webinar, synced from the provider's
// participants report. Rows for a webinar are replaced wholesale on resync.
type Participant struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	WebinarID        string     `json:"webinar_id"`
	ParticipantID    string     `json:"participant_id,omitempty"` // provider participant UUID
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	JoinTime         *time.Time `json:"join_time,omitempty"`
	LeaveTime        *time.Time `json:"leave_time,omitempty"`
	DurationSeconds  int        `json:"duration_seconds"`
	AttentivenessPct *int       `json:"attentiveness_pct,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Registrant is one registration for a webinar.
type Registrant struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	WebinarID    string     `json:"webinar_id"`
	RegistrantID string     `json:"registrant_id"` // provider-assigned
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Status       string     `json:"status,omitempty"` // approved/denied/pending
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ChatMessage is one in-webinar chat line from the provider's past-chat report.
type ChatMessage struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	WebinarID string     `json:"webinar_id"`
	Sender    string     `json:"sender"`
	Message   string     `json:"message"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PollResult is one question of a past-webinar poll with aggregated answers.
type PollResult struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	WebinarID string    `json:"webinar_id"`
	PollID    string    `json:"poll_id,omitempty"`
	Question  string    `json:"question"`
	// Answers is a JSON array of {name, answer, date_time} as returned by the
	// provider, kept verbatim for the dashboard's drill-down view.
	Answers   []byte    `json:"answers,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is one audience Q&A entry from the provider's past-qa report.
type Question struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	WebinarID string    `json:"webinar_id"`
	Asker     string    `json:"asker"`
	Content   string    `json:"content"`
	Answer    string    `json:"answer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Panelist is one panelist assigned to a webinar.
type Panelist struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	WebinarID  string    `json:"webinar_id"`
	PanelistID string    `json:"panelist_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recording lifecycle while being mirrored from the provider to S3.
const (
	RecordingStatusPending   = "pending"
	RecordingStatusMirroring = "mirroring"
	RecordingStatusCompleted = "completed"
	RecordingStatusFailed    = "failed"
)

// Recording is a provider recording file, optionally mirrored to S3 by the
// worker.
type Recording struct {
	ID                  uuid.UUID  `json:"id"`
	UserID              uuid.UUID  `json:"user_id"`
	WebinarID           string     `json:"webinar_id"`
	ProviderRecordingID string     `json:"provider_recording_id"`
	FileType            string     `json:"file_type,omitempty"` // MP4, M4A, CHAT, TRANSCRIPT
	DownloadURL         string     `json:"download_url,omitempty"`
	S3URL               string     `json:"s3_url,omitempty"`
	S3Key               string     `json:"s3_key,omitempty"`
	FileSize            int64      `json:"file_size"`
	RecordingStart      *time.Time `json:"recording_start,omitempty"`
	RecordingEnd        *time.Time `json:"recording_end,omitempty"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
