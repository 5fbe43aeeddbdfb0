package provider

import "encoding/json"

// WebinarSettings carries the subset of provider settings the dashboard
// surfaces. Pointer fields distinguish "absent" from "false": host_video and
// panelists_video default to true when absent, the rest to false. That
// asymmetry mirrors the provider's own defaults.
type WebinarSettings struct {
	HostVideo      *bool `json:"host_video,omitempty"`
	PanelistsVideo *bool `json:"panelists_video,omitempty"`
	IsSimulive     *bool `json:"is_simulive,omitempty"`
	EnforceLogin   *bool `json:"enforce_login,omitempty"`
	ApprovalType   *int  `json:"approval_type,omitempty"`
}

// StandardWebinar is a webinar as returned by the standard (upcoming)
// endpoints: GET /users/{id}/webinars and GET /webinars/{id}.
type StandardWebinar struct {
	UUID      string      `json:"uuid"`
	ID        json.Number `json:"id"`
	HostID    string      `json:"host_id"`
	HostEmail string      `json:"host_email,omitempty"`
	Topic     string      `json:"topic"`
	// Alternate title fields observed on some accounts; the normalizer
	// resolves these in order.
	Title       string           `json:"title,omitempty"`
	Subject     string           `json:"subject,omitempty"`
	WebinarName string           `json:"webinar_name,omitempty"`
	Type        int              `json:"type"`
	Status      string           `json:"status,omitempty"`
	StartTime   string           `json:"start_time,omitempty"`
	Duration    int              `json:"duration"`
	Timezone    string           `json:"timezone,omitempty"`
	Agenda      string           `json:"agenda,omitempty"`
	CreatedAt   string           `json:"created_at,omitempty"`
	JoinURL     string           `json:"join_url,omitempty"`
	Settings    *WebinarSettings `json:"settings,omitempty"`

	// Raw is the verbatim payload this struct was decoded from.
	Raw json.RawMessage `json:"-"`
}

// ReportWebinar is a concluded webinar as returned by the reporting endpoint
// GET /report/users/{id}/webinars. Timing fields here are actuals.
type ReportWebinar struct {
	UUID              string      `json:"uuid"`
	ID                json.Number `json:"id"`
	Type              int         `json:"type"`
	Topic             string      `json:"topic"`
	UserName          string      `json:"user_name,omitempty"`
	UserEmail         string      `json:"user_email,omitempty"`
	StartTime         string      `json:"start_time,omitempty"`
	EndTime           string      `json:"end_time,omitempty"`
	Duration          int         `json:"duration"`
	TotalSize         int64       `json:"total_size,omitempty"`
	RecordingCount    int         `json:"recording_count,omitempty"`
	ParticipantsCount int         `json:"participants_count,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// PastWebinar is the actual-execution record from GET /past_webinars/{id}.
type PastWebinar struct {
	UUID              string      `json:"uuid"`
	ID                json.Number `json:"id"`
	HostID            string      `json:"host_id,omitempty"`
	Topic             string      `json:"topic,omitempty"`
	Type              int         `json:"type,omitempty"`
	StartTime         string      `json:"start_time,omitempty"`
	EndTime           string      `json:"end_time,omitempty"`
	Duration          int         `json:"duration"`
	TotalMinutes      int         `json:"total_minutes,omitempty"`
	ParticipantsCount int         `json:"participants_count,omitempty"`
}

// Occurrence is one past or scheduled occurrence of a webinar, from
// GET /webinars/{id}/instances.
type Occurrence struct {
	UUID      string `json:"uuid"`
	StartTime string `json:"start_time,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Status    string `json:"status,omitempty"`
}

// User is a provider account, from GET /users/{id} or GET /users/me.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Type      int    `json:"type,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

// Registrant is one registration, from GET /webinars/{id}/registrants.
type Registrant struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Status       string `json:"status,omitempty"`
	CreateTime   string `json:"create_time,omitempty"`
	JoinURL      string `json:"join_url,omitempty"`
	Organization string `json:"org,omitempty"`
}

// Participant is one attendee, from GET /past_webinars/{id}/participants.
type Participant struct {
	ID                string `json:"id,omitempty"`
	ParticipantUUID   string `json:"participant_uuid,omitempty"`
	Name              string `json:"name"`
	UserEmail         string `json:"user_email,omitempty"`
	JoinTime          string `json:"join_time,omitempty"`
	LeaveTime         string `json:"leave_time,omitempty"`
	Duration          int    `json:"duration,omitempty"` // seconds
	AttentivenessPct  string `json:"attentiveness_score,omitempty"`
	RegistrantID      string `json:"registrant_id,omitempty"`
	FailoverReconnect bool   `json:"failover,omitempty"`
}

// ChatMessage is one line from GET /past_webinars/{id}/chat.
type ChatMessage struct {
	Sender   string `json:"sender"`
	Message  string `json:"message"`
	DateTime string `json:"date_time,omitempty"`
}

// PollQuestion is one poll question with its answers, from
// GET /past_webinars/{id}/polls.
type PollQuestion struct {
	PollID   string          `json:"poll_id,omitempty"`
	Question string          `json:"question"`
	Answers  json.RawMessage `json:"question_details,omitempty"`
}

// QAEntry is one question-and-answer pair from GET /past_webinars/{id}/qa.
type QAEntry struct {
	Name     string `json:"name"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// RecordingFile is one file from GET /past_webinars/{id}/recordings.
type RecordingFile struct {
	ID             string `json:"id"`
	FileType       string `json:"file_type,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	RecordingStart string `json:"recording_start,omitempty"`
	RecordingEnd   string `json:"recording_end,omitempty"`
	Status         string `json:"status,omitempty"`
}

// Panelist is one panelist from GET /webinars/{id}/panelists.
type Panelist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
