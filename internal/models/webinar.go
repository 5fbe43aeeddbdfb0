package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Provider webinar types. Values match the provider's numeric `type` field.
const (
	WebinarTypeSingle           = 5
	WebinarTypeRecurringNoFixed = 6
	WebinarTypeRecurringFixed   = 9
)

// Provider-reported webinar status values. Unreliable for historical data;
// see sync.Detector for the inference that actually decides completion.
const (
	StatusWaiting = "waiting"
	StatusStarted = "started"
	StatusEnded   = "ended"
	StatusAborted = "aborted"
)

// Data sources a cached webinar row can originate from.
const (
	SourceReportEndpoint   = "report_endpoint"
	SourceStandardEndpoint = "standard_endpoint"
	SourceMonthlyScan      = "monthly_scan"
)

// CompletionResult is the Detector's judgement on whether a webinar has
// actually concluded, independent of the provider's status field.
type CompletionResult struct {
	IsCompleted           bool   `json:"is_completed"`
	Reason                string `json:"reason"`
	ConfidenceLevel       string `json:"confidence_level"` // "high", "medium", "low"
	ShouldFetchActualData bool   `json:"should_fetch_actual_data"`
}

// Webinar is the canonical cached webinar record. One row per
// (user_id, webinar_id); rows are never deleted by sync runs.
type Webinar struct {
	UserID    uuid.UUID `json:"user_id"`
	WebinarID string    `json:"webinar_id"`
	UUID      string    `json:"uuid"`

	Topic     string     `json:"topic"`
	Agenda    string     `json:"agenda,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"` // scheduled
	Duration  int        `json:"duration"`             // scheduled, minutes
	Timezone  string     `json:"timezone,omitempty"`
	Type      int        `json:"type"`
	Status    string     `json:"status"`
	JoinURL   string     `json:"join_url,omitempty"`

	HostID        string `json:"host_id,omitempty"`
	HostEmail     string `json:"host_email,omitempty"`
	HostName      string `json:"host_name,omitempty"`
	HostFirstName string `json:"host_first_name,omitempty"`
	HostLastName  string `json:"host_last_name,omitempty"`

	// Provider settings flags. host_video and panelists_video default to
	// true when absent from the payload; the rest default to false.
	HostVideo      bool `json:"host_video"`
	PanelistsVideo bool `json:"panelists_video"`
	IsSimulive     bool `json:"is_simulive"`
	EnforceLogin   bool `json:"enforce_login"`
	ApprovalType   int  `json:"approval_type"`

	// Actual-execution data, populated only after enhancement.
	ActualStartTime   *time.Time `json:"actual_start_time,omitempty"`
	ActualDuration    *int       `json:"actual_duration,omitempty"` // minutes
	ActualEndTime     *time.Time `json:"actual_end_time,omitempty"`
	ParticipantsCount *int       `json:"participants_count,omitempty"`

	// Provenance and debugging.
	RawData              json.RawMessage   `json:"raw_data,omitempty"`
	DataSource           string            `json:"data_source"`
	IsHistorical         bool              `json:"is_historical"`
	EnhancedWithPastData bool              `json:"enhanced_with_past_data"`
	EnhancementError     string            `json:"enhancement_error,omitempty"`
	CompletionAnalysis   *CompletionResult `json:"completion_analysis,omitempty"`

	ProviderCreatedAt *time.Time `json:"provider_created_at,omitempty"`
	SyncedAt          time.Time  `json:"synced_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsRecurring reports whether the webinar repeats (either recurring type).
func (w *Webinar) IsRecurring() bool {
	return w.Type == WebinarTypeRecurringNoFixed || w.Type == WebinarTypeRecurringFixed
}

// WebinarInstance is one occurrence of a webinar. Recurring webinars get one
// row per provider occurrence; single webinars get one synthesized row so the
// instance table stays uniformly queryable.
type WebinarInstance struct {
	UserID     uuid.UUID `json:"user_id"`
	WebinarID  string    `json:"webinar_id"`
	InstanceID string    `json:"instance_id"` // provider occurrence UUID or synthesized

	Topic     string     `json:"topic"`
	StartTime *time.Time `json:"start_time,omitempty"`
	Duration  int        `json:"duration"`
	Status    string     `json:"status"`

	ActualStartTime   *time.Time `json:"actual_start_time,omitempty"`
	ActualDuration    *int       `json:"actual_duration,omitempty"`
	ActualEndTime     *time.Time `json:"actual_end_time,omitempty"`
	ParticipantsCount *int       `json:"participants_count,omitempty"`

	Synthesized          bool      `json:"synthesized"`
	EnhancedWithPastData bool      `json:"enhanced_with_past_data"`
	SyncedAt             time.Time `json:"synced_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
