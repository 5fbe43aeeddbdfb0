package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

// DefaultTopic labels webinars whose payload carries no usable title field.
// It is a primary UI label and must never be empty.
const DefaultTopic = "Untitled Webinar"

// SourceWebinar is one webinar as collected, tagged with which endpoint
// produced it. Exactly one of Standard or Report is set.
type SourceWebinar struct {
	Source       string
	IsHistorical bool
	Standard     *provider.StandardWebinar
	Report       *provider.ReportWebinar
}

// ID returns the provider webinar id of either variant.
func (s SourceWebinar) ID() string {
	if s.Report != nil {
		return s.Report.ID.String()
	}
	if s.Standard != nil {
		return s.Standard.ID.String()
	}
	return ""
}

// Normalize maps a collected payload onto the canonical webinar record.
// Report-endpoint items are completed by construction: status is forced to
// "ended" and actual timing is seeded straight from the response.
func Normalize(src SourceWebinar, userID uuid.UUID) models.Webinar {
	w := models.Webinar{
		UserID:       userID,
		DataSource:   src.Source,
		IsHistorical: src.IsHistorical,
		// Provider defaults: video flags on unless the payload says otherwise.
		HostVideo:      true,
		PanelistsVideo: true,
	}

	switch {
	case src.Report != nil:
		r := src.Report
		w.WebinarID = r.ID.String()
		w.UUID = r.UUID
		w.Topic = firstNonEmpty(r.Topic, DefaultTopic)
		w.Type = r.Type
		w.Status = models.StatusEnded
		w.HostName = r.UserName
		w.HostEmail = r.UserEmail
		w.RawData = r.Raw
		if t := parseTime(r.StartTime); t != nil {
			w.StartTime = t
			w.ActualStartTime = t
		}
		if r.Duration > 0 {
			w.Duration = r.Duration
			d := r.Duration
			w.ActualDuration = &d
		}
		if t := parseTime(r.EndTime); t != nil {
			w.ActualEndTime = t
		}
		if r.ParticipantsCount > 0 {
			pc := r.ParticipantsCount
			w.ParticipantsCount = &pc
		}

	case src.Standard != nil:
		s := src.Standard
		w.WebinarID = s.ID.String()
		w.UUID = s.UUID
		w.Topic = firstNonEmpty(s.Topic, s.Title, s.Subject, s.WebinarName, DefaultTopic)
		w.Agenda = s.Agenda
		w.Type = s.Type
		w.Status = firstNonEmpty(s.Status, models.StatusWaiting)
		w.StartTime = parseTime(s.StartTime)
		w.Duration = s.Duration
		w.Timezone = s.Timezone
		w.HostID = s.HostID
		w.HostEmail = s.HostEmail
		w.JoinURL = s.JoinURL
		w.ProviderCreatedAt = parseTime(s.CreatedAt)
		w.RawData = s.Raw
		applySettings(&w, s.Settings)
	}

	if w.Type == 0 {
		w.Type = models.WebinarTypeSingle
	}
	return w
}

// applySettings copies provider settings flags using strict presence checks:
// an absent pointer keeps the field's documented default rather than
// coercing to false.
func applySettings(w *models.Webinar, s *provider.WebinarSettings) {
	if s == nil {
		return
	}
	if s.HostVideo != nil {
		w.HostVideo = *s.HostVideo
	}
	if s.PanelistsVideo != nil {
		w.PanelistsVideo = *s.PanelistsVideo
	}
	if s.IsSimulive != nil {
		w.IsSimulive = *s.IsSimulive
	}
	if s.EnforceLogin != nil {
		w.EnforceLogin = *s.EnforceLogin
	}
	if s.ApprovalType != nil {
		w.ApprovalType = *s.ApprovalType
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseTime parses a provider RFC3339 timestamp, returning nil for absent or
// malformed values. Malformed timestamps are a data-shape error the fallback
// chains absorb; they never abort a sync.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
