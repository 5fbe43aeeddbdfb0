package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync run types recorded in history.
const (
	SyncTypeWebinars      = "webinars"
	SyncTypeSingleWebinar = "single_webinar"
	SyncTypeInstances     = "instances"
	SyncTypeChunked       = "chunked"
)

// Sync run outcomes.
const (
	SyncStatusSuccess  = "success"
	SyncStatusPartial  = "partial" // hit time budget or circuit breaker, data still returned
	SyncStatusFailed   = "failed"
)

// SyncHistory is one append-only audit row per sync run. Never updated or
// deleted.
type SyncHistory struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	SyncType    string    `json:"sync_type"`
	Status      string    `json:"status"`
	ItemsSynced int       `json:"items_synced"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// SyncResults holds per-run reconcile counters.
type SyncResults struct {
	NewWebinars       int    `json:"new_webinars"`
	UpdatedWebinars   int    `json:"updated_webinars"`
	PreservedWebinars int    `json:"preserved_webinars"`
	TotalWebinars     int    `json:"total_webinars"`
	DataRange         string `json:"data_range,omitempty"`
}
