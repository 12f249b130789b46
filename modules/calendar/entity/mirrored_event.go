package entity

import (
	"time"

	"taskboard-api/core/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MirroredEvent is the local copy of a remote calendar event, kept
// convergent with the provider by the sync engine. (user_id,
// external_event_id) is unique and is the idempotency boundary for sync.
type MirroredEvent struct {
	entity.BaseEntity
	UserID          uuid.UUID      `db:"user_id" json:"user_id"`
	ExternalEventID string         `db:"external_event_id" json:"external_event_id"`
	Summary         string         `db:"summary" json:"summary"`
	Description     *string        `db:"description" json:"description,omitempty"`
	StartTime       time.Time      `db:"start_time" json:"start_time"`
	EndTime         time.Time      `db:"end_time" json:"end_time"`
	AllDay          bool           `db:"all_day" json:"all_day"`
	Location        *string        `db:"location" json:"location,omitempty"`
	Attendees       pq.StringArray `db:"attendees" json:"attendees"`
}

func (MirroredEvent) TableName() string {
	return "calendar_events"
}
