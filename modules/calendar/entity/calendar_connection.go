package entity

import (
	"time"

	"taskboard-api/core/entity"

	"github.com/google/uuid"
)

// CalendarConnection stores a user's grant of Google Calendar access: the
// credential material plus lifecycle metadata. At most one row per user.
type CalendarConnection struct {
	entity.BaseEntity
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	CalendarEmail    string     `db:"calendar_email" json:"calendar_email"`
	HasCalendarScope bool       `db:"has_calendar_scope" json:"has_calendar_scope"`
	AccessToken      string     `db:"access_token" json:"-"`
	RefreshToken     *string    `db:"refresh_token" json:"-"`
	TokenExpiresAt   time.Time  `db:"token_expires_at" json:"token_expires_at"`
	ConnectedAt      time.Time  `db:"connected_at" json:"connected_at"`
	LastSyncAt       *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	SyncError        *string    `db:"sync_error" json:"sync_error,omitempty"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}
