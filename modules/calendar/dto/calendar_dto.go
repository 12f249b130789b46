package dto

import "time"

// ========== OAuth flow DTOs ==========

// ConnectURLResponse carries the authorization URL the client should
// redirect the user to.
type ConnectURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// CallbackParams are the query parameters Google appends to the redirect.
type CallbackParams struct {
	Code      string
	State     string
	ErrorCode string
	Scope     string
}

// ========== Status / sync DTOs ==========

// StatusResponse is the side-effect-free connection status projection.
type StatusResponse struct {
	Connected        bool       `json:"connected"`
	HasCalendarScope bool       `json:"has_calendar_scope"`
	Email            *string    `json:"email,omitempty"`
	LastSync         *time.Time `json:"last_sync,omitempty"`
	Error            *string    `json:"error,omitempty"`
}

// SyncResponse reports the outcome of one sync run.
type SyncResponse struct {
	Stored  int  `json:"stored"`
	Skipped bool `json:"skipped,omitempty"` // another sync already held the lease
}

type DisconnectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MirroredEventResponse is the presentation shape of one mirror row.
type MirroredEventResponse struct {
	ExternalEventID string     `json:"external_event_id"`
	Summary         string     `json:"summary"`
	Description     *string    `json:"description,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	AllDay          bool       `json:"all_day"`
	Location        *string    `json:"location,omitempty"`
	Attendees       []string   `json:"attendees"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type MirroredEventListResponse struct {
	Events []MirroredEventResponse `json:"events"`
}

// ========== Google provider payloads (validated at the boundary) ==========

// GoogleTokenResponse is the token endpoint's JSON body for both the initial
// exchange and refreshes.
type GoogleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// GoogleProfile is the userinfo endpoint's JSON body.
type GoogleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// GoogleEventTime is either a timed (dateTime) or all-day (date) boundary.
type GoogleEventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type GoogleEventAttendee struct {
	Email string `json:"email"`
}

type GoogleEvent struct {
	ID          string                `json:"id"`
	Summary     string                `json:"summary"`
	Description string                `json:"description,omitempty"`
	Start       GoogleEventTime       `json:"start"`
	End         GoogleEventTime       `json:"end"`
	Location    string                `json:"location,omitempty"`
	Attendees   []GoogleEventAttendee `json:"attendees,omitempty"`
}

// GoogleEventsPage is one page of the list-events collection.
type GoogleEventsPage struct {
	Items         []GoogleEvent `json:"items"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}
