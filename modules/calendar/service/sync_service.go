package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"taskboard-api/core/cache"
	"taskboard-api/core/config"
	"taskboard-api/core/constants"
	"taskboard-api/core/errors"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/dto"
	"taskboard-api/modules/calendar/entity"
	"taskboard-api/modules/calendar/repository"

	"github.com/google/uuid"
)

// SyncService pulls the provider's events for a bounded look-ahead window and
// reconciles them into the local mirror. A full-window re-pull is the
// recovery strategy: no incremental cursor state is kept, and remote
// deletions are not propagated (disconnect is the only path that removes
// mirror rows).
type SyncService interface {
	Sync(ctx context.Context, userID uuid.UUID) (*dto.SyncResponse, *errors.AppError)
}

type syncService struct {
	connRepo  repository.ConnectionRepository
	eventRepo repository.EventRepository
	refresher TokenRefresher
	cache     cache.Cache
	cfg       config.GoogleAPIConfig
	client    *http.Client
	window    time.Duration
	maxEvents int
	now       func() time.Time
}

func NewSyncService(
	connRepo repository.ConnectionRepository,
	eventRepo repository.EventRepository,
	refresher TokenRefresher,
	c cache.Cache,
	cfg config.GoogleAPIConfig,
) SyncService {
	return &syncService{
		connRepo:  connRepo,
		eventRepo: eventRepo,
		refresher: refresher,
		cache:     c,
		cfg:       cfg,
		client:    newHTTPClient(),
		window:    constants.SyncWindowDays * 24 * time.Hour,
		maxEvents: constants.SyncMaxEvents,
		now:       time.Now,
	}
}

func (s *syncService) Sync(ctx context.Context, userID uuid.UUID) (*dto.SyncResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	if s.cache != nil {
		acquired, err := s.cache.AcquireSyncLease(ctx, userID)
		if err != nil {
			logger.Error("SyncService:Sync:AcquireLease:Error", "error", err, "user_id", userID)
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to acquire sync lease", err)
		}
		if !acquired {
			logger.Info("SyncService:Sync:AlreadyInFlight", "user_id", userID)
			return &dto.SyncResponse{Skipped: true}, nil
		}
		defer func() {
			if err := s.cache.ReleaseSyncLease(context.WithoutCancel(ctx), userID); err != nil {
				logger.Error("SyncService:Sync:ReleaseLease:Error", "error", err, "user_id", userID)
			}
		}()
	}

	token, appErr := s.refresher.EnsureValidToken(ctx, userID)
	if appErr != nil {
		// Record the cause on the connection for the status surface, then
		// return without touching the event mirror.
		if appErr.Code != errors.ErrNotConnected {
			s.recordError(ctx, userID, appErr.Message)
		}
		return nil, appErr
	}

	events, appErr := s.listEvents(ctx, token)
	if appErr != nil {
		s.recordError(ctx, userID, appErr.Message)
		return nil, appErr
	}

	stored := 0
	for _, remote := range events {
		ev, ok := s.mapEvent(userID, remote)
		if !ok {
			// Malformed upstream data (no usable start or end); skip the
			// event, not the sync.
			logger.Warn("SyncService:Sync:SkippingMalformedEvent",
				"user_id", userID, "external_event_id", remote.ID)
			continue
		}
		if err := s.eventRepo.Upsert(ctx, ev); err != nil {
			// Already-reconciled events from this pass are kept.
			s.recordError(ctx, userID, "failed to store calendar events")
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to store calendar events", err)
		}
		stored++
	}

	if err := s.connRepo.RecordSync(ctx, userID, s.now()); err != nil {
		logger.Error("SyncService:Sync:RecordSync:Error", "error", err, "user_id", userID)
	}

	logger.Info("SyncService:Sync:Complete", "user_id", userID, "fetched", len(events), "stored", stored)
	return &dto.SyncResponse{Stored: stored}, nil
}

func (s *syncService) recordError(ctx context.Context, userID uuid.UUID, message string) {
	if err := s.connRepo.RecordError(context.WithoutCancel(ctx), userID, message); err != nil {
		logger.Error("SyncService:RecordError:Error", "error", err, "user_id", userID)
	}
}

// listEvents accumulates the full window before any reconciliation, following
// nextPageToken until the provider is done or the cap is reached.
func (s *syncService) listEvents(ctx context.Context, accessToken string) ([]dto.GoogleEvent, *errors.AppError) {
	timeMin := s.now()
	timeMax := timeMin.Add(s.window)

	var all []dto.GoogleEvent
	pageToken := ""
	for {
		page, appErr := s.fetchEventsPage(ctx, accessToken, timeMin, timeMax, pageToken)
		if appErr != nil {
			return nil, appErr
		}

		all = append(all, page.Items...)
		if len(all) >= s.maxEvents {
			all = all[:s.maxEvents]
			break
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return all, nil
}

func (s *syncService) fetchEventsPage(ctx context.Context, accessToken string, timeMin, timeMax time.Time, pageToken string) (*dto.GoogleEventsPage, *errors.AppError) {
	params := url.Values{}
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("timeMin", timeMin.Format(time.RFC3339))
	params.Set("timeMax", timeMax.Format(time.RFC3339))
	params.Set("maxResults", fmt.Sprintf("%d", s.maxEvents))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	apiURL := s.cfg.CalendarBaseURL + "/calendars/primary/events?" + params.Encode()

	resp, err := doWithRetry(ctx, s.client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		return req, nil
	})
	if err != nil {
		logger.Error("SyncService:FetchEventsPage:TransportError", "error", err)
		return nil, errors.NewAppError(errors.ErrSyncFailed, "failed to reach Google Calendar", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("SyncService:FetchEventsPage:ReadBody:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrSyncFailed, "failed to read events response", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("SyncService:FetchEventsPage:APIError", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrSyncFailed,
			fmt.Sprintf("Google Calendar API error: %d", resp.StatusCode), nil)
	}

	var page dto.GoogleEventsPage
	if err := json.Unmarshal(body, &page); err != nil {
		logger.Error("SyncService:FetchEventsPage:Unmarshal:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrSyncFailed, "failed to parse events response", err)
	}
	return &page, nil
}

// mapEvent converts a provider event to the mirror representation. Timed
// events (dateTime) win over all-day events (date); an event with neither is
// reported as unusable.
func (s *syncService) mapEvent(userID uuid.UUID, remote dto.GoogleEvent) (*entity.MirroredEvent, bool) {
	start, startAllDay, ok := parseEventTime(remote.Start)
	if !ok {
		return nil, false
	}
	end, _, ok := parseEventTime(remote.End)
	if !ok {
		return nil, false
	}

	ev := &entity.MirroredEvent{
		UserID:          userID,
		ExternalEventID: remote.ID,
		Summary:         remote.Summary,
		StartTime:       start,
		EndTime:         end,
		AllDay:          startAllDay,
		Attendees:       make([]string, 0, len(remote.Attendees)),
	}
	if remote.Description != "" {
		ev.Description = &remote.Description
	}
	if remote.Location != "" {
		ev.Location = &remote.Location
	}
	for _, a := range remote.Attendees {
		if a.Email != "" {
			ev.Attendees = append(ev.Attendees, a.Email)
		}
	}
	return ev, true
}

func parseEventTime(et dto.GoogleEventTime) (time.Time, bool, bool) {
	if et.DateTime != "" {
		t, err := time.Parse(time.RFC3339, et.DateTime)
		if err == nil {
			return t, false, true
		}
	}
	if et.Date != "" {
		t, err := time.Parse("2006-01-02", et.Date)
		if err == nil {
			return t, true, true
		}
	}
	return time.Time{}, false, false
}
