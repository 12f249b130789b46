package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taskboard-api/core/config"
	"taskboard-api/core/errors"
	"taskboard-api/modules/calendar/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCalendarAPI serves paged event lists keyed by pageToken.
type fakeCalendarAPI struct {
	srv    *httptest.Server
	pages  map[string]dto.GoogleEventsPage
	status int
	hits   atomic.Int64
}

func newFakeCalendarAPI(t *testing.T, pages map[string]dto.GoogleEventsPage) *fakeCalendarAPI {
	t.Helper()
	f := &fakeCalendarAPI{pages: pages, status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		assert.Equal(t, "Bearer valid-token", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		assert.NotEmpty(t, r.URL.Query().Get("timeMin"))
		assert.NotEmpty(t, r.URL.Query().Get("timeMax"))

		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			return
		}
		page := f.pages[r.URL.Query().Get("pageToken")]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func timedEvent(id string, start time.Time, d time.Duration) dto.GoogleEvent {
	return dto.GoogleEvent{
		ID:      id,
		Summary: "event " + id,
		Start:   dto.GoogleEventTime{DateTime: start.Format(time.RFC3339)},
		End:     dto.GoogleEventTime{DateTime: start.Add(d).Format(time.RFC3339)},
	}
}

func newTestSyncService(
	repo *fakeConnRepo,
	events *fakeEventRepo,
	refresher TokenRefresher,
	c *fakeCache,
	baseURL string,
) *syncService {
	s := NewSyncService(repo, events, refresher, nil, config.GoogleAPIConfig{
		CalendarBaseURL: baseURL,
	}).(*syncService)
	if c != nil {
		s.cache = c
	}
	return s
}

func connectedUser(repo *fakeConnRepo) uuid.UUID {
	userID := uuid.New()
	repo.put(connectionWithToken(userID, "valid-token", time.Now().Add(time.Hour), strptr("refresh")))
	return userID
}

func TestSyncStoresEventsAcrossPages(t *testing.T) {
	now := time.Now()
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {
			Items: []dto.GoogleEvent{
				timedEvent("ev-1", now.Add(time.Hour), time.Hour),
				timedEvent("ev-2", now.Add(2*time.Hour), time.Hour),
			},
			NextPageToken: "page-2",
		},
		"page-2": {
			Items: []dto.GoogleEvent{
				timedEvent("ev-3", now.Add(3*time.Hour), time.Hour),
			},
		},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	resp, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, 3, resp.Stored)
	assert.False(t, resp.Skipped)
	assert.Equal(t, int64(2), api.hits.Load(), "pagination should follow nextPageToken")

	count, err := events.CountByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	conn := repo.get(userID)
	require.NotNil(t, conn)
	require.NotNil(t, conn.LastSyncAt)
	assert.Nil(t, conn.SyncError)
}

func TestSyncMapsEventFields(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	remote := timedEvent("ev-full", now.Add(time.Hour), 30*time.Minute)
	remote.Description = "quarterly review"
	remote.Location = "room 4"
	remote.Attendees = []dto.GoogleEventAttendee{{Email: "bob@example.com"}, {Email: ""}}

	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: []dto.GoogleEvent{remote}},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	_, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)

	stored, err := events.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	ev := stored[0]
	assert.Equal(t, "ev-full", ev.ExternalEventID)
	assert.Equal(t, "event ev-full", ev.Summary)
	require.NotNil(t, ev.Description)
	assert.Equal(t, "quarterly review", *ev.Description)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "room 4", *ev.Location)
	assert.Equal(t, []string{"bob@example.com"}, []string(ev.Attendees))
	assert.False(t, ev.AllDay)
	assert.True(t, ev.StartTime.Equal(now.Add(time.Hour)))
}

func TestSyncAllDayAndMalformedEvents(t *testing.T) {
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: []dto.GoogleEvent{
			{
				ID:      "all-day",
				Summary: "company offsite",
				Start:   dto.GoogleEventTime{Date: "2026-09-01"},
				End:     dto.GoogleEventTime{Date: "2026-09-02"},
			},
			{
				ID:      "no-times",
				Summary: "broken event",
			},
		}},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	resp, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, 1, resp.Stored, "an event without usable times is skipped, not fatal")

	stored, err := events.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "all-day", stored[0].ExternalEventID)
	assert.True(t, stored[0].AllDay)
	assert.Equal(t, "2026-09-01", stored[0].StartTime.Format("2006-01-02"))
}

func TestSyncRespectsEventCap(t *testing.T) {
	now := time.Now()
	var items []dto.GoogleEvent
	for i := 0; i < 5; i++ {
		items = append(items, timedEvent(string(rune('a'+i)), now.Add(time.Duration(i)*time.Hour), time.Hour))
	}
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: items, NextPageToken: "more"},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)
	s.maxEvents = 3

	resp, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, 3, resp.Stored)
	assert.Equal(t, int64(1), api.hits.Load(), "no further pages are fetched once the cap is reached")
}

func TestSyncIdempotent(t *testing.T) {
	now := time.Now()
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: []dto.GoogleEvent{timedEvent("ev-1", now.Add(time.Hour), time.Hour)}},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	for i := 0; i < 2; i++ {
		resp, appErr := s.Sync(context.Background(), userID)
		require.Nil(t, appErr)
		assert.Equal(t, 1, resp.Stored)
	}

	count, err := events.CountByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-syncing the same events must not duplicate rows")
}

func TestSyncConvergesOnRemoteEdit(t *testing.T) {
	now := time.Now()
	edited := timedEvent("ev-1", now.Add(time.Hour), time.Hour)
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: []dto.GoogleEvent{edited}},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	_, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)

	edited.Summary = "renamed upstream"
	api.pages[""] = dto.GoogleEventsPage{Items: []dto.GoogleEvent{edited}}

	_, appErr = s.Sync(context.Background(), userID)
	require.Nil(t, appErr)

	stored, err := events.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, stored, 1, "an edited remote event must update the same row, not insert another")
	assert.Equal(t, "renamed upstream", stored[0].Summary)
}

func TestSyncLeaseHeldSkips(t *testing.T) {
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	c := newFakeCache()
	c.denyAll = true
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, c, api.srv.URL)

	resp, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)
	assert.True(t, resp.Skipped)
	assert.Equal(t, int64(0), api.hits.Load())
}

func TestSyncReleasesLease(t *testing.T) {
	now := time.Now()
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: []dto.GoogleEvent{timedEvent("ev-1", now.Add(time.Hour), time.Hour)}},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	c := newFakeCache()
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, c, api.srv.URL)

	_, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, 1, c.acquires)
	assert.Equal(t, 1, c.releases)

	// A second run can take the lease again.
	_, appErr = s.Sync(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, 2, c.acquires)
}

func TestSyncNotConnected(t *testing.T) {
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	notConnected := errors.NewAppError(errors.ErrNotConnected, "no calendar connection for user", nil)
	s := newTestSyncService(repo, events, &fakeRefresher{err: notConnected}, nil, api.srv.URL)

	_, appErr := s.Sync(context.Background(), uuid.New())
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotConnected, appErr.Code)
	assert.Equal(t, int64(0), api.hits.Load())
}

func TestSyncRefreshFailureRecorded(t *testing.T) {
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	failed := errors.NewAppError(errors.ErrRefreshFailed, "token refresh rejected with status 401", nil)
	s := newTestSyncService(repo, events, &fakeRefresher{err: failed}, nil, api.srv.URL)

	_, appErr := s.Sync(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrRefreshFailed, appErr.Code)

	conn := repo.get(userID)
	require.NotNil(t, conn)
	require.NotNil(t, conn.SyncError)
	assert.Equal(t, "token refresh rejected with status 401", *conn.SyncError)
	assert.Nil(t, conn.LastSyncAt)
}

func TestSyncAPIFailureRecorded(t *testing.T) {
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{})
	api.status = http.StatusInternalServerError

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	_, appErr := s.Sync(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrSyncFailed, appErr.Code)

	conn := repo.get(userID)
	require.NotNil(t, conn)
	require.NotNil(t, conn.SyncError)
	assert.Nil(t, conn.LastSyncAt)
}

func TestSyncPartialStoreFailureKeepsReconciledEvents(t *testing.T) {
	now := time.Now()
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: []dto.GoogleEvent{
			timedEvent("ev-1", now.Add(time.Hour), time.Hour),
			timedEvent("ev-2", now.Add(2*time.Hour), time.Hour),
		}},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	events.failOnID = "ev-2"
	userID := connectedUser(repo)
	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	_, appErr := s.Sync(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInternalServer, appErr.Code)

	// The event reconciled before the failure stays in the mirror.
	stored, err := events.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "ev-1", stored[0].ExternalEventID)

	conn := repo.get(userID)
	require.NotNil(t, conn)
	require.NotNil(t, conn.SyncError)
	assert.Equal(t, "failed to store calendar events", *conn.SyncError)
	assert.Nil(t, conn.LastSyncAt)
}

func TestSyncSuccessClearsPreviousError(t *testing.T) {
	now := time.Now()
	api := newFakeCalendarAPI(t, map[string]dto.GoogleEventsPage{
		"": {Items: []dto.GoogleEvent{timedEvent("ev-1", now.Add(time.Hour), time.Hour)}},
	})

	repo := newFakeConnRepo()
	events := newFakeEventRepo()
	userID := connectedUser(repo)
	require.NoError(t, repo.RecordError(context.Background(), userID, "previous failure"))

	s := newTestSyncService(repo, events, &fakeRefresher{token: "valid-token"}, nil, api.srv.URL)

	_, appErr := s.Sync(context.Background(), userID)
	require.Nil(t, appErr)

	conn := repo.get(userID)
	require.NotNil(t, conn)
	assert.Nil(t, conn.SyncError)
	require.NotNil(t, conn.LastSyncAt)
}
