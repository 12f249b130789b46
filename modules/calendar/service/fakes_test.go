package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskboard-api/core/errors"
	"taskboard-api/modules/calendar/dto"
	"taskboard-api/modules/calendar/entity"

	"github.com/google/uuid"
)

func dtoCallback(code, state, errorCode, scope string) dto.CallbackParams {
	return dto.CallbackParams{Code: code, State: state, ErrorCode: errorCode, Scope: scope}
}

// fakeConnRepo is an in-memory ConnectionRepository. When events is set,
// Clear cascades to it the way the real transaction does.
type fakeConnRepo struct {
	mu          sync.Mutex
	conns       map[uuid.UUID]*entity.CalendarConnection
	events      *fakeEventRepo
	getErr      error
	upsertErr   error
	getCalls    int
	upsertCalls int
	tokenWrites int
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{conns: map[uuid.UUID]*entity.CalendarConnection{}}
}

func (f *fakeConnRepo) put(conn *entity.CalendarConnection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *conn
	f.conns[conn.UserID] = &cp
}

func (f *fakeConnRepo) get(userID uuid.UUID) *entity.CalendarConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[userID]
	if !ok {
		return nil
	}
	cp := *conn
	return &cp
}

func (f *fakeConnRepo) Get(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.get(userID), nil
}

func (f *fakeConnRepo) Upsert(ctx context.Context, conn *entity.CalendarConnection) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	f.upsertCalls++
	cp := *conn
	f.conns[conn.UserID] = &cp
	f.mu.Unlock()
	return nil
}

func (f *fakeConnRepo) UpdateToken(ctx context.Context, userID uuid.UUID, accessToken string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[userID]
	if !ok {
		return fmt.Errorf("no connection for user")
	}
	f.tokenWrites++
	conn.AccessToken = accessToken
	conn.TokenExpiresAt = expiresAt
	return nil
}

func (f *fakeConnRepo) RecordSync(ctx context.Context, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[userID]
	if !ok {
		return fmt.Errorf("no connection for user")
	}
	conn.LastSyncAt = &at
	conn.SyncError = nil
	return nil
}

func (f *fakeConnRepo) RecordError(ctx context.Context, userID uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[userID]
	if !ok {
		return fmt.Errorf("no connection for user")
	}
	conn.SyncError = &message
	return nil
}

func (f *fakeConnRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	delete(f.conns, userID)
	f.mu.Unlock()
	if f.events != nil {
		f.events.deleteByUser(userID)
	}
	return nil
}

func (f *fakeConnRepo) ListConnectedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, conn := range f.conns {
		if conn.HasCalendarScope {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fakeEventRepo is an in-memory EventRepository keyed like the real table.
// failOnID makes the upsert of that one external id fail, for partial-failure
// tests.
type fakeEventRepo struct {
	mu        sync.Mutex
	events    map[string]*entity.MirroredEvent
	upsertErr error
	failOnID  string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]*entity.MirroredEvent{}}
}

func eventKey(userID uuid.UUID, externalID string) string {
	return userID.String() + "/" + externalID
}

func (f *fakeEventRepo) deleteByUser(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, ev := range f.events {
		if ev.UserID == userID {
			delete(f.events, key)
		}
	}
}

func (f *fakeEventRepo) Upsert(ctx context.Context, ev *entity.MirroredEvent) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.failOnID != "" && ev.ExternalEventID == f.failOnID {
		return fmt.Errorf("insert failed for %s", ev.ExternalEventID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ev
	f.events[eventKey(ev.UserID, ev.ExternalEventID)] = &cp
	return nil
}

func (f *fakeEventRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.MirroredEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.MirroredEvent
	for _, ev := range f.events {
		if ev.UserID == userID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	evs, _ := f.ListByUser(ctx, userID)
	return len(evs), nil
}

// fakeCache implements the lease half of cache.Cache in memory.
type fakeCache struct {
	mu       sync.Mutex
	leases   map[uuid.UUID]bool
	acquires int
	releases int
	denyAll  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{leases: map[uuid.UUID]bool{}}
}

func (f *fakeCache) AcquireSyncLease(ctx context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.denyAll || f.leases[userID] {
		return false, nil
	}
	f.leases[userID] = true
	return true, nil
}

func (f *fakeCache) ReleaseSyncLease(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	delete(f.leases, userID)
	return nil
}

func (f *fakeCache) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	return false, nil
}

func (f *fakeCache) AddToTokenBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

// fakeRefresher returns a fixed token or error.
type fakeRefresher struct {
	token string
	err   *errors.AppError
	calls int
}

func (f *fakeRefresher) EnsureValidToken(ctx context.Context, userID uuid.UUID) (string, *errors.AppError) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}
