package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard-api/core/config"
	"taskboard-api/core/errors"
	"taskboard-api/modules/calendar/dto"
	"taskboard-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOAuthService struct {
	conn *entity.CalendarConnection
	err  *errors.AppError
	got  dto.CallbackParams
}

func (f *fakeOAuthService) AuthURL(ctx context.Context, userID uuid.UUID) (*dto.ConnectURLResponse, *errors.AppError) {
	return &dto.ConnectURLResponse{URL: "https://accounts.google.com/o/oauth2/auth?state=x", State: "x"}, nil
}

func (f *fakeOAuthService) HandleCallback(ctx context.Context, p dto.CallbackParams) (*entity.CalendarConnection, *errors.AppError) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func setupCallbackTest(t *testing.T, svc *fakeOAuthService, query string) *httptest.ResponseRecorder {
	t.Helper()
	config.Set(&config.Config{
		Frontend: config.FrontendConfig{CalendarRedirectURL: "http://localhost:3000/settings/calendar"},
	})

	ctrl := NewCalendarController(svc, nil, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/calendar/callback?"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, ctrl.Callback(c))
	return rec
}

func TestCallbackRedirectsOnSuccess(t *testing.T) {
	svc := &fakeOAuthService{
		conn: &entity.CalendarConnection{
			UserID:           uuid.New(),
			CalendarEmail:    "alice@example.com",
			HasCalendarScope: true,
			ConnectedAt:      time.Now(),
		},
	}

	rec := setupCallbackTest(t, svc, "code=auth-code&state=signed-state&scope=email")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		"http://localhost:3000/settings/calendar?calendar=connected",
		rec.Header().Get(echo.HeaderLocation))

	assert.Equal(t, "auth-code", svc.got.Code)
	assert.Equal(t, "signed-state", svc.got.State)
	assert.Equal(t, "email", svc.got.Scope)
}

func TestCallbackRedirectsOnFailure(t *testing.T) {
	svc := &fakeOAuthService{
		err: errors.NewAppError(errors.ErrOAuthDenied, "User denied access to Google Calendar", nil),
	}

	rec := setupCallbackTest(t, svc, "error=access_denied")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t,
		"http://localhost:3000/settings/calendar?calendar_error=User+denied+access+to+Google+Calendar",
		rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, "access_denied", svc.got.ErrorCode)
}
