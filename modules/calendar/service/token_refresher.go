package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskboard-api/core/config"
	"taskboard-api/core/constants"
	"taskboard-api/core/errors"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/dto"
	"taskboard-api/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// TokenRefresher guarantees a non-expired access token before any provider
// call. Google may rotate the previous access token away on refresh, so the
// refresh path for one user must never run twice concurrently; refreshes for
// different users proceed independently.
type TokenRefresher interface {
	EnsureValidToken(ctx context.Context, userID uuid.UUID) (string, *errors.AppError)
}

type tokenRefresher struct {
	repo   repository.ConnectionRepository
	cfg    config.GoogleAPIConfig
	client *http.Client
	group  singleflight.Group
	skew   time.Duration
	now    func() time.Time
}

func NewTokenRefresher(repo repository.ConnectionRepository, cfg config.GoogleAPIConfig) TokenRefresher {
	return &tokenRefresher{
		repo:   repo,
		cfg:    cfg,
		client: newHTTPClient(),
		skew:   constants.TokenRefreshSkew,
		now:    time.Now,
	}
}

func (r *tokenRefresher) EnsureValidToken(ctx context.Context, userID uuid.UUID) (string, *errors.AppError) {
	// singleflight keys by user id: concurrent callers for the same user
	// share one check-then-refresh-then-persist pass, callers for other
	// users are unaffected.
	v, err, _ := r.group.Do(userID.String(), func() (any, error) {
		return r.ensure(ctx, userID)
	})
	if err != nil {
		if ae, ok := err.(*errors.AppError); ok {
			return "", ae
		}
		return "", errors.NewAppError(errors.ErrInternalServer, "token refresh failed", err)
	}
	return v.(string), nil
}

func (r *tokenRefresher) ensure(ctx context.Context, userID uuid.UUID) (string, error) {
	conn, err := r.repo.Get(ctx, userID)
	if err != nil {
		logger.Error("TokenRefresher:Get:Error", "error", err, "user_id", userID)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return "", errors.NewAppError(errors.ErrNotConnected, "no calendar connection for user", nil)
	}

	// Within the expiry window (minus skew) the cached token is returned
	// without any network call.
	if r.now().Before(conn.TokenExpiresAt.Add(-r.skew)) {
		return conn.AccessToken, nil
	}

	if conn.RefreshToken == nil || *conn.RefreshToken == "" {
		return "", errors.NewAppError(errors.ErrNotConnected,
			"access token expired and no refresh token on file, re-authorization required", nil)
	}

	logger.Info("TokenRefresher:Refreshing", "user_id", userID)

	token, appErr := r.refresh(ctx, *conn.RefreshToken)
	if appErr != nil {
		return "", appErr
	}

	expiresAt := r.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if err := r.repo.UpdateToken(ctx, userID, token.AccessToken, expiresAt); err != nil {
		logger.Error("TokenRefresher:UpdateToken:Error", "error", err, "user_id", userID)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to persist refreshed token", err)
	}

	logger.Info("TokenRefresher:Refreshed", "user_id", userID, "expires_at", expiresAt)
	return token.AccessToken, nil
}

func (r *tokenRefresher) refresh(ctx context.Context, refreshToken string) (*dto.GoogleTokenResponse, *errors.AppError) {
	form := url.Values{}
	form.Set("client_id", r.cfg.ClientID)
	form.Set("client_secret", r.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	encoded := form.Encode()

	resp, err := doWithRetry(ctx, r.client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, r.cfg.TokenURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		logger.Error("TokenRefresher:Refresh:TransportError", "error", err)
		return nil, errors.NewAppError(errors.ErrRefreshFailed, "token refresh request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("TokenRefresher:Refresh:ReadBody:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrRefreshFailed, "failed to read refresh response", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("TokenRefresher:Refresh:ProviderRejected", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrRefreshFailed,
			fmt.Sprintf("token refresh rejected with status %d", resp.StatusCode), nil)
	}

	var token dto.GoogleTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		logger.Error("TokenRefresher:Refresh:Unmarshal:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrRefreshFailed, "failed to parse refresh response", err)
	}
	if token.AccessToken == "" {
		return nil, errors.NewAppError(errors.ErrRefreshFailed, "refresh response has no access token", nil)
	}
	if token.ExpiresIn <= 0 {
		token.ExpiresIn = 3600
	}
	return &token, nil
}
