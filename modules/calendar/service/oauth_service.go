package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taskboard-api/core/config"
	"taskboard-api/core/constants"
	"taskboard-api/core/errors"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/dto"
	"taskboard-api/modules/calendar/entity"
	"taskboard-api/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const calendarReadScope = "https://www.googleapis.com/auth/calendar.readonly"

// oauthErrorReasons maps the provider's callback error codes to user-facing
// reasons. Unknown codes fall through to a generic message.
var oauthErrorReasons = map[string]string{
	"access_denied":             "User denied access to Google Calendar",
	"invalid_request":           "Invalid OAuth request",
	"unauthorized_client":       "Application is not authorized for this request",
	"unsupported_response_type": "Unsupported OAuth response type",
	"invalid_scope":             "Requested scope is invalid",
	"server_error":              "Google returned a server error",
	"temporarily_unavailable":   "Google is temporarily unavailable, try again later",
}

// OAuthService drives the authorization round trip: building the redirect,
// validating the callback, exchanging the code and persisting the connection.
type OAuthService interface {
	AuthURL(ctx context.Context, userID uuid.UUID) (*dto.ConnectURLResponse, *errors.AppError)
	HandleCallback(ctx context.Context, p dto.CallbackParams) (*entity.CalendarConnection, *errors.AppError)
}

type oauthService struct {
	repo   repository.ConnectionRepository
	codec  *StateTokenCodec
	cfg    config.GoogleAPIConfig
	client *http.Client
	now    func() time.Time
}

func NewOAuthService(repo repository.ConnectionRepository, codec *StateTokenCodec, cfg config.GoogleAPIConfig) OAuthService {
	return &oauthService{
		repo:   repo,
		codec:  codec,
		cfg:    cfg,
		client: newHTTPClient(),
		now:    time.Now,
	}
}

func (s *oauthService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		RedirectURL:  s.cfg.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			calendarReadScope,
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.cfg.AuthURL,
			TokenURL: s.cfg.TokenURL,
		},
	}
}

// AuthURL builds the Google authorization URL with the signed state token.
func (s *oauthService) AuthURL(ctx context.Context, userID uuid.UUID) (*dto.ConnectURLResponse, *errors.AppError) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" || s.cfg.RedirectURI == "" {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Google OAuth configuration is missing", nil)
	}

	state, err := s.codec.Encode(userID, PurposeCalendar)
	if err != nil {
		logger.Error("OAuthService:AuthURL:EncodeState:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create state token", err)
	}

	url := s.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return &dto.ConnectURLResponse{URL: url, State: state}, nil
}

// HandleCallback validates the redirect parameters in a fixed order, then
// exchanges the code, fetches the remote profile and persists the connection.
// Nothing is stored unless exchange and profile fetch both succeed.
func (s *oauthService) HandleCallback(ctx context.Context, p dto.CallbackParams) (*entity.CalendarConnection, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	// 1. Provider-reported error terminates before any exchange attempt.
	if p.ErrorCode != "" {
		reason, ok := oauthErrorReasons[p.ErrorCode]
		if !ok {
			reason = fmt.Sprintf("oauth error: %s", p.ErrorCode)
		}
		logger.Warn("OAuthService:HandleCallback:ProviderError", "error_code", p.ErrorCode)
		return nil, errors.NewAppError(errors.ErrOAuthDenied, reason, nil)
	}

	// 2. No authorization code.
	if p.Code == "" {
		return nil, errors.NewAppError(errors.ErrOAuthCallback, "no_authorization_code", nil)
	}

	// 3. No state value.
	if p.State == "" {
		return nil, errors.NewAppError(errors.ErrOAuthCallback, "missing_state", nil)
	}

	// 4. State must verify and carry the calendar purpose.
	claims, err := s.codec.Decode(p.State)
	if err != nil {
		logger.Warn("OAuthService:HandleCallback:InvalidState", "error", err)
		return nil, errors.NewAppError(errors.ErrOAuthCallback, "invalid_state_type", err)
	}
	if claims.Purpose != PurposeCalendar {
		logger.Warn("OAuthService:HandleCallback:PurposeMismatch", "purpose", claims.Purpose)
		return nil, errors.NewAppError(errors.ErrOAuthCallback, "invalid_state_type", nil)
	}

	token, appErr := s.exchange(ctx, p.Code)
	if appErr != nil {
		return nil, appErr
	}

	profile, appErr := s.fetchProfile(ctx, token.AccessToken)
	if appErr != nil {
		// Tokens were obtained but the account is unknown; fail the whole
		// attempt rather than store an attributionless credential.
		return nil, appErr
	}

	hasScope := grantsCalendarScope(p.Scope)
	if !hasScope {
		// Some flows omit the scope query parameter; the token response
		// carries the granted scopes as well.
		if sc, ok := token.Extra("scope").(string); ok {
			hasScope = grantsCalendarScope(sc)
		}
	}

	now := s.now()
	conn := &entity.CalendarConnection{
		UserID:           claims.UserID,
		CalendarEmail:    profile.Email,
		HasCalendarScope: hasScope,
		AccessToken:      token.AccessToken,
		TokenExpiresAt:   token.Expiry,
		ConnectedAt:      now,
	}
	if token.RefreshToken != "" {
		conn.RefreshToken = &token.RefreshToken
	}

	if err := s.repo.Upsert(ctx, conn); err != nil {
		logger.Error("OAuthService:HandleCallback:Upsert:Error", "error", err, "user_id", claims.UserID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save calendar connection", err)
	}

	logger.Info("OAuthService:HandleCallback:Connected",
		"user_id", claims.UserID,
		"email", profile.Email,
		"has_refresh_token", token.RefreshToken != "",
		"has_calendar_scope", conn.HasCalendarScope,
		"expires_at", token.Expiry)

	return conn, nil
}

func (s *oauthService) exchange(ctx context.Context, code string) (*oauth2.Token, *errors.AppError) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)

	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		if re, ok := err.(*oauth2.RetrieveError); ok {
			logger.Error("OAuthService:Exchange:ProviderRejected",
				"status", re.Response.StatusCode, "body", string(re.Body))
			if strings.Contains(string(re.Body), "redirect_uri_mismatch") {
				return nil, errors.NewAppError(errors.ErrTokenExchange,
					"OAuth redirect URI does not match the registered redirect URI", err)
			}
			return nil, errors.NewAppError(errors.ErrTokenExchange,
				fmt.Sprintf("token exchange rejected with status %d", re.Response.StatusCode), err)
		}
		logger.Error("OAuthService:Exchange:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrTokenExchange, "failed to exchange authorization code", err)
	}
	return token, nil
}

func (s *oauthService) fetchProfile(ctx context.Context, accessToken string) (*dto.GoogleProfile, *errors.AppError) {
	resp, err := doWithRetry(ctx, s.client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, s.cfg.ProfileURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		return req, nil
	})
	if err != nil {
		logger.Error("OAuthService:FetchProfile:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrTokenExchange, "failed to fetch Google profile", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("OAuthService:FetchProfile:ReadBody:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrTokenExchange, "failed to read profile response", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("OAuthService:FetchProfile:APIError", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrTokenExchange,
			fmt.Sprintf("profile fetch failed with status %d", resp.StatusCode), nil)
	}

	var profile dto.GoogleProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		logger.Error("OAuthService:FetchProfile:Unmarshal:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrTokenExchange, "failed to parse profile response", err)
	}
	if profile.Email == "" {
		return nil, errors.NewAppError(errors.ErrTokenExchange, "profile response has no email", nil)
	}
	return &profile, nil
}

func grantsCalendarScope(scope string) bool {
	for _, granted := range strings.Fields(scope) {
		if granted == calendarReadScope {
			return true
		}
	}
	return false
}
