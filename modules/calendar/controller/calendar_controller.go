package controller

import (
	"net/http"
	"net/url"

	"taskboard-api/core/config"
	"taskboard-api/core/controller"
	"taskboard-api/core/errors"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/dto"
	"taskboard-api/modules/calendar/service"

	"github.com/labstack/echo/v4"

	mw "taskboard-api/core/middleware"
)

type CalendarController struct {
	controller.BaseController
	oauthService      service.OAuthService
	syncService       service.SyncService
	connectionService service.ConnectionService
}

func NewCalendarController(
	oauthService service.OAuthService,
	syncService service.SyncService,
	connectionService service.ConnectionService,
) *CalendarController {
	return &CalendarController{
		BaseController:    controller.NewBaseController(),
		oauthService:      oauthService,
		syncService:       syncService,
		connectionService: connectionService,
	}
}

// Connect returns the Google authorization URL for the authenticated user.
func (ctrl *CalendarController) Connect(c echo.Context) error {
	userID, ok := mw.UserIDFromContext(c)
	if !ok {
		return ctrl.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	resp, appErr := ctrl.oauthService.AuthURL(c.Request().Context(), userID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}
	return ctrl.SuccessResponse(c, resp, "authorization URL created")
}

// Callback handles the redirect back from Google. It is a public, browser
// facing endpoint, so the outcome is reported by redirecting to the frontend
// instead of returning JSON.
func (ctrl *CalendarController) Callback(c echo.Context) error {
	params := dto.CallbackParams{
		Code:      c.QueryParam("code"),
		State:     c.QueryParam("state"),
		ErrorCode: c.QueryParam("error"),
		Scope:     c.QueryParam("scope"),
	}

	landing := config.Get().Frontend.CalendarRedirectURL

	conn, appErr := ctrl.oauthService.HandleCallback(c.Request().Context(), params)
	if appErr != nil {
		logger.Warn("CalendarController:Callback:Failed", "code", appErr.Code, "message", appErr.Message)
		return c.Redirect(http.StatusFound,
			landing+"?calendar_error="+url.QueryEscape(appErr.Message))
	}

	logger.Info("CalendarController:Callback:Connected", "user_id", conn.UserID)
	return c.Redirect(http.StatusFound, landing+"?calendar=connected")
}

// Status reports whether the user has a usable calendar connection.
func (ctrl *CalendarController) Status(c echo.Context) error {
	userID, ok := mw.UserIDFromContext(c)
	if !ok {
		return ctrl.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	resp, appErr := ctrl.connectionService.Status(c.Request().Context(), userID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}
	return ctrl.SuccessResponse(c, resp, "calendar status")
}

// Sync runs an on-demand sync pass for the authenticated user.
func (ctrl *CalendarController) Sync(c echo.Context) error {
	userID, ok := mw.UserIDFromContext(c)
	if !ok {
		return ctrl.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	resp, appErr := ctrl.syncService.Sync(c.Request().Context(), userID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}
	if resp.Skipped {
		return ctrl.SuccessResponse(c, resp, "sync already in progress")
	}
	return ctrl.SuccessResponse(c, resp, "calendar synced")
}

// ListEvents returns the mirrored events for the authenticated user.
func (ctrl *CalendarController) ListEvents(c echo.Context) error {
	userID, ok := mw.UserIDFromContext(c)
	if !ok {
		return ctrl.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	resp, appErr := ctrl.connectionService.ListEvents(c.Request().Context(), userID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}
	return ctrl.SuccessResponse(c, resp, "calendar events")
}

// Disconnect removes the connection and the mirrored events.
func (ctrl *CalendarController) Disconnect(c echo.Context) error {
	userID, ok := mw.UserIDFromContext(c)
	if !ok {
		return ctrl.Unauthorized(errors.ErrUnauthorized, "authentication required")
	}

	resp, appErr := ctrl.connectionService.Disconnect(c.Request().Context(), userID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}
	return ctrl.SuccessResponse(c, resp, "calendar disconnected")
}
