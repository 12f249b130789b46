package calendar

import (
	"taskboard-api/core/cache"
	"taskboard-api/core/config"
	"taskboard-api/core/database"
	"taskboard-api/core/middleware"
	"taskboard-api/modules/calendar/controller"
	"taskboard-api/modules/calendar/jobs"
	"taskboard-api/modules/calendar/repository"
	"taskboard-api/modules/calendar/router"
	"taskboard-api/modules/calendar/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Init wires the calendar module and returns the background job handler so
// the server can mount it on the asynq mux.
func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, asynqClient *asynq.Client) *jobs.Handler {
	cfg := config.Get()

	// Initialize layers
	connRepo := repository.NewConnectionRepository(db)
	eventRepo := repository.NewEventRepository(db)

	codec := service.NewStateTokenCodec(cfg.JWT.Secret)
	oauthService := service.NewOAuthService(connRepo, codec, cfg.GoogleAPI)
	refresher := service.NewTokenRefresher(connRepo, cfg.GoogleAPI)
	syncService := service.NewSyncService(connRepo, eventRepo, refresher, c, cfg.GoogleAPI)
	connectionService := service.NewConnectionService(connRepo, eventRepo)

	calendarController := controller.NewCalendarController(oauthService, syncService, connectionService)

	// Get middleware for auth
	mw := middleware.NewMiddleware(c)

	// Setup routes
	router.NewCalendarRouter(calendarController).Setup(e, mw)

	return jobs.NewHandler(syncService, connRepo, asynqClient)
}
