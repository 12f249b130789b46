package router

import (
	"taskboard-api/core/middleware"
	"taskboard-api/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		controller: controller,
	}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Public routes (Google redirects the browser here, no bearer token)
	publicRoutes := v1.Group("/public/calendar")
	publicRoutes.GET("/callback", r.controller.Callback)

	// Private routes (require authentication)
	calendarRoutes := v1.Group("/private/calendar")
	calendarRoutes.Use(mw.AuthMiddleware())

	calendarRoutes.GET("/connect", r.controller.Connect)
	calendarRoutes.GET("/status", r.controller.Status)
	calendarRoutes.POST("/sync", r.controller.Sync)
	calendarRoutes.GET("/events", r.controller.ListEvents)
	calendarRoutes.DELETE("/connection", r.controller.Disconnect)
}
