package middleware

import (
	"taskboard-api/core/cache"
	"taskboard-api/core/constants"
	"taskboard-api/core/controller"
	"taskboard-api/core/errors"
	"taskboard-api/core/logger"
	"taskboard-api/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKeyUserID is the echo context key the auth middleware stores the
// authenticated user id under.
const ContextKeyUserID = "user_id"

type Middleware struct {
	cache cache.Cache
}

func NewMiddleware(c cache.Cache) *Middleware {
	return &Middleware{cache: c}
}

// AuthMiddleware validates the bearer token and puts the user id on the
// request context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := utils.GetTokenFromHeader(c)
			if err != nil {
				return controller.NewErrorResponse(401, errors.ErrMissingAuthorizationHeader, "missing or malformed authorization header")
			}

			if m.cache != nil {
				blacklisted, err := m.cache.IsTokenBlacklisted(c.Request().Context(), token)
				if err != nil {
					logger.Error("Middleware:AuthMiddleware:IsTokenBlacklisted:Error", "error", err)
					return controller.NewErrorResponse(500, errors.ErrInternalServer, "failed to check token")
				}
				if blacklisted {
					return controller.NewErrorResponse(401, errors.ErrUnauthorized, "token is blacklisted")
				}
			}

			tokenData, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return controller.NewErrorResponse(401, errors.ErrInvalidTokenFormat, "invalid token")
			}
			if tokenData.Scope != constants.ScopeTokenAccess {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "token scope is not valid for API access")
			}

			c.Set(ContextKeyUserID, tokenData.UserID)
			return next(c)
		}
	}
}

// UserIDFromContext returns the user id set by AuthMiddleware.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextKeyUserID).(uuid.UUID)
	return id, ok
}
