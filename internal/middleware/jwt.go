package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/canteen-meal-service/internal/utils"
)

// Context keys set by JWTAuth and read by RequireRole and the handlers.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the numeric user id and role into the request
// context.  The secret must match the one the directory signs tokens
// with.  Protected handlers read the identity via UserID(c) and
// Role(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseAccessToken(raw, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}
