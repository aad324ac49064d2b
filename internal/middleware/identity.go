package middleware

// identity.go provides typed accessors for the identity JWTAuth stores
// in the Echo context, shared by the role middleware, the rate limiter
// key builder and the handlers.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id, or false when the
// request carries no validated token.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role claim, or "" when absent.
func Role(c echo.Context) string {
	role, _ := c.Get(ContextRole).(string)
	return role
}
