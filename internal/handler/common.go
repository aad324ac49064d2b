package handler

// common.go holds helpers shared by every handler: identity extraction
// from the Echo context and the single place where service errors are
// rendered as JSON.

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/canteen-meal-service/internal/apperr"
	"github.com/iliyamo/canteen-meal-service/internal/middleware"
)

// getUserID extracts the authenticated user's id stored by the JWT
// middleware.  It returns an error when the request reached a
// protected handler without a validated token.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, echo.ErrUnauthorized
	}
	return id, nil
}

// writeError renders a service error as the standard error envelope:
// {"error": message, "code": CODE, "details": [...]}.  The HTTP status
// follows the error kind; unknown errors become a generic 500.
func writeError(c echo.Context, err error) error {
	ae := apperr.From(err)
	body := echo.Map{"error": ae.Message, "code": ae.Code}
	if len(ae.Details) > 0 {
		body["details"] = ae.Details
	}
	return c.JSON(apperr.HTTPStatus(ae), body)
}

// bindJSON binds the request body and reports malformed JSON with the
// same envelope as validation failures.
func bindJSON(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
