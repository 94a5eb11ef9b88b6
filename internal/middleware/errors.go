package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// problemDetails represents an RFC 7807 Problem Details response
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error types
const (
	errorTypeUnauthorized = "https://sppku.id/errors/unauthorized"
	errorTypeForbidden    = "https://sppku.id/errors/forbidden"
	errorTypeRateLimit    = "https://sppku.id/errors/rate-limit"
	errorTypeInternal     = "https://sppku.id/errors/internal"
)

func problem(c echo.Context, status int, errorType, title, detail string) error {
	return c.JSON(status, problemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// unauthorizedError creates an unauthorized error response
func unauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, errorTypeUnauthorized, "Unauthorized", detail)
}

// forbiddenError creates a forbidden error response
func forbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, errorTypeForbidden, "Forbidden", detail)
}
