package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/export"
	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://sppku.id/errors/validation"
	ErrorTypeNotFound     = "https://sppku.id/errors/not-found"
	ErrorTypeUnauthorized = "https://sppku.id/errors/unauthorized"
	ErrorTypeForbidden    = "https://sppku.id/errors/forbidden"
	ErrorTypeConflict     = "https://sppku.id/errors/conflict"
	ErrorTypeUnavailable  = "https://sppku.id/errors/unavailable"
	ErrorTypeInternal     = "https://sppku.id/errors/internal"
)

func newProblem(c echo.Context, status int, errorType, title, detail string, errs []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return newProblem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail, nil)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, nil)
}

// NewServiceUnavailableError creates a service unavailable error response
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, "Service Unavailable", detail, nil)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}

func fieldError(c echo.Context, field string, err error) error {
	return NewValidationError(c, "Validation failed", []ValidationError{
		{Field: field, Message: err.Error()},
	})
}

// handleServiceError maps domain errors to appropriate HTTP responses
func handleServiceError(c echo.Context, err error, operation string) error {
	switch {
	// 403
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, "You do not have access to this resource")

	// 404
	case errors.Is(err, domain.ErrPaymentNotFound):
		return NewNotFoundError(c, "Payment not found")
	case errors.Is(err, domain.ErrStudentNotFound):
		return NewNotFoundError(c, "Student not found")
	case errors.Is(err, domain.ErrFeeItemNotFound):
		return NewNotFoundError(c, "Fee item not found")
	case errors.Is(err, domain.ErrClassNotFound):
		return NewNotFoundError(c, "Class not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return NewNotFoundError(c, "User not found")

	// 409
	case errors.Is(err, domain.ErrFeeItemAlreadyCovered):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrPaymentNotPending):
		return NewConflictError(c, "Payment has already been reviewed")
	case errors.Is(err, domain.ErrNISAlreadyExists):
		return NewConflictError(c, "Student number (NIS) already exists")
	case errors.Is(err, domain.ErrAlreadyExists):
		return NewConflictError(c, "Resource already exists")

	// 400 per field
	case errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrInvalidFeeRef),
		errors.Is(err, domain.ErrFeeItemInactive),
		errors.Is(err, domain.ErrFeeItemOutOfScope):
		return fieldError(c, "items", err)
	case errors.Is(err, domain.ErrDeclaredTotalInvalid):
		return fieldError(c, "declaredTotal", err)
	case errors.Is(err, domain.ErrProofRequired),
		errors.Is(err, service.ErrProofTooLarge),
		errors.Is(err, service.ErrProofInvalidFormat),
		errors.Is(err, service.ErrProofTooSmall),
		errors.Is(err, service.ErrProofInvalidImage),
		errors.Is(err, service.ErrProofTooManyPixels):
		return fieldError(c, "proof", err)
	case errors.Is(err, domain.ErrRejectReasonTooLong):
		return fieldError(c, "reason", err)
	case errors.Is(err, domain.ErrStudentInactive):
		return fieldError(c, "studentId", err)
	case errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrNameTooLong):
		return fieldError(c, "name", err)
	case errors.Is(err, domain.ErrNISRequired):
		return fieldError(c, "nis", err)
	case errors.Is(err, domain.ErrStudentClassNeeded):
		return fieldError(c, "classId", err)
	case errors.Is(err, domain.ErrInvalidFeeKind):
		return fieldError(c, "kind", err)
	case errors.Is(err, domain.ErrFeeAmountInvalid):
		return fieldError(c, "amount", err)
	case errors.Is(err, domain.ErrSchoolYearInvalid):
		return fieldError(c, "schoolYear", err)
	case errors.Is(err, domain.ErrFeeMonthInvalid),
		errors.Is(err, domain.ErrFeeMonthNotAllowed):
		return fieldError(c, "month", err)
	case errors.Is(err, domain.ErrFeeClassNotAllowed):
		return fieldError(c, "classId", err)
	case errors.Is(err, domain.ErrInvalidRole):
		return fieldError(c, "role", err)
	case errors.Is(err, domain.ErrStudentLinkMissing):
		return fieldError(c, "studentId", err)
	case errors.Is(err, domain.ErrInvalidPaymentStatus):
		return fieldError(c, "status", err)
	case errors.Is(err, export.ErrUnsupportedFormat):
		return fieldError(c, "format", err)
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, "Invalid input", nil)

	// 503
	case errors.Is(err, service.ErrProofStorageNotConfigured):
		return NewServiceUnavailableError(c, "Proof storage is not configured")
	}

	log.Error().Err(err).Str("operation", operation).Msg("Request failed")
	return NewInternalError(c, "Failed to "+operation)
}
