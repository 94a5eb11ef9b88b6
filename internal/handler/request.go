package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator implements echo.Validator with go-playground/validator
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a RequestValidator reporting JSON field names
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field is required"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "min":
		return "Must be at least " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "email":
		return "Must be a valid email address"
	}
	return "Invalid value"
}

// bindAndValidate binds the request body into req and runs struct validation.
// On failure the 400 response has already been written and ok is false.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, NewValidationError(c, "Invalid request body", nil)
	}
	if c.Echo().Validator == nil {
		return true, nil
	}
	if err := c.Validate(req); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return false, NewValidationError(c, "Invalid request body", nil)
		}
		fields := make([]ValidationError, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, ValidationError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		return false, NewValidationError(c, "Validation failed", fields)
	}
	return true, nil
}

// currentActor returns the authenticated actor. When ok is false a 401 has been written.
func currentActor(c echo.Context) (domain.Actor, bool, error) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return domain.Actor{}, false, NewUnauthorizedError(c, "Authentication required")
	}
	return actor, true, nil
}

// parseID parses a positive int32 path parameter
func parseID(c echo.Context, name string) (int32, bool, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id <= 0 {
		return 0, false, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "Must be a positive integer"},
		})
	}
	return int32(id), true, nil
}

// parseOptionalInt32 parses an optional query integer; empty yields nil
func parseOptionalInt32(s string) (*int32, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, err
	}
	v := int32(n)
	return &v, nil
}

// parseOptionalDate parses an optional YYYY-MM-DD query date in UTC
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
