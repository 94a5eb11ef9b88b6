package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment submission and review requests
type PaymentHandler struct {
	paymentService *service.PaymentService
	maxProofBytes  int64
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService, maxProofBytes int) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		maxProofBytes:  int64(maxProofBytes),
	}
}

// RejectPaymentRequest represents the reject payment request body
type RejectPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// formRefs collects fee references from items[] (or items), accepting comma separated values
func formRefs(values map[string][]string) ([]domain.FeeRef, error) {
	raw := append([]string{}, values["items[]"]...)
	raw = append(raw, values["items"]...)

	refs := []domain.FeeRef{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			ref, err := domain.ParseFeeRef(part)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// Submit creates a pending payment for the selected fee items
// @Summary Submit payment
// @Description Submits proof of a manual transfer covering one or more SPP/PPDB items. The payment stays pending until an admin reviews it.
// @Tags payments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param items[] formData []string true "Fee references such as spp:12 or ppdb:3" collectionFormat(multi)
// @Param declaredTotal formData string true "Amount transferred"
// @Param studentId formData int false "Student ID (admins only, defaults to the caller's student)"
// @Param proof formData file true "Proof of payment image (JPEG or PNG)"
// @Success 201 {object} domain.Payment
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Failure 500 {object} ProblemDetails
// @Router /payments [post]
func (h *PaymentHandler) Submit(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewValidationError(c, "Request must be multipart/form-data", nil)
	}

	refs, err := formRefs(form.Value)
	if err != nil {
		return fieldError(c, "items", err)
	}

	declared := c.FormValue("declaredTotal")
	declaredTotal, err := decimal.NewFromString(strings.TrimSpace(declared))
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "declaredTotal", Message: "Must be a valid decimal number"},
		})
	}

	studentID := actor.StudentID
	if raw := c.FormValue("studentId"); raw != "" {
		id, err := parseOptionalInt32(raw)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "studentId", Message: "Must be a positive integer"},
			})
		}
		studentID = *id
	}

	var proof *domain.ProofFile
	if fh, err := c.FormFile("proof"); err == nil {
		if fh.Size > h.maxProofBytes {
			return fieldError(c, "proof", service.ErrProofTooLarge)
		}
		f, err := fh.Open()
		if err != nil {
			return NewValidationError(c, "Unable to read proof file", nil)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, h.maxProofBytes+1))
		if err != nil {
			return NewValidationError(c, "Unable to read proof file", nil)
		}
		proof = &domain.ProofFile{Filename: fh.Filename, Data: data}
	}

	payment, err := h.paymentService.Submit(c.Request().Context(), actor, domain.SubmitPaymentInput{
		StudentID:     studentID,
		Items:         refs,
		DeclaredTotal: declaredTotal,
		Proof:         proof,
	})
	if err != nil {
		return handleServiceError(c, err, "submit payment")
	}

	return c.JSON(http.StatusCreated, payment)
}

// Get returns one payment with its line items
// @Summary Get payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} service.PaymentDetail
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	payment, err := h.paymentService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return handleServiceError(c, err, "get payment")
	}
	return c.JSON(http.StatusOK, payment)
}

// ListForStudent returns a student's payment history
// @Summary List student payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {array} domain.Payment
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /students/{id}/payments [get]
func (h *PaymentHandler) ListForStudent(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	payments, err := h.paymentService.ListForStudent(c.Request().Context(), actor, id)
	if err != nil {
		return handleServiceError(c, err, "list payments")
	}
	return c.JSON(http.StatusOK, payments)
}

// List returns payments for admin review
// @Summary List payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, lunas or ditolak"
// @Param studentId query int false "Student ID"
// @Param classId query int false "Class ID"
// @Param from query string false "Submitted on or after (YYYY-MM-DD)"
// @Param to query string false "Submitted before (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} domain.PaginatedPayments
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /payments [get]
func (h *PaymentHandler) List(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	filters, ok, err := parsePaymentFilters(c)
	if !ok {
		return err
	}

	result, err := h.paymentService.List(c.Request().Context(), actor, filters)
	if err != nil {
		return handleServiceError(c, err, "list payments")
	}
	return c.JSON(http.StatusOK, result)
}

// parsePaymentFilters reads the shared payment filter query parameters.
// When ok is false a 400 has been written.
func parsePaymentFilters(c echo.Context) (domain.PaymentFilters, bool, error) {
	var filters domain.PaymentFilters
	var errs []ValidationError

	if raw := c.QueryParam("status"); raw != "" {
		status, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "status", Message: "Must be one of: pending, lunas, ditolak"})
		} else {
			filters.Status = &status
		}
	}
	for _, p := range []struct {
		name string
		dst  **int32
	}{
		{"studentId", &filters.StudentID},
		{"classId", &filters.ClassID},
	} {
		v, err := parseOptionalInt32(c.QueryParam(p.name))
		if err != nil {
			errs = append(errs, ValidationError{Field: p.name, Message: "Must be an integer"})
			continue
		}
		*p.dst = v
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &filters.From},
		{"to", &filters.To},
	} {
		v, err := parseOptionalDate(c.QueryParam(p.name))
		if err != nil {
			errs = append(errs, ValidationError{Field: p.name, Message: "Must be a date formatted YYYY-MM-DD"})
			continue
		}
		*p.dst = v
	}
	if v, err := parseOptionalInt32(c.QueryParam("page")); err == nil && v != nil {
		filters.Page = *v
	}
	if v, err := parseOptionalInt32(c.QueryParam("pageSize")); err == nil && v != nil {
		filters.PageSize = *v
	}

	if len(errs) > 0 {
		return filters, false, NewValidationError(c, "Invalid query parameters", errs)
	}
	return filters, true, nil
}

// Approve settles a pending payment
// @Summary Approve payment
// @Description Marks the payment and all of its line items lunas. Approving an already settled payment is a no-op.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} domain.Payment
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /payments/{id}/approve [post]
func (h *PaymentHandler) Approve(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	payment, err := h.paymentService.Approve(c.Request().Context(), actor, id)
	if err != nil {
		return handleServiceError(c, err, "approve payment")
	}
	return c.JSON(http.StatusOK, payment)
}

// Reject rejects a pending payment with an optional reason
// @Summary Reject payment
// @Description Marks the payment and all of its line items ditolak. The items become billable again.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Param request body RejectPaymentRequest false "Rejection reason"
// @Success 200 {object} domain.Payment
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /payments/{id}/reject [post]
func (h *PaymentHandler) Reject(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	var req RejectPaymentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	payment, err := h.paymentService.Reject(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return handleServiceError(c, err, "reject payment")
	}
	return c.JSON(http.StatusOK, payment)
}
