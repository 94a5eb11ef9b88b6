package handler

import (
	"net/http"

	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// BillingHandler handles outstanding balance and billable item requests
type BillingHandler struct {
	billingService *service.BillingService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// GetOutstanding returns a student's reconciled balance
// @Summary Get outstanding balance
// @Description Billed is the sum of active fee items applicable to the student, paid is the sum of settled line items. Pending payments do not count.
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} domain.Outstanding
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /students/{id}/outstanding [get]
func (h *BillingHandler) GetOutstanding(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	out, err := h.billingService.GetOutstanding(c.Request().Context(), actor, id)
	if err != nil {
		return handleServiceError(c, err, "get outstanding balance")
	}
	return c.JSON(http.StatusOK, out)
}

// GetBillableItems returns the fee items a student can still pay for
// @Summary Get billable items
// @Description Active items not yet covered by a pending or settled payment
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {array} domain.FeeItem
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /students/{id}/billable-items [get]
func (h *BillingHandler) GetBillableItems(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	items, err := h.billingService.GetBillableItems(c.Request().Context(), actor, id)
	if err != nil {
		return handleServiceError(c, err, "get billable items")
	}
	return c.JSON(http.StatusOK, items)
}
