package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/dafibh/sppku/sppku-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FeeHandler handles SPP and PPDB catalog requests
type FeeHandler struct {
	feeService *service.FeeService
}

// NewFeeHandler creates a new FeeHandler
func NewFeeHandler(feeService *service.FeeService) *FeeHandler {
	return &FeeHandler{feeService: feeService}
}

// FeeItemRequest represents the create/update fee item request body
type FeeItemRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	SchoolYear string `json:"schoolYear" validate:"required"`
	Month      *int32 `json:"month,omitempty"`
	ClassID    *int32 `json:"classId,omitempty"`
	Amount     string `json:"amount" validate:"required"`
}

// SetActiveRequest represents an activate/deactivate request body
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (r FeeItemRequest) toInput() (service.FeeItemInput, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return service.FeeItemInput{}, err
	}
	return service.FeeItemInput{
		Name:       r.Name,
		SchoolYear: r.SchoolYear,
		Month:      r.Month,
		ClassID:    r.ClassID,
		Amount:     amount,
	}, nil
}

func feeKind(c echo.Context) domain.FeeKind {
	return domain.FeeKind(c.Param("kind"))
}

func feeRef(c echo.Context) (domain.FeeRef, bool, error) {
	id, ok, err := parseID(c, "id")
	if !ok {
		return domain.FeeRef{}, false, err
	}
	ref := domain.FeeRef{Kind: feeKind(c), ID: id}
	if !ref.Kind.IsValid() {
		return domain.FeeRef{}, false, fieldError(c, "kind", domain.ErrInvalidFeeKind)
	}
	return ref, true, nil
}

// List returns the catalog of one fee kind
// @Summary List fee items
// @Tags fee-items
// @Produce json
// @Security BearerAuth
// @Param kind path string true "spp or ppdb"
// @Param schoolYear query string false "School year such as 2024/2025, or current"
// @Param activeOnly query bool false "Only active items"
// @Success 200 {array} domain.FeeItem
// @Failure 400 {object} ProblemDetails
// @Router /fee-items/{kind} [get]
func (h *FeeHandler) List(c echo.Context) error {
	filters := domain.FeeItemFilters{
		SchoolYear: c.QueryParam("schoolYear"),
		ActiveOnly: c.QueryParam("activeOnly") == "true",
	}
	if filters.SchoolYear == "current" {
		filters.SchoolYear = util.SchoolYearOf(time.Now())
	}

	items, err := h.feeService.List(c.Request().Context(), feeKind(c), filters)
	if err != nil {
		return handleServiceError(c, err, "list fee items")
	}
	return c.JSON(http.StatusOK, items)
}

// Get returns one fee item
// @Summary Get fee item
// @Tags fee-items
// @Produce json
// @Security BearerAuth
// @Param kind path string true "spp or ppdb"
// @Param id path int true "Fee item ID"
// @Success 200 {object} domain.FeeItem
// @Failure 404 {object} ProblemDetails
// @Router /fee-items/{kind}/{id} [get]
func (h *FeeHandler) Get(c echo.Context) error {
	ref, ok, err := feeRef(c)
	if !ok {
		return err
	}
	item, err := h.feeService.Get(c.Request().Context(), ref)
	if err != nil {
		return handleServiceError(c, err, "get fee item")
	}
	return c.JSON(http.StatusOK, item)
}

// Create adds a fee item
// @Summary Create fee item
// @Tags fee-items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "spp or ppdb"
// @Param request body FeeItemRequest true "Fee item"
// @Success 201 {object} domain.FeeItem
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /fee-items/{kind} [post]
func (h *FeeHandler) Create(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	var req FeeItemRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	input, err := req.toInput()
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	item, err := h.feeService.Create(c.Request().Context(), actor, feeKind(c), input)
	if err != nil {
		return handleServiceError(c, err, "create fee item")
	}

	log.Info().Str("ref", item.Ref().String()).Str("name", item.Name).Msg("Fee item created")
	return c.JSON(http.StatusCreated, item)
}

// Update changes a fee item
// @Summary Update fee item
// @Description Existing payments keep the amount they were billed at
// @Tags fee-items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "spp or ppdb"
// @Param id path int true "Fee item ID"
// @Param request body FeeItemRequest true "Fee item"
// @Success 200 {object} domain.FeeItem
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /fee-items/{kind}/{id} [put]
func (h *FeeHandler) Update(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	ref, ok, err := feeRef(c)
	if !ok {
		return err
	}

	var req FeeItemRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	input, err := req.toInput()
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	item, err := h.feeService.Update(c.Request().Context(), actor, ref, input)
	if err != nil {
		return handleServiceError(c, err, "update fee item")
	}
	return c.JSON(http.StatusOK, item)
}

// SetActive activates or deactivates a fee item
// @Summary Activate or deactivate fee item
// @Tags fee-items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "spp or ppdb"
// @Param id path int true "Fee item ID"
// @Param request body SetActiveRequest true "Active flag"
// @Success 200 {object} domain.FeeItem
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /fee-items/{kind}/{id}/active [patch]
func (h *FeeHandler) SetActive(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	ref, ok, err := feeRef(c)
	if !ok {
		return err
	}

	var req SetActiveRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	item, err := h.feeService.SetActive(c.Request().Context(), actor, ref, *req.Active)
	if err != nil {
		return handleServiceError(c, err, "update fee item")
	}

	log.Info().Str("ref", ref.String()).Bool("active", item.Active).Msg("Fee item active status changed")
	return c.JSON(http.StatusOK, item)
}
