package handler

import (
	"fmt"
	"net/http"

	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// ReportHandler handles report exports and the dashboard summary
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func sendDocument(c echo.Context, doc *service.Document) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Blob(http.StatusOK, doc.ContentType, doc.Data)
}

// PaymentReport exports payments
// @Summary Export payment report
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Security BearerAuth
// @Param format query string false "xlsx (default) or pdf"
// @Param status query string false "pending, lunas or ditolak"
// @Param classId query int false "Class ID"
// @Param from query string false "Submitted on or after (YYYY-MM-DD)"
// @Param to query string false "Submitted before (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /reports/payments [get]
func (h *ReportHandler) PaymentReport(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	filters, ok, err := parsePaymentFilters(c)
	if !ok {
		return err
	}

	doc, err := h.reportService.RenderPayments(c.Request().Context(), actor, filters, c.QueryParam("format"))
	if err != nil {
		return handleServiceError(c, err, "export payment report")
	}
	return sendDocument(c, doc)
}

// ArrearsReport exports outstanding balances of active students
// @Summary Export arrears report
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Security BearerAuth
// @Param format query string false "xlsx (default) or pdf"
// @Param classId query int false "Class ID"
// @Success 200 {file} file
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /reports/arrears [get]
func (h *ReportHandler) ArrearsReport(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	classID, err := parseOptionalInt32(c.QueryParam("classId"))
	if err != nil {
		return NewValidationError(c, "Invalid query parameters", []ValidationError{
			{Field: "classId", Message: "Must be an integer"},
		})
	}

	doc, err := h.reportService.RenderArrears(c.Request().Context(), actor, classID, c.QueryParam("format"))
	if err != nil {
		return handleServiceError(c, err, "export arrears report")
	}
	return sendDocument(c, doc)
}

// Summary returns the admin dashboard figures
// @Summary Get dashboard summary
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.DashboardSummary
// @Failure 403 {object} ProblemDetails
// @Router /dashboard/summary [get]
func (h *ReportHandler) Summary(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	summary, err := h.reportService.Summary(c.Request().Context(), actor)
	if err != nil {
		return handleServiceError(c, err, "get dashboard summary")
	}
	return c.JSON(http.StatusOK, summary)
}
