package handler

import (
	"github.com/dafibh/sppku/sppku-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler served under /api/v1
type Handlers struct {
	Auth    *AuthHandler
	Billing *BillingHandler
	Payment *PaymentHandler
	Fee     *FeeHandler
	Student *StudentHandler
	Report  *ReportHandler
}

// RegisterRoutes sets up all API routes. submitLimit guards payment submission.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, submitLimit *middleware.RateLimiter, h Handlers) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	admin := middleware.RequireAdmin()

	api.GET("/me", h.Auth.Me)

	// Users (admin provisioning)
	users := api.Group("/users", admin)
	users.POST("", h.Auth.CreateUser)
	users.GET("", h.Auth.ListUsers)

	// Classes
	api.GET("/classes", h.Student.ListClasses)
	api.POST("/classes", h.Student.CreateClass, admin)

	// Students
	students := api.Group("/students")
	students.POST("", h.Student.Create, admin)
	students.GET("", h.Student.List, admin)
	students.GET("/:id", h.Student.Get)
	students.PUT("/:id", h.Student.Update, admin)
	students.PATCH("/:id/active", h.Student.SetActive, admin)
	students.GET("/:id/outstanding", h.Billing.GetOutstanding)
	students.GET("/:id/billable-items", h.Billing.GetBillableItems)
	students.GET("/:id/payments", h.Payment.ListForStudent)

	// Fee catalog
	fees := api.Group("/fee-items")
	fees.GET("/:kind", h.Fee.List)
	fees.GET("/:kind/:id", h.Fee.Get)
	fees.POST("/:kind", h.Fee.Create, admin)
	fees.PUT("/:kind/:id", h.Fee.Update, admin)
	fees.PATCH("/:kind/:id/active", h.Fee.SetActive, admin)

	// Payments
	payments := api.Group("/payments")
	payments.POST("", h.Payment.Submit, middleware.RateLimitMiddleware(submitLimit))
	payments.GET("", h.Payment.List, admin)
	payments.GET("/:id", h.Payment.Get)
	payments.POST("/:id/approve", h.Payment.Approve, admin)
	payments.POST("/:id/reject", h.Payment.Reject, admin)

	// Reports and dashboard
	reports := api.Group("/reports", admin)
	reports.GET("/payments", h.Report.PaymentReport)
	reports.GET("/arrears", h.Report.ArrearsReport)
	api.GET("/dashboard/summary", h.Report.Summary, admin)
}
