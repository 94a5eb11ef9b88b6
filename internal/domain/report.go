package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentReportRow is one line of the payment report export
type PaymentReportRow struct {
	PaymentID   int32
	SubmittedAt time.Time
	ApprovedAt  *time.Time
	NIS         string
	StudentName string
	ClassName   string
	Items       string
	TotalBilled decimal.Decimal
	TotalPaid   decimal.Decimal
	Status      PaymentStatus
	Note        string
}

// ArrearsReportRow is one line of the arrears (tunggakan) report export
type ArrearsReportRow struct {
	StudentID   int32
	NIS         string
	StudentName string
	ClassName   string
	Billed      decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}

// DashboardSummary contains the admin dashboard metrics
type DashboardSummary struct {
	PendingCount        int64           `json:"pendingCount"`
	SettledThisMonth    decimal.Decimal `json:"settledThisMonth"`
	OutstandingTotal    decimal.Decimal `json:"outstandingTotal"`
	ActiveStudentCount  int             `json:"activeStudentCount"`
	StudentsWithArrears int             `json:"studentsWithArrears"`
}
