package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotPending    = errors.New("payment is no longer pending")
	ErrEmptySelection       = errors.New("at least one fee item must be selected")
	ErrDeclaredTotalInvalid = errors.New("declared total must be a non-negative amount")
	ErrProofRequired        = errors.New("proof of payment is required")
	ErrRejectReasonTooLong = errors.New("rejection reason exceeds maximum length")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

// PaymentStatus is the lifecycle state of a payment and of its line items
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	// PaymentStatusSettled is an approved, fully paid submission
	PaymentStatusSettled  PaymentStatus = "lunas"
	// PaymentStatusRejected is a submission refused by an admin
	PaymentStatusRejected PaymentStatus = "ditolak"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSettled, PaymentStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSettled || s == PaymentStatusRejected
}

// CoversItem reports whether a line item in this status blocks the fee item from being billed again
func (s PaymentStatus) CoversItem() bool {
	return s == PaymentStatusPending || s == PaymentStatusSettled
}

// ParsePaymentStatus accepts the stored values plus the english aliases
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch s {
	case "pending":
		return PaymentStatusPending, nil
	case "lunas", "settled":
		return PaymentStatusSettled, nil
	case "ditolak", "rejected":
		return PaymentStatusRejected, nil
	}
	return "", ErrInvalidPaymentStatus
}

// Payment is one submission by a student covering one or more fee items
type Payment struct {
	ID          int32              `json:"id"`
	StudentID   int32              `json:"studentId"`
	StudentName string             `json:"studentName,omitempty"`
	ClassName   string             `json:"className,omitempty"`
	TotalBilled decimal.Decimal    `json:"totalBilled"`
	TotalPaid   decimal.Decimal    `json:"totalPaid"`
	Status      PaymentStatus      `json:"status"`
	SubmittedAt time.Time          `json:"submittedAt"`
	ApprovedAt  *time.Time         `json:"approvedAt,omitempty"`
	ProofRef    string             `json:"proofRef"`
	Note        *string            `json:"note,omitempty"`
	ReviewedBy  *uuid.UUID         `json:"reviewedBy,omitempty"`
	Items       []*PaymentLineItem `json:"items"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Refs returns the fee references covered by the payment
func (p *Payment) Refs() []FeeRef {
	refs := make([]FeeRef, len(p.Items))
	for i, item := range p.Items {
		refs[i] = item.Target
	}
	return refs
}

// PaymentLineItem links a payment to exactly one fee item
type PaymentLineItem struct {
	ID           int32           `json:"id"`
	PaymentID    int32           `json:"paymentId"`
	StudentID    int32           `json:"studentId"`
	Target       FeeRef          `json:"target"`
	ItemName     string          `json:"itemName,omitempty"`
	BilledAmount decimal.Decimal `json:"billedAmount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	Status       PaymentStatus   `json:"status"`
}

// ProofFile is an uploaded proof-of-payment image
type ProofFile struct {
	Filename string
	Data     []byte
}

// SubmitPaymentInput holds a student's payment submission
type SubmitPaymentInput struct {
	StudentID     int32
	Items         []FeeRef
	DeclaredTotal decimal.Decimal
	Proof         *ProofFile
}

func (in *SubmitPaymentInput) Validate() error {
	if len(in.Items) == 0 {
		return ErrEmptySelection
	}
	for _, ref := range in.Items {
		if err := ref.Validate(); err != nil {
			return err
		}
	}
	if in.DeclaredTotal.IsNegative() {
		return ErrDeclaredTotalInvalid
	}
	if in.Proof == nil || len(in.Proof.Data) == 0 {
		return ErrProofRequired
	}
	return nil
}

// ValidateRejectReason checks an admin's optional rejection reason
func ValidateRejectReason(reason string) error {
	if len(reason) > MaxReasonLength {
		return ErrRejectReasonTooLong
	}
	return nil
}

// PaymentTransition describes an admin decision on a pending payment
type PaymentTransition struct {
	To         PaymentStatus
	At         time.Time
	Note       *string
	ReviewedBy uuid.UUID
}

// Validation constants for pagination
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaymentFilters holds optional filters for the admin payment listing
type PaymentFilters struct {
	Status    *PaymentStatus
	StudentID *int32
	ClassID   *int32
	From      *time.Time
	To        *time.Time
	Page      int32
	PageSize  int32
}

// PaginatedPayments is one page of payments
type PaginatedPayments struct {
	Data       []*Payment `json:"data"`
	Page       int32      `json:"page"`
	PageSize   int32      `json:"pageSize"`
	TotalItems int64      `json:"totalItems"`
	TotalPages int32      `json:"totalPages"`
}

// PaymentRepository defines the interface for payment persistence operations
type PaymentRepository interface {
	// CreateWithItems inserts the payment and its line items in one transaction.
	// The student row is locked for the duration and ErrFeeItemAlreadyCovered is
	// returned if any item is already referenced by a pending or settled line item.
	CreateWithItems(ctx context.Context, payment *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int32) (*Payment, error)
	ListByStudent(ctx context.Context, studentID int32) ([]*Payment, error)
	List(ctx context.Context, filters PaymentFilters) (*PaginatedPayments, error)
	ListLineItemsByStudent(ctx context.Context, studentID int32, statuses ...PaymentStatus) ([]*PaymentLineItem, error)
	ListLineItems(ctx context.Context, statuses ...PaymentStatus) ([]*PaymentLineItem, error)
	// Transition moves a pending payment and every one of its line items to t.To.
	// ErrPaymentNotPending is returned when the payment is not pending.
	Transition(ctx context.Context, id int32, t PaymentTransition) (*Payment, error)
	CountByStatus(ctx context.Context, status PaymentStatus) (int64, error)
	SumSettledBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}
