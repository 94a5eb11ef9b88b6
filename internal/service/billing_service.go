package service

import (
	"context"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
)

// BillingService reconciles the fee catalog against a student's payments
type BillingService struct {
	studentRepo domain.StudentRepository
	feeItemRepo domain.FeeItemRepository
	paymentRepo domain.PaymentRepository
}

// NewBillingService creates a new BillingService
func NewBillingService(studentRepo domain.StudentRepository, feeItemRepo domain.FeeItemRepository, paymentRepo domain.PaymentRepository) *BillingService {
	return &BillingService{
		studentRepo: studentRepo,
		feeItemRepo: feeItemRepo,
		paymentRepo: paymentRepo,
	}
}

// GetOutstanding returns billed, paid and outstanding totals for a student.
// Only settled line items count as paid.
func (s *BillingService) GetOutstanding(ctx context.Context, actor domain.Actor, studentID int32) (*domain.Outstanding, error) {
	catalog, lines, err := s.load(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	out := domain.ComputeOutstanding(studentID, catalog, lines)
	return &out, nil
}

// GetBillableItems returns the active items that are not yet covered by a
// pending or settled line item. An empty slice means nothing is owed.
func (s *BillingService) GetBillableItems(ctx context.Context, actor domain.Actor, studentID int32) ([]*domain.FeeItem, error) {
	catalog, lines, err := s.load(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	return domain.BillableItems(catalog, lines), nil
}

func (s *BillingService) load(ctx context.Context, actor domain.Actor, studentID int32) ([]*domain.FeeItem, []*domain.PaymentLineItem, error) {
	if !actor.CanAccessStudent(studentID) {
		return nil, nil, domain.ErrForbidden
	}

	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := s.feeItemRepo.ListActiveForClass(ctx, student.ClassID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := s.paymentRepo.ListLineItemsByStudent(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	return catalog, lines, nil
}
