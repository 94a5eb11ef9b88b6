package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/notify"
	"github.com/dafibh/sppku/sppku-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const defaultNotifyTimeout = 10 * time.Second

// PaymentDetail is a payment with its proof resolved to a download URL
type PaymentDetail struct {
	*domain.Payment
	ProofURL string `json:"proofUrl,omitempty"`
}

// PaymentService handles payment submission and the approval workflow
type PaymentService struct {
	paymentRepo    domain.PaymentRepository
	studentRepo    domain.StudentRepository
	feeItemRepo    domain.FeeItemRepository
	proofs         *ProofService
	eventPublisher websocket.EventPublisher
	messenger      notify.Messenger
	adminPhone     string
	notifyTimeout  time.Duration
	now            func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(paymentRepo domain.PaymentRepository, studentRepo domain.StudentRepository, feeItemRepo domain.FeeItemRepository, proofs *ProofService) *PaymentService {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		studentRepo:   studentRepo,
		feeItemRepo:   feeItemRepo,
		proofs:        proofs,
		notifyTimeout: defaultNotifyTimeout,
		now:           time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMessenger sets the messenger used for WhatsApp notices.
// adminPhone receives new-submission notices; it may be empty.
func (s *PaymentService) SetMessenger(messenger notify.Messenger, adminPhone string, timeout time.Duration) {
	s.messenger = messenger
	s.adminPhone = adminPhone
	if timeout > 0 {
		s.notifyTimeout = timeout
	}
}

func (s *PaymentService) publishEvent(channel string, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(channel, event)
	}
}

// notify sends a message and logs failures. It never fails the caller.
func (s *PaymentService) notify(ctx context.Context, paymentID int32, to, message string) {
	if s.messenger == nil || to == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.messenger.Send(ctx, to, message); err != nil {
		log.Warn().
			Err(err).
			Int32("payment_id", paymentID).
			Msg("Failed to send payment notification")
	}
}

// Submit records a new pending payment for the selected fee items.
// Item amounts always come from the catalog; the declared total is kept as paid total.
func (s *PaymentService) Submit(ctx context.Context, actor domain.Actor, input domain.SubmitPaymentInput) (*domain.Payment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if !actor.CanAccessStudent(input.StudentID) {
		return nil, domain.ErrForbidden
	}

	student, err := s.studentRepo.GetByID(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, domain.ErrStudentInactive
	}

	proofImage, err := s.proofs.Decode(input.Proof.Data, input.Proof.Filename)
	if err != nil {
		return nil, err
	}

	refs := dedupeRefs(input.Items)
	items, err := s.resolveItems(ctx, student, refs)
	if err != nil {
		return nil, err
	}

	lines, err := s.paymentRepo.ListLineItemsByStudent(ctx, student.ID, domain.PaymentStatusPending, domain.PaymentStatusSettled)
	if err != nil {
		return nil, err
	}
	covered := domain.CoveredRefs(lines)
	for _, ref := range refs {
		if covered[ref] {
			return nil, domain.ErrFeeItemAlreadyCovered
		}
	}

	totalBilled := decimal.Zero
	lineItems := make([]*domain.PaymentLineItem, len(items))
	for i, item := range items {
		totalBilled = totalBilled.Add(item.Amount)
		lineItems[i] = &domain.PaymentLineItem{
			StudentID:    student.ID,
			Target:       item.Ref(),
			ItemName:     item.Name,
			BilledAmount: item.Amount,
			PaidAmount:   decimal.Zero,
			Status:       domain.PaymentStatusPending,
		}
	}

	proofKey, err := s.proofs.Store(ctx, student.ID, proofImage)
	if err != nil {
		return nil, err
	}

	created, err := s.paymentRepo.CreateWithItems(ctx, &domain.Payment{
		StudentID:   student.ID,
		TotalBilled: totalBilled,
		TotalPaid:   input.DeclaredTotal,
		Status:      domain.PaymentStatusPending,
		SubmittedAt: s.now().UTC(),
		ProofRef:    proofKey,
		Items:       lineItems,
	})
	if err != nil {
		s.proofs.Discard(ctx, proofKey)
		if errors.Is(err, domain.ErrFeeItemAlreadyCovered) || errors.Is(err, domain.ErrStudentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	log.Info().
		Int32("payment_id", created.ID).
		Int32("student_id", student.ID).
		Str("total_billed", created.TotalBilled.String()).
		Int("items", len(created.Items)).
		Msg("Payment submitted")

	s.publishEvent(websocket.AdminChannel, websocket.PaymentCreated(created))
	s.publishEvent(websocket.StudentChannel(student.ID), websocket.PaymentCreated(created))
	s.notify(ctx, created.ID, s.adminPhone, notify.SubmittedMessage(created))

	return created, nil
}

// resolveItems loads the authoritative catalog entries for refs, in the order given
func (s *PaymentService) resolveItems(ctx context.Context, student *domain.Student, refs []domain.FeeRef) ([]*domain.FeeItem, error) {
	found, err := s.feeItemRepo.GetByRefs(ctx, refs)
	if err != nil {
		return nil, err
	}
	byRef := make(map[domain.FeeRef]*domain.FeeItem, len(found))
	for _, item := range found {
		byRef[item.Ref()] = item
	}

	items := make([]*domain.FeeItem, 0, len(refs))
	for _, ref := range refs {
		item, ok := byRef[ref]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidFeeRef, ref)
		}
		if !item.Active {
			return nil, fmt.Errorf("%w: %s", domain.ErrFeeItemInactive, ref)
		}
		if !item.AppliesToClass(student.ClassID) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFeeItemOutOfScope, ref)
		}
		items = append(items, item)
	}
	return items, nil
}

func dedupeRefs(refs []domain.FeeRef) []domain.FeeRef {
	seen := make(map[domain.FeeRef]bool, len(refs))
	out := make([]domain.FeeRef, 0, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// Approve settles a pending payment and all of its line items.
// Approving an already settled payment returns it unchanged.
func (s *PaymentService) Approve(ctx context.Context, actor domain.Actor, id int32) (*domain.Payment, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	payment, err := s.paymentRepo.Transition(ctx, id, domain.PaymentTransition{
		To:         domain.PaymentStatusSettled,
		At:         s.now().UTC(),
		ReviewedBy: actor.UserID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotPending) {
			existing, getErr := s.paymentRepo.GetByID(ctx, id)
			if getErr == nil && existing.Status == domain.PaymentStatusSettled {
				return existing, nil
			}
		}
		return nil, err
	}

	log.Info().
		Int32("payment_id", payment.ID).
		Str("reviewed_by", actor.UserID.String()).
		Msg("Payment approved")

	s.publishEvent(websocket.AdminChannel, websocket.PaymentApproved(payment))
	s.publishEvent(websocket.StudentChannel(payment.StudentID), websocket.PaymentApproved(payment))
	s.notify(ctx, payment.ID, s.parentPhone(ctx, payment.StudentID), notify.ApprovedMessage(payment))

	return payment, nil
}

// Reject marks a pending payment and its line items as rejected. A blank reason
// leaves the note empty. The items become billable again.
func (s *PaymentService) Reject(ctx context.Context, actor domain.Actor, id int32, reason string) (*domain.Payment, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	reason = strings.TrimSpace(reason)
	if err := domain.ValidateRejectReason(reason); err != nil {
		return nil, err
	}
	var note *string
	if reason != "" {
		note = &reason
	}

	payment, err := s.paymentRepo.Transition(ctx, id, domain.PaymentTransition{
		To:         domain.PaymentStatusRejected,
		At:         s.now().UTC(),
		Note:       note,
		ReviewedBy: actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("payment_id", payment.ID).
		Str("reviewed_by", actor.UserID.String()).
		Msg("Payment rejected")

	s.publishEvent(websocket.AdminChannel, websocket.PaymentRejected(payment))
	s.publishEvent(websocket.StudentChannel(payment.StudentID), websocket.PaymentRejected(payment))
	s.notify(ctx, payment.ID, s.parentPhone(ctx, payment.StudentID), notify.RejectedMessage(payment))

	return payment, nil
}

func (s *PaymentService) parentPhone(ctx context.Context, studentID int32) string {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil || student.ParentPhone == nil {
		return ""
	}
	return *student.ParentPhone
}

// Get returns a payment with its line items and a temporary proof URL
func (s *PaymentService) Get(ctx context.Context, actor domain.Actor, id int32) (*PaymentDetail, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessStudent(payment.StudentID) {
		return nil, domain.ErrForbidden
	}

	detail := &PaymentDetail{Payment: payment}
	if s.proofs.IsEnabled() {
		url, err := s.proofs.URL(ctx, payment.ProofRef)
		if err != nil {
			log.Warn().Err(err).Int32("payment_id", id).Msg("Failed to resolve proof URL")
		}
		detail.ProofURL = url
	}
	return detail, nil
}

// ListForStudent returns every payment of a student, newest first
func (s *PaymentService) ListForStudent(ctx context.Context, actor domain.Actor, studentID int32) ([]*domain.Payment, error) {
	if !actor.CanAccessStudent(studentID) {
		return nil, domain.ErrForbidden
	}
	if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByStudent(ctx, studentID)
}

// List returns payments across students for review. Admin only.
func (s *PaymentService) List(ctx context.Context, actor domain.Actor, filters domain.PaymentFilters) (*domain.PaginatedPayments, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.paymentRepo.List(ctx, filters)
}
