package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_CreatesPendingPaymentAndLineItem(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	payment, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.True(t, payment.TotalBilled.Equal(decimal.NewFromInt(105000)))
	assert.True(t, payment.TotalPaid.Equal(decimal.NewFromInt(105000)))
	require.Len(t, payment.Items, 1)
	assert.Equal(t, domain.SPPRef(1), payment.Items[0].Target)
	assert.Equal(t, domain.PaymentStatusPending, payment.Items[0].Status)
	assert.True(t, payment.Items[0].BilledAmount.Equal(decimal.NewFromInt(105000)))
	assert.True(t, strings.HasPrefix(payment.ProofRef, "proofs/10/"))
	assert.Contains(t, f.proofRepo.Objects, payment.ProofRef)

	items, err := f.billing.GetBillableItems(ctx, studentActor, testStudentID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.PPDBRef(1), items[0].Ref())

	// Pending does not count as paid
	out, err := f.billing.GetOutstanding(ctx, studentActor, testStudentID)
	require.NoError(t, err)
	assert.True(t, out.Outstanding.Equal(decimal.NewFromInt(1085000)))
}

func TestSubmit_UsesCatalogAmountsNotDeclaredTotal(t *testing.T) {
	f := newBillingFixture()

	payment, err := f.payment.Submit(context.Background(), studentActor, sppSubmission(50000))
	require.NoError(t, err)
	assert.True(t, payment.TotalBilled.Equal(decimal.NewFromInt(105000)))
	assert.True(t, payment.TotalPaid.Equal(decimal.NewFromInt(50000)))
}

func TestSubmit_CollapsesDuplicateRefs(t *testing.T) {
	f := newBillingFixture()
	input := sppSubmission(105000)
	input.Items = []domain.FeeRef{domain.SPPRef(1), domain.SPPRef(1)}

	payment, err := f.payment.Submit(context.Background(), studentActor, input)
	require.NoError(t, err)
	assert.Len(t, payment.Items, 1)
	assert.True(t, payment.TotalBilled.Equal(decimal.NewFromInt(105000)))
}

func TestSubmit_ValidationErrors(t *testing.T) {
	notImage := &domain.ProofFile{Filename: "bukti.jpg", Data: []byte("plain text")}
	bigData := make([]byte, 2*1024*1024+1)

	tests := []struct {
		name   string
		mutate func(in *domain.SubmitPaymentInput)
		want   error
	}{
		{"empty selection", func(in *domain.SubmitPaymentInput) { in.Items = nil }, domain.ErrEmptySelection},
		{"missing proof", func(in *domain.SubmitPaymentInput) { in.Proof = nil }, domain.ErrProofRequired},
		{"negative total", func(in *domain.SubmitPaymentInput) { in.DeclaredTotal = decimal.NewFromInt(-1) }, domain.ErrDeclaredTotalInvalid},
		{"non image proof", func(in *domain.SubmitPaymentInput) { in.Proof = notImage }, ErrProofInvalidImage},
		{"oversized proof", func(in *domain.SubmitPaymentInput) {
			in.Proof = &domain.ProofFile{Filename: "bukti.jpg", Data: bigData}
		}, ErrProofTooLarge},
		{"gif proof", func(in *domain.SubmitPaymentInput) { in.Proof.Filename = "bukti.gif" }, ErrProofInvalidFormat},
		{"unknown item", func(in *domain.SubmitPaymentInput) { in.Items = []domain.FeeRef{domain.SPPRef(99)} }, domain.ErrInvalidFeeRef},
		{"other class item", func(in *domain.SubmitPaymentInput) { in.StudentID = otherStudent; in.Items = []domain.FeeRef{domain.PPDBRef(1)} }, domain.ErrFeeItemOutOfScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillingFixture()
			input := sppSubmission(105000)
			tt.mutate(&input)

			_, err := f.payment.Submit(context.Background(), adminActor, input)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.payments.Payments, "nothing may be persisted")
			assert.Empty(t, f.proofRepo.Objects, "no proof may be stored")
		})
	}
}

func TestSubmit_InactiveItem(t *testing.T) {
	f := newBillingFixture()
	f.feeItems.Items[domain.SPPRef(1)].Active = false

	_, err := f.payment.Submit(context.Background(), studentActor, sppSubmission(105000))
	assert.ErrorIs(t, err, domain.ErrFeeItemInactive)
}

func TestSubmit_InactiveStudent(t *testing.T) {
	f := newBillingFixture()
	f.students.Students[testStudentID].Active = false

	_, err := f.payment.Submit(context.Background(), studentActor, sppSubmission(105000))
	assert.ErrorIs(t, err, domain.ErrStudentInactive)
}

func TestSubmit_ForbiddenForOtherStudent(t *testing.T) {
	f := newBillingFixture()
	input := sppSubmission(105000)
	input.StudentID = otherStudent

	_, err := f.payment.Submit(context.Background(), studentActor, input)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSubmit_AlreadyCovered(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	_, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	_, err = f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	assert.ErrorIs(t, err, domain.ErrFeeItemAlreadyCovered)
	assert.Len(t, f.payments.Payments, 1)
}

func TestSubmit_ConcurrentSubmissionsCreateOnePayment(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, results[idx] = f.payment.Submit(ctx, studentActor, sppSubmission(105000))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrFeeItemAlreadyCovered)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.payments.Payments, 1)
}

func TestSubmit_TransactionFailureDiscardsProof(t *testing.T) {
	f := newBillingFixture()
	f.payments.CreateWithItemsFn = func(p *domain.Payment) (*domain.Payment, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.payment.Submit(context.Background(), studentActor, sppSubmission(105000))
	require.Error(t, err)
	assert.Empty(t, f.proofRepo.Objects)
	assert.Len(t, f.proofRepo.Deleted, 1)
}

func TestSubmit_PublishesAndNotifiesAdmin(t *testing.T) {
	f := newBillingFixture()

	payment, err := f.payment.Submit(context.Background(), studentActor, sppSubmission(105000))
	require.NoError(t, err)

	events := f.publisher.Published()
	require.Len(t, events, 2)
	assert.Equal(t, websocket.AdminChannel, events[0].Channel)
	assert.Equal(t, "payment.created", events[0].Event.Type)
	assert.Equal(t, websocket.StudentChannel(testStudentID), events[1].Channel)

	msgs := f.messenger.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "0811000000", msgs[0].To)
	assert.Contains(t, msgs[0].Message, "Budi")
	assert.NotZero(t, payment.ID)
}

func TestSubmit_NotificationFailureDoesNotFail(t *testing.T) {
	f := newBillingFixture()
	f.messenger.SendFn = func(to, message string) error { return errors.New("gateway down") }

	_, err := f.payment.Submit(context.Background(), studentActor, sppSubmission(105000))
	assert.NoError(t, err)
}

func TestApprove_SettlesPaymentAndItems(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	approved, err := f.payment.Approve(ctx, adminActor, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSettled, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, adminActor.UserID, *approved.ReviewedBy)
	for _, item := range approved.Items {
		assert.Equal(t, domain.PaymentStatusSettled, item.Status)
	}

	out, err := f.billing.GetOutstanding(ctx, studentActor, testStudentID)
	require.NoError(t, err)
	assert.True(t, out.Paid.Equal(decimal.NewFromInt(105000)), "paid %s", out.Paid)
	assert.True(t, out.Outstanding.Equal(decimal.NewFromInt(980000)), "outstanding %s", out.Outstanding)

	msgs := f.messenger.Messages()
	assert.Equal(t, "081234567890", msgs[len(msgs)-1].To)
}

func TestLineItemPaidAmountFollowsDecision(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	input := sppSubmission(1085000)
	input.Items = append(input.Items, domain.PPDBRef(1))
	first, err := f.payment.Submit(ctx, studentActor, input)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	for _, item := range first.Items {
		assert.True(t, item.PaidAmount.IsZero(), "pending item %s paid %s", item.Target, item.PaidAmount)
	}

	rejected, err := f.payment.Reject(ctx, adminActor, first.ID, "")
	require.NoError(t, err)
	for _, item := range rejected.Items {
		assert.True(t, item.PaidAmount.IsZero(), "rejected item %s paid %s", item.Target, item.PaidAmount)
	}

	second, err := f.payment.Submit(ctx, studentActor, input)
	require.NoError(t, err)
	approved, err := f.payment.Approve(ctx, adminActor, second.ID)
	require.NoError(t, err)
	for _, item := range approved.Items {
		assert.True(t, item.PaidAmount.Equal(item.BilledAmount), "settled item %s paid %s", item.Target, item.PaidAmount)
	}

	out, err := f.billing.GetOutstanding(ctx, studentActor, testStudentID)
	require.NoError(t, err)
	assert.True(t, out.Paid.Equal(decimal.NewFromInt(1085000)), "paid %s", out.Paid)
	assert.True(t, out.Outstanding.IsZero(), "outstanding %s", out.Outstanding)
}

func TestApprove_AlreadySettledIsNoop(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)
	first, err := f.payment.Approve(ctx, adminActor, submitted.ID)
	require.NoError(t, err)
	eventsAfterFirst := len(f.publisher.Published())

	second, err := f.payment.Approve(ctx, adminActor, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ApprovedAt, second.ApprovedAt)
	assert.Len(t, f.publisher.Published(), eventsAfterFirst, "no event for a no-op approval")
}

func TestApprove_RejectedPaymentConflict(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)
	_, err = f.payment.Reject(ctx, adminActor, submitted.ID, "bukti tidak jelas")
	require.NoError(t, err)

	_, err = f.payment.Approve(ctx, adminActor, submitted.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotPending)
}

func TestApprove_RequiresAdmin(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	_, err = f.payment.Approve(ctx, studentActor, submitted.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestApprove_NotFound(t *testing.T) {
	f := newBillingFixture()

	_, err := f.payment.Approve(context.Background(), adminActor, 404)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestReject_StoresReasonAndReopensItem(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	rejected, err := f.payment.Reject(ctx, adminActor, submitted.ID, "  bukti tidak jelas ")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, rejected.Status)
	require.NotNil(t, rejected.Note)
	assert.Equal(t, "bukti tidak jelas", *rejected.Note)
	assert.Nil(t, rejected.ApprovedAt)
	for _, item := range rejected.Items {
		assert.Equal(t, domain.PaymentStatusRejected, item.Status)
	}

	items, err := f.billing.GetBillableItems(ctx, studentActor, testStudentID)
	require.NoError(t, err)
	assert.Len(t, items, 2, "rejected SPP item must be billable again")

	// and can be submitted again
	_, err = f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	assert.NoError(t, err)
}

func TestReject_WithoutReason(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	rejected, err := f.payment.Reject(ctx, adminActor, submitted.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, rejected.Status)
	assert.Nil(t, rejected.Note)
	for _, item := range rejected.Items {
		assert.Equal(t, domain.PaymentStatusRejected, item.Status)
	}

	messages := f.messenger.Messages()
	require.NotEmpty(t, messages)
	assert.NotContains(t, messages[len(messages)-1].Message, "Alasan")
}

func TestReject_ReasonTooLong(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	_, err = f.payment.Reject(ctx, adminActor, submitted.ID, strings.Repeat("x", domain.MaxReasonLength+1))
	assert.ErrorIs(t, err, domain.ErrRejectReasonTooLong)

	stored, err := f.payments.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
}

func TestReject_SettledPaymentConflict(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)
	_, err = f.payment.Approve(ctx, adminActor, submitted.ID)
	require.NoError(t, err)

	_, err = f.payment.Reject(ctx, adminActor, submitted.ID, "terlambat")
	assert.ErrorIs(t, err, domain.ErrPaymentNotPending)
}

func TestGetPayment_AccessAndProofURL(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	submitted, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	detail, err := f.payment.Get(ctx, studentActor, submitted.ID)
	require.NoError(t, err)
	assert.Contains(t, detail.ProofURL, submitted.ProofRef)

	other := domain.Actor{Role: domain.RoleStudent, StudentID: otherStudent}
	_, err = f.payment.Get(ctx, other, submitted.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListPayments(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	_, err := f.payment.Submit(ctx, studentActor, sppSubmission(105000))
	require.NoError(t, err)

	mine, err := f.payment.ListForStudent(ctx, studentActor, testStudentID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.payment.List(ctx, studentActor, domain.PaymentFilters{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	pending := domain.PaymentStatusPending
	page, err := f.payment.List(ctx, adminActor, domain.PaymentFilters{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)
	assert.Equal(t, int32(1), page.TotalPages)
}
