package service

import (
	"github.com/dafibh/sppku/sppku-backend/internal/config"
	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	testClassID   = int32(3)
	otherClassID  = int32(4)
	testStudentID = int32(10)
	otherStudent  = int32(11)
)

func int32Ptr(v int32) *int32 { return &v }

func strPtr(v string) *string { return &v }

var (
	adminActor   = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), Role: domain.RoleAdmin}
	studentActor = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000b1"), Role: domain.RoleStudent, StudentID: testStudentID}
)

// billingFixture wires the mocks around one student with one SPP item (105000)
// and one PPDB item scoped to the student's class (980000)
type billingFixture struct {
	students  *testutil.MockStudentRepository
	classes   *testutil.MockClassRepository
	feeItems  *testutil.MockFeeItemRepository
	payments  *testutil.MockPaymentRepository
	proofRepo *testutil.MockProofRepository
	messenger *testutil.MockMessenger
	publisher *testutil.MockEventPublisher
	billing   *BillingService
	payment   *PaymentService
}

func newBillingFixture() *billingFixture {
	f := &billingFixture{
		students:  testutil.NewMockStudentRepository(),
		classes:   testutil.NewMockClassRepository(),
		feeItems:  testutil.NewMockFeeItemRepository(),
		proofRepo: testutil.NewMockProofRepository(),
		messenger: &testutil.MockMessenger{},
		publisher: &testutil.MockEventPublisher{},
	}
	f.payments = testutil.NewMockPaymentRepository(f.students)

	f.classes.AddClass(&domain.SchoolClass{ID: testClassID, Name: "7A"})
	f.classes.AddClass(&domain.SchoolClass{ID: otherClassID, Name: "8B"})
	f.students.AddStudent(&domain.Student{
		ID: testStudentID, NIS: "2024001", Name: "Budi", ClassID: testClassID, ClassName: "7A",
		ParentPhone: strPtr("081234567890"), Active: true,
	})
	f.students.AddStudent(&domain.Student{
		ID: otherStudent, NIS: "2024002", Name: "Siti", ClassID: otherClassID, ClassName: "8B", Active: true,
	})
	f.feeItems.AddItem(&domain.FeeItem{
		Kind: domain.FeeKindSPP, ID: 1, Name: "SPP Juli", SchoolYear: "2024/2025",
		Month: int32Ptr(7), Amount: decimal.NewFromInt(105000), Active: true,
	})
	f.feeItems.AddItem(&domain.FeeItem{
		Kind: domain.FeeKindPPDB, ID: 1, Name: "Uang Gedung", SchoolYear: "2024/2025",
		ClassID: int32Ptr(testClassID), Amount: decimal.NewFromInt(980000), Active: true,
	})

	proofs := NewProofService(f.proofRepo, config.PaymentConfig{ProofMaxBytes: 2 * 1024 * 1024})
	f.billing = NewBillingService(f.students, f.feeItems, f.payments)
	f.payment = NewPaymentService(f.payments, f.students, f.feeItems, proofs)
	f.payment.SetEventPublisher(f.publisher)
	f.payment.SetMessenger(f.messenger, "0811000000", 0)
	return f
}

func validProof() *domain.ProofFile {
	data, filename := createTestImage(100, 100, "jpeg")
	return &domain.ProofFile{Filename: filename, Data: data}
}

func sppSubmission(declared int64) domain.SubmitPaymentInput {
	return domain.SubmitPaymentInput{
		StudentID:     testStudentID,
		Items:         []domain.FeeRef{domain.SPPRef(1)},
		DeclaredTotal: decimal.NewFromInt(declared),
		Proof:         validProof(),
	}
}
