package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/sppku/sppku-backend/internal/config"
	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/middleware"
	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/dafibh/sppku/sppku-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	testClassID   = int32(3)
	testStudentID = int32(10)
	otherStudent  = int32(11)
)

var (
	adminActor   = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), Role: domain.RoleAdmin}
	studentActor = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000b1"), Role: domain.RoleStudent, StudentID: testStudentID}
)

func int32Ptr(v int32) *int32 { return &v }

// withActor attaches an authenticated actor the way the auth middleware does
func withActor(c echo.Context, actor domain.Actor) {
	c.SetRequest(c.Request().WithContext(middleware.WithActor(c.Request().Context(), actor)))
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 0, G: 128, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart POST with the given fields and an optional proof file
func multipartRequest(t *testing.T, target string, fields map[string][]string, proof []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, values := range fields {
		for _, v := range values {
			if err := w.WriteField(name, v); err != nil {
				t.Fatalf("Failed to write field: %v", err)
			}
		}
	}
	if proof != nil {
		part, err := w.CreateFormFile("proof", "bukti.jpg")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(proof)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem: %v", err)
	}
	return problem
}

// handlerFixture wires real services over the in-memory repositories: two students
// in different classes, one SPP item (105000) and one PPDB item for class 3 (980000)
type handlerFixture struct {
	students  *testutil.MockStudentRepository
	classes   *testutil.MockClassRepository
	feeItems  *testutil.MockFeeItemRepository
	payments  *testutil.MockPaymentRepository
	proofRepo *testutil.MockProofRepository
	payment   *PaymentHandler
	billing   *BillingHandler
	fee       *FeeHandler
	student   *StudentHandler
	report    *ReportHandler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		students:  testutil.NewMockStudentRepository(),
		classes:   testutil.NewMockClassRepository(),
		feeItems:  testutil.NewMockFeeItemRepository(),
		proofRepo: testutil.NewMockProofRepository(),
	}
	f.payments = testutil.NewMockPaymentRepository(f.students)

	f.classes.AddClass(&domain.SchoolClass{ID: testClassID, Name: "7A"})
	f.classes.AddClass(&domain.SchoolClass{ID: 4, Name: "8B"})
	f.students.AddStudent(&domain.Student{ID: testStudentID, NIS: "2024001", Name: "Budi", ClassID: testClassID, ClassName: "7A", Active: true})
	f.students.AddStudent(&domain.Student{ID: otherStudent, NIS: "2024002", Name: "Siti", ClassID: 4, ClassName: "8B", Active: true})
	f.feeItems.AddItem(&domain.FeeItem{
		Kind: domain.FeeKindSPP, ID: 1, Name: "SPP Juli", SchoolYear: "2024/2025",
		Month: int32Ptr(7), Amount: decimal.NewFromInt(105000), Active: true,
	})
	f.feeItems.AddItem(&domain.FeeItem{
		Kind: domain.FeeKindPPDB, ID: 1, Name: "Uang Gedung", SchoolYear: "2024/2025",
		ClassID: int32Ptr(testClassID), Amount: decimal.NewFromInt(980000), Active: true,
	})

	cfg := config.PaymentConfig{ProofMaxBytes: 2 * 1024 * 1024}
	proofs := service.NewProofService(f.proofRepo, cfg)
	paymentService := service.NewPaymentService(f.payments, f.students, f.feeItems, proofs)

	f.payment = NewPaymentHandler(paymentService, cfg.ProofMaxBytes)
	f.billing = NewBillingHandler(service.NewBillingService(f.students, f.feeItems, f.payments))
	f.fee = NewFeeHandler(service.NewFeeService(f.feeItems, f.classes))
	f.student = NewStudentHandler(service.NewStudentService(f.students, f.classes), service.NewClassService(f.classes))
	f.report = NewReportHandler(service.NewReportService(f.payments, f.students, f.feeItems))
	return f
}

// submit posts a payment for the given refs and returns the recorder
func (f *handlerFixture) submit(t *testing.T, actor domain.Actor, declared string, refs ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := newTestEcho()
	req := multipartRequest(t, "/api/v1/payments", map[string][]string{
		"items[]":       refs,
		"declaredTotal": {declared},
	}, testJPEG(t))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withActor(c, actor)

	if err := f.payment.Submit(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return rec
}
