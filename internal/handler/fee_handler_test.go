package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/labstack/echo/v4"
)

func feeContext(t *testing.T, method, kind, id, body string, actor domain.Actor) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := newTestEcho()
	req := httptest.NewRequest(method, "/api/v1/fee-items/"+kind, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("kind", "id")
		c.SetParamValues(kind, id)
	} else {
		c.SetParamNames("kind")
		c.SetParamValues(kind)
	}
	withActor(c, actor)
	return c, rec
}

func TestCreateFeeItem(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		body      string
		actor     domain.Actor
		wantCode  int
		wantField string
	}{
		{
			name:     "spp month",
			kind:     "spp",
			body:     `{"name": "SPP Agustus", "schoolYear": "2024/2025", "month": 8, "amount": "105000"}`,
			actor:    adminActor,
			wantCode: http.StatusCreated,
		},
		{
			name:     "ppdb for a class",
			kind:     "ppdb",
			body:     `{"name": "Seragam", "schoolYear": "2024/2025", "classId": 3, "amount": "450000"}`,
			actor:    adminActor,
			wantCode: http.StatusCreated,
		},
		{
			name:      "missing name",
			kind:      "spp",
			body:      `{"schoolYear": "2024/2025", "month": 8, "amount": "105000"}`,
			actor:     adminActor,
			wantCode:  http.StatusBadRequest,
			wantField: "name",
		},
		{
			name:      "amount not a number",
			kind:      "spp",
			body:      `{"name": "SPP Agustus", "schoolYear": "2024/2025", "month": 8, "amount": "seratus ribu"}`,
			actor:     adminActor,
			wantCode:  http.StatusBadRequest,
			wantField: "amount",
		},
		{
			name:      "zero amount",
			kind:      "spp",
			body:      `{"name": "SPP Agustus", "schoolYear": "2024/2025", "month": 8, "amount": "0"}`,
			actor:     adminActor,
			wantCode:  http.StatusBadRequest,
			wantField: "amount",
		},
		{
			name:      "spp without month",
			kind:      "spp",
			body:      `{"name": "SPP", "schoolYear": "2024/2025", "amount": "105000"}`,
			actor:     adminActor,
			wantCode:  http.StatusBadRequest,
			wantField: "month",
		},
		{
			name:      "ppdb with month",
			kind:      "ppdb",
			body:      `{"name": "Seragam", "schoolYear": "2024/2025", "month": 7, "amount": "450000"}`,
			actor:     adminActor,
			wantCode:  http.StatusBadRequest,
			wantField: "month",
		},
		{
			name:      "unknown kind",
			kind:      "donasi",
			body:      `{"name": "Donasi", "schoolYear": "2024/2025", "amount": "50000"}`,
			actor:     adminActor,
			wantCode:  http.StatusBadRequest,
			wantField: "kind",
		},
		{
			name:      "bad school year",
			kind:      "spp",
			body:      `{"name": "SPP Agustus", "schoolYear": "2024", "month": 8, "amount": "105000"}`,
			actor:     adminActor,
			wantCode:  http.StatusBadRequest,
			wantField: "schoolYear",
		},
		{
			name:     "unknown class",
			kind:     "ppdb",
			body:     `{"name": "Seragam", "schoolYear": "2024/2025", "classId": 99, "amount": "450000"}`,
			actor:    adminActor,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "student",
			kind:     "spp",
			body:     `{"name": "SPP Agustus", "schoolYear": "2024/2025", "month": 8, "amount": "105000"}`,
			actor:    studentActor,
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			c, rec := feeContext(t, http.MethodPost, tt.kind, "", tt.body, tt.actor)

			if err := f.fee.Create(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantField != "" {
				problem := decodeProblem(t, rec)
				if len(problem.Errors) == 0 || problem.Errors[0].Field != tt.wantField {
					t.Errorf("Expected error on %q, got %+v", tt.wantField, problem.Errors)
				}
			}
			if tt.wantCode == http.StatusCreated {
				var item domain.FeeItem
				if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if string(item.Kind) != tt.kind || !item.Active {
					t.Errorf("Expected an active %s item, got %+v", tt.kind, item)
				}
			}
		})
	}
}

func TestUpdateFeeItem_KeepsBilledAmounts(t *testing.T) {
	f := newHandlerFixture()
	submitted := decodePayment(t, f.submit(t, studentActor, "105000", "spp:1"))

	c, rec := feeContext(t, http.MethodPut, "spp", "1",
		`{"name": "SPP Juli", "schoolYear": "2024/2025", "month": 7, "amount": "125000"}`, adminActor)
	if err := f.fee.Update(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := f.payments.GetByID(c.Request().Context(), submitted.ID)
	if err != nil {
		t.Fatalf("Expected payment, got %v", err)
	}
	if stored.Items[0].BilledAmount.String() != "105000" {
		t.Errorf("Expected line item to keep 105000, got %s", stored.Items[0].BilledAmount)
	}
}

func TestSetFeeItemActive(t *testing.T) {
	f := newHandlerFixture()

	c, rec := feeContext(t, http.MethodPatch, "ppdb", "1", `{}`, adminActor)
	if err := f.fee.SetActive(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without active flag, got %d", rec.Code)
	}

	c, rec = feeContext(t, http.MethodPatch, "ppdb", "1", `{"active": false}`, adminActor)
	if err := f.fee.SetActive(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// an inactive item is no longer billable
	c, rec = idContext(t, http.MethodGet, testStudentID, "", studentActor)
	if err := f.billing.GetBillableItems(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var items []domain.FeeItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	for _, item := range items {
		if item.Ref() == domain.PPDBRef(1) {
			t.Error("Expected ppdb:1 to be excluded once deactivated")
		}
	}
}

func TestGetFeeItem(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		id       string
		wantCode int
	}{
		{"found", "spp", "1", http.StatusOK},
		{"missing", "spp", "9", http.StatusNotFound},
		{"unknown kind", "uang", "1", http.StatusBadRequest},
		{"bad id", "ppdb", "abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			c, rec := feeContext(t, http.MethodGet, tt.kind, tt.id, "", studentActor)
			if err := f.fee.Get(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestListFeeItems(t *testing.T) {
	f := newHandlerFixture()

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fee-items/spp?schoolYear=2024/2025&activeOnly=true", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("kind")
	c.SetParamValues("spp")
	withActor(c, studentActor)

	if err := f.fee.List(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var items []domain.FeeItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(items) != 1 || items[0].Kind != domain.FeeKindSPP {
		t.Errorf("Expected the single SPP item, got %+v", items)
	}
}
