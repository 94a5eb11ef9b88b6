package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func int32Ptr(v int32) *int32 { return &v }

func sppItem(id int32, amount int64) *FeeItem {
	return &FeeItem{Kind: FeeKindSPP, ID: id, Name: "SPP", SchoolYear: "2024/2025", Month: int32Ptr(7), Amount: decimal.NewFromInt(amount), Active: true}
}

func ppdbItem(id int32, amount int64, classID *int32) *FeeItem {
	return &FeeItem{Kind: FeeKindPPDB, ID: id, Name: "PPDB", SchoolYear: "2024/2025", ClassID: classID, Amount: decimal.NewFromInt(amount), Active: true}
}

func line(ref FeeRef, amount int64, status PaymentStatus) *PaymentLineItem {
	return &PaymentLineItem{Target: ref, BilledAmount: decimal.NewFromInt(amount), PaidAmount: decimal.NewFromInt(amount), Status: status}
}

func TestComputeOutstanding_NoFeeItems(t *testing.T) {
	out := ComputeOutstanding(1, nil, nil)

	if !out.Billed.IsZero() || !out.Paid.IsZero() || !out.Outstanding.IsZero() {
		t.Errorf("expected 0/0/0, got %s/%s/%s", out.Billed, out.Paid, out.Outstanding)
	}
}

func TestComputeOutstanding_Scenario(t *testing.T) {
	catalog := []*FeeItem{sppItem(1, 105000), ppdbItem(2, 980000, int32Ptr(3))}

	tests := []struct {
		name        string
		lines       []*PaymentLineItem
		paid        int64
		outstanding int64
	}{
		{"no payments", nil, 0, 1085000},
		{"pending does not count", []*PaymentLineItem{line(SPPRef(1), 105000, PaymentStatusPending)}, 0, 1085000},
		{"settled SPP counts", []*PaymentLineItem{line(SPPRef(1), 105000, PaymentStatusSettled)}, 105000, 980000},
		{"rejected does not count", []*PaymentLineItem{line(PPDBRef(2), 980000, PaymentStatusRejected)}, 0, 1085000},
		{"everything settled", []*PaymentLineItem{
			line(SPPRef(1), 105000, PaymentStatusSettled),
			line(PPDBRef(2), 980000, PaymentStatusSettled),
		}, 1085000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ComputeOutstanding(7, catalog, tt.lines)

			if !out.Billed.Equal(decimal.NewFromInt(1085000)) {
				t.Errorf("billed = %s, want 1085000", out.Billed)
			}
			if !out.Paid.Equal(decimal.NewFromInt(tt.paid)) {
				t.Errorf("paid = %s, want %d", out.Paid, tt.paid)
			}
			if !out.Outstanding.Equal(decimal.NewFromInt(tt.outstanding)) {
				t.Errorf("outstanding = %s, want %d", out.Outstanding, tt.outstanding)
			}
			if out.StudentID != 7 {
				t.Errorf("student id = %d, want 7", out.StudentID)
			}
		})
	}
}

func TestComputeOutstanding_NeverNegative(t *testing.T) {
	catalog := []*FeeItem{sppItem(1, 100000)}
	// Settled payment for an item that has since been deactivated still counts as paid
	lines := []*PaymentLineItem{
		line(SPPRef(1), 100000, PaymentStatusSettled),
		line(SPPRef(9), 250000, PaymentStatusSettled),
	}

	out := ComputeOutstanding(1, catalog, lines)

	if !out.Outstanding.IsZero() {
		t.Errorf("expected outstanding 0, got %s", out.Outstanding)
	}
	if !out.Paid.Equal(decimal.NewFromInt(350000)) {
		t.Errorf("expected paid 350000, got %s", out.Paid)
	}
}

func TestComputeOutstanding_DecimalPrecision(t *testing.T) {
	catalog := []*FeeItem{}
	for i := int32(1); i <= 10; i++ {
		item := sppItem(i, 0)
		item.Amount = decimal.RequireFromString("0.10")
		catalog = append(catalog, item)
	}

	out := ComputeOutstanding(1, catalog, nil)

	if !out.Billed.Equal(decimal.RequireFromString("1.00")) {
		t.Errorf("expected billed exactly 1.00, got %s", out.Billed)
	}
}

func TestComputeOutstanding_SplitByKind(t *testing.T) {
	catalog := []*FeeItem{sppItem(1, 100), sppItem(2, 100), ppdbItem(1, 500, nil)}
	lines := []*PaymentLineItem{line(SPPRef(1), 100, PaymentStatusSettled), line(PPDBRef(1), 500, PaymentStatusSettled)}

	out := ComputeOutstanding(1, catalog, lines)

	if !out.BilledSPP.Equal(decimal.NewFromInt(200)) || !out.BilledPPDB.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected billed split %s/%s", out.BilledSPP, out.BilledPPDB)
	}
	if !out.PaidSPP.Equal(decimal.NewFromInt(100)) || !out.PaidPPDB.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected paid split %s/%s", out.PaidSPP, out.PaidPPDB)
	}
}

func TestBillableItems(t *testing.T) {
	inactive := sppItem(3, 105000)
	inactive.Active = false
	catalog := []*FeeItem{sppItem(1, 105000), sppItem(2, 105000), inactive, ppdbItem(1, 980000, nil)}
	lines := []*PaymentLineItem{
		line(SPPRef(1), 105000, PaymentStatusPending),
		line(SPPRef(2), 105000, PaymentStatusRejected),
		line(PPDBRef(1), 980000, PaymentStatusSettled),
	}

	billable := BillableItems(catalog, lines)

	if len(billable) != 1 {
		t.Fatalf("expected 1 billable item, got %d", len(billable))
	}
	if billable[0].Ref() != SPPRef(2) {
		t.Errorf("expected spp:2 to be billable again after rejection, got %s", billable[0].Ref())
	}
}

func TestBillableItems_EmptyIsNotNil(t *testing.T) {
	billable := BillableItems(nil, nil)
	if billable == nil {
		t.Error("expected empty slice, got nil")
	}
}
