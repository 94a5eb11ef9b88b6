package domain

import "github.com/shopspring/decimal"

// Outstanding is the reconciliation result for one student
type Outstanding struct {
	StudentID   int32           `json:"studentId"`
	Billed      decimal.Decimal `json:"billed"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	BilledSPP   decimal.Decimal `json:"billedSpp"`
	BilledPPDB  decimal.Decimal `json:"billedPpdb"`
	PaidSPP     decimal.Decimal `json:"paidSpp"`
	PaidPPDB    decimal.Decimal `json:"paidPpdb"`
}

// ComputeOutstanding reconciles the active catalog applicable to a student against the
// student's line items. Only settled line items count as paid; the result is never negative.
func ComputeOutstanding(studentID int32, catalog []*FeeItem, lines []*PaymentLineItem) Outstanding {
	out := Outstanding{
		StudentID:  studentID,
		BilledSPP:  decimal.Zero,
		BilledPPDB: decimal.Zero,
		PaidSPP:    decimal.Zero,
		PaidPPDB:   decimal.Zero,
	}

	for _, item := range catalog {
		if !item.Active {
			continue
		}
		switch item.Kind {
		case FeeKindSPP:
			out.BilledSPP = out.BilledSPP.Add(item.Amount)
		case FeeKindPPDB:
			out.BilledPPDB = out.BilledPPDB.Add(item.Amount)
		}
	}

	for _, line := range lines {
		if line.Status != PaymentStatusSettled {
			continue
		}
		switch line.Target.Kind {
		case FeeKindSPP:
			out.PaidSPP = out.PaidSPP.Add(line.PaidAmount)
		case FeeKindPPDB:
			out.PaidPPDB = out.PaidPPDB.Add(line.PaidAmount)
		}
	}

	out.Billed = out.BilledSPP.Add(out.BilledPPDB)
	out.Paid = out.PaidSPP.Add(out.PaidPPDB)
	out.Outstanding = out.Billed.Sub(out.Paid)
	if out.Outstanding.IsNegative() {
		out.Outstanding = decimal.Zero
	}
	return out
}

// CoveredRefs returns the set of fee items referenced by a pending or settled line item
func CoveredRefs(lines []*PaymentLineItem) map[FeeRef]bool {
	covered := make(map[FeeRef]bool, len(lines))
	for _, line := range lines {
		if line.Status.CoversItem() {
			covered[line.Target] = true
		}
	}
	return covered
}

// BillableItems filters the catalog down to active items not yet covered by a line item
func BillableItems(catalog []*FeeItem, lines []*PaymentLineItem) []*FeeItem {
	covered := CoveredRefs(lines)
	billable := make([]*FeeItem, 0, len(catalog))
	for _, item := range catalog {
		if !item.Active || covered[item.Ref()] {
			continue
		}
		billable = append(billable, item)
	}
	return billable
}
