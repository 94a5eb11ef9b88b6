package notify

import (
	"fmt"
	"strings"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// FormatRupiah renders an amount as "Rp 1.250.000"
func FormatRupiah(amount decimal.Decimal) string {
	s := amount.Round(0).StringFixed(0)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if negative {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

func itemNames(p *domain.Payment) string {
	names := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if item.ItemName != "" {
			names = append(names, item.ItemName)
		} else {
			names = append(names, item.Target.String())
		}
	}
	return strings.Join(names, ", ")
}

// SubmittedMessage is sent to the school admin when a new payment awaits review
func SubmittedMessage(p *domain.Payment) string {
	return fmt.Sprintf(
		"Pembayaran baru #%d dari %s (%s).\nTagihan: %s\nDibayar: %s\nItem: %s\nMohon diverifikasi.",
		p.ID, p.StudentName, p.ClassName, FormatRupiah(p.TotalBilled), FormatRupiah(p.TotalPaid), itemNames(p),
	)
}

// ApprovedMessage is sent to the parent when a payment is settled
func ApprovedMessage(p *domain.Payment) string {
	return fmt.Sprintf(
		"Pembayaran #%d atas nama %s telah diterima (LUNAS).\nJumlah: %s\nItem: %s\nTerima kasih.",
		p.ID, p.StudentName, FormatRupiah(p.TotalPaid), itemNames(p),
	)
}

// RejectedMessage is sent to the parent when a payment is rejected
func RejectedMessage(p *domain.Payment) string {
	reason := ""
	if p.Note != nil && *p.Note != "" {
		reason = "\nAlasan: " + *p.Note
	}
	return fmt.Sprintf(
		"Pembayaran #%d atas nama %s ditolak.%s\nSilakan unggah ulang bukti pembayaran.",
		p.ID, p.StudentName, reason,
	)
}
