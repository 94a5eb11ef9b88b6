package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/export"
	"github.com/dafibh/sppku/sppku-backend/internal/util"
	"github.com/shopspring/decimal"
)

// Document is a rendered report ready for download
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService builds payment and arrears reports and the dashboard summary
type ReportService struct {
	paymentRepo domain.PaymentRepository
	studentRepo domain.StudentRepository
	feeItemRepo domain.FeeItemRepository
	now         func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(paymentRepo domain.PaymentRepository, studentRepo domain.StudentRepository, feeItemRepo domain.FeeItemRepository) *ReportService {
	return &ReportService{
		paymentRepo: paymentRepo,
		studentRepo: studentRepo,
		feeItemRepo: feeItemRepo,
		now:         time.Now,
	}
}

// PaymentRows returns every payment matching filters as report rows. Admin only.
func (s *ReportService) PaymentRows(ctx context.Context, actor domain.Actor, filters domain.PaymentFilters) ([]domain.PaymentReportRow, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	students := map[int32]*domain.Student{}
	rows := []domain.PaymentReportRow{}
	filters.PageSize = domain.MaxPageSize
	for page := int32(1); ; page++ {
		filters.Page = page
		result, err := s.paymentRepo.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		for _, p := range result.Data {
			student, ok := students[p.StudentID]
			if !ok {
				student, err = s.studentRepo.GetByID(ctx, p.StudentID)
				if err != nil {
					return nil, err
				}
				students[p.StudentID] = student
			}
			note := ""
			if p.Note != nil {
				note = *p.Note
			}
			rows = append(rows, domain.PaymentReportRow{
				PaymentID:   p.ID,
				SubmittedAt: p.SubmittedAt,
				ApprovedAt:  p.ApprovedAt,
				NIS:         student.NIS,
				StudentName: student.Name,
				ClassName:   student.ClassName,
				Items:       describeItems(p.Items),
				TotalBilled: p.TotalBilled,
				TotalPaid:   p.TotalPaid,
				Status:      p.Status,
				Note:        note,
			})
		}
		if page >= result.TotalPages {
			break
		}
	}
	return rows, nil
}

func describeItems(items []*domain.PaymentLineItem) string {
	names := make([]string, len(items))
	for i, item := range items {
		if item.ItemName != "" {
			names[i] = item.ItemName
		} else {
			names[i] = item.Target.String()
		}
	}
	return strings.Join(names, ", ")
}

// ArrearsRows reconciles every active student, optionally narrowed to one class. Admin only.
func (s *ReportService) ArrearsRows(ctx context.Context, actor domain.Actor, classID *int32) ([]domain.ArrearsReportRow, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	students, err := s.studentRepo.List(ctx, domain.StudentFilters{ClassID: classID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	settled, err := s.paymentRepo.ListLineItems(ctx, domain.PaymentStatusSettled)
	if err != nil {
		return nil, err
	}
	linesByStudent := make(map[int32][]*domain.PaymentLineItem)
	for _, line := range settled {
		linesByStudent[line.StudentID] = append(linesByStudent[line.StudentID], line)
	}

	catalogs := make(map[int32][]*domain.FeeItem)
	rows := make([]domain.ArrearsReportRow, 0, len(students))
	for _, student := range students {
		catalog, ok := catalogs[student.ClassID]
		if !ok {
			catalog, err = s.feeItemRepo.ListActiveForClass(ctx, student.ClassID)
			if err != nil {
				return nil, err
			}
			catalogs[student.ClassID] = catalog
		}
		out := domain.ComputeOutstanding(student.ID, catalog, linesByStudent[student.ID])
		rows = append(rows, domain.ArrearsReportRow{
			StudentID:   student.ID,
			NIS:         student.NIS,
			StudentName: student.Name,
			ClassName:   student.ClassName,
			Billed:      out.Billed,
			Paid:        out.Paid,
			Outstanding: out.Outstanding,
		})
	}
	return rows, nil
}

// Summary returns the admin dashboard figures. Admin only.
func (s *ReportService) Summary(ctx context.Context, actor domain.Actor) (*domain.DashboardSummary, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	pending, err := s.paymentRepo.CountByStatus(ctx, domain.PaymentStatusPending)
	if err != nil {
		return nil, err
	}

	from, to := util.MonthBounds(s.now())
	settled, err := s.paymentRepo.SumSettledBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	arrears, err := s.ArrearsRows(ctx, actor, nil)
	if err != nil {
		return nil, err
	}

	summary := &domain.DashboardSummary{
		PendingCount:       pending,
		SettledThisMonth:   settled,
		OutstandingTotal:   decimal.Zero,
		ActiveStudentCount: len(arrears),
	}
	for _, row := range arrears {
		summary.OutstandingTotal = summary.OutstandingTotal.Add(row.Outstanding)
		if row.Outstanding.IsPositive() {
			summary.StudentsWithArrears++
		}
	}
	return summary, nil
}

// RenderPayments renders the payment report in the requested format
func (s *ReportService) RenderPayments(ctx context.Context, actor domain.Actor, filters domain.PaymentFilters, format string) (*Document, error) {
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, err
	}
	rows, err := s.PaymentRows(ctx, actor, filters)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title:   "Laporan Pembayaran",
		Headers: []string{"No", "Tanggal", "Disetujui", "NIS", "Nama", "Kelas", "Item", "Tagihan", "Dibayar", "Status", "Catatan"},
	}
	for i, r := range rows {
		table.Rows = append(table.Rows, []any{
			i + 1, r.SubmittedAt, r.ApprovedAt, r.NIS, r.StudentName, r.ClassName, r.Items,
			r.TotalBilled, r.TotalPaid, string(r.Status), r.Note,
		})
	}
	return s.render(renderer, "laporan-pembayaran", table)
}

// RenderArrears renders the arrears report in the requested format
func (s *ReportService) RenderArrears(ctx context.Context, actor domain.Actor, classID *int32, format string) (*Document, error) {
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, err
	}
	rows, err := s.ArrearsRows(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title:   "Laporan Tunggakan",
		Headers: []string{"No", "NIS", "Nama", "Kelas", "Tagihan", "Dibayar", "Tunggakan"},
	}
	for i, r := range rows {
		table.Rows = append(table.Rows, []any{
			i + 1, r.NIS, r.StudentName, r.ClassName, r.Billed, r.Paid, r.Outstanding,
		})
	}
	return s.render(renderer, "laporan-tunggakan", table)
}

func (s *ReportService) render(renderer export.Renderer, name string, table export.Table) (*Document, error) {
	var buf bytes.Buffer
	if err := renderer.Render(&buf, table); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return &Document{
		Filename:    fmt.Sprintf("%s-%s.%s", name, s.now().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
