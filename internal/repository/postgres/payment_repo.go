package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PaymentRepository implements domain.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentSelect = `
	SELECT p.id, p.student_id, s.name, c.name, p.total_billed, p.total_paid, p.status,
		p.submitted_at, p.approved_at, p.proof_ref, p.note, p.reviewed_by, p.created_at, p.updated_at
	FROM payments p
	JOIN students s ON s.id = p.student_id
	JOIN classes c ON c.id = s.class_id`

const lineItemSelect = `
	SELECT pi.id, pi.payment_id, pi.student_id, pi.spp_id, pi.ppdb_id,
		COALESCE(si.name, pp.name, ''), pi.billed_amount, pi.paid_amount, pi.status
	FROM payment_items pi
	LEFT JOIN spp_items si ON si.id = pi.spp_id
	LEFT JOIN ppdb_items pp ON pp.id = pi.ppdb_id`

// CreateWithItems inserts a payment and its line items atomically.
// The student row stays locked until commit so concurrent submissions
// for the same student are serialized and the coverage check holds.
func (r *PaymentRepository) CreateWithItems(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var lockedID int32
	err = tx.QueryRow(ctx, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, payment.StudentID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, fmt.Errorf("lock student: %w", err)
	}

	covered, err := anyCovered(ctx, tx, payment.StudentID, payment.Refs())
	if err != nil {
		return nil, err
	}
	if covered {
		return nil, domain.ErrFeeItemAlreadyCovered
	}

	totalBilled, err := decimalToPgNumeric(payment.TotalBilled)
	if err != nil {
		return nil, fmt.Errorf("convert total billed: %w", err)
	}
	totalPaid, err := decimalToPgNumeric(payment.TotalPaid)
	if err != nil {
		return nil, fmt.Errorf("convert total paid: %w", err)
	}

	var paymentID int32
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (student_id, total_billed, total_paid, status, submitted_at, proof_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		payment.StudentID, totalBilled, totalPaid, string(domain.PaymentStatusPending), payment.SubmittedAt, payment.ProofRef,
	).Scan(&paymentID)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	for _, item := range payment.Items {
		billed, err := decimalToPgNumeric(item.BilledAmount)
		if err != nil {
			return nil, fmt.Errorf("convert billed amount: %w", err)
		}
		paid, err := decimalToPgNumeric(item.PaidAmount)
		if err != nil {
			return nil, fmt.Errorf("convert paid amount: %w", err)
		}
		sppID, ppdbID := refColumns(item.Target)
		_, err = tx.Exec(ctx, `
			INSERT INTO payment_items (payment_id, student_id, spp_id, ppdb_id, billed_amount, paid_amount, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			paymentID, payment.StudentID, sppID, ppdbID, billed, paid, string(domain.PaymentStatusPending),
		)
		if err != nil {
			return nil, fmt.Errorf("insert line item %s: %w", item.Target, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return r.GetByID(ctx, paymentID)
}

func anyCovered(ctx context.Context, q querier, studentID int32, refs []domain.FeeRef) (bool, error) {
	sppIDs, ppdbIDs := []int32{}, []int32{}
	for _, ref := range refs {
		if ref.Kind == domain.FeeKindSPP {
			sppIDs = append(sppIDs, ref.ID)
		} else {
			ppdbIDs = append(ppdbIDs, ref.ID)
		}
	}

	var covered bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_items
			WHERE student_id = $1
				AND status IN ('pending', 'lunas')
				AND (spp_id = ANY($2) OR ppdb_id = ANY($3))
		)`,
		studentID, sppIDs, ppdbIDs,
	).Scan(&covered)
	if err != nil {
		return false, fmt.Errorf("check coverage: %w", err)
	}
	return covered, nil
}

func refColumns(ref domain.FeeRef) (sppID, ppdbID *int32) {
	id := ref.ID
	if ref.Kind == domain.FeeKindSPP {
		return &id, nil
	}
	return nil, &id
}

// GetByID retrieves a payment with its line items
func (r *PaymentRepository) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	payment, err := scanPayment(r.pool.QueryRow(ctx, paymentSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*domain.Payment{payment}); err != nil {
		return nil, err
	}
	return payment, nil
}

// ListByStudent returns every payment of a student, newest first
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID int32) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(ctx, paymentSelect+` WHERE p.student_id = $1 ORDER BY p.submitted_at DESC, p.id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	payments, err := collectPayments(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// List retrieves payments matching the filters with pagination
func (r *PaymentRepository) List(ctx context.Context, filters domain.PaymentFilters) (*domain.PaginatedPayments, error) {
	page := int32(1)
	pageSize := int32(domain.DefaultPageSize)
	if filters.Page > 0 {
		page = filters.Page
	}
	if filters.PageSize > 0 {
		pageSize = filters.PageSize
		if pageSize > domain.MaxPageSize {
			pageSize = domain.MaxPageSize
		}
	}
	offset := (page - 1) * pageSize

	var (
		conds []string
		args  []any
	)
	addCond := func(format string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}
	if filters.Status != nil {
		addCond("p.status = $%d", string(*filters.Status))
	}
	if filters.StudentID != nil {
		addCond("p.student_id = $%d", *filters.StudentID)
	}
	if filters.ClassID != nil {
		addCond("s.class_id = $%d", *filters.ClassID)
	}
	if filters.From != nil {
		addCond("p.submitted_at >= $%d", *filters.From)
	}
	if filters.To != nil {
		addCond("p.submitted_at < $%d", *filters.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var totalItems int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM payments p
		JOIN students s ON s.id = p.student_id`+where, args...,
	).Scan(&totalItems)
	if err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}

	query := paymentSelect + where +
		fmt.Sprintf(" ORDER BY p.submitted_at DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, err
	}
	payments, err := collectPayments(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, payments); err != nil {
		return nil, err
	}

	totalPages := int32(totalItems / int64(pageSize))
	if totalItems%int64(pageSize) > 0 {
		totalPages++
	}

	return &domain.PaginatedPayments{
		Data:       payments,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}, nil
}

// ListLineItemsByStudent returns a student's line items, optionally narrowed to statuses
func (r *PaymentRepository) ListLineItemsByStudent(ctx context.Context, studentID int32, statuses ...domain.PaymentStatus) ([]*domain.PaymentLineItem, error) {
	rows, err := r.pool.Query(ctx,
		lineItemSelect+` WHERE pi.student_id = $1 AND (cardinality($2::text[]) = 0 OR pi.status = ANY($2)) ORDER BY pi.id`,
		studentID, statusStrings(statuses),
	)
	if err != nil {
		return nil, err
	}
	return collectLineItems(rows)
}

// ListLineItems returns the line items of every student, optionally narrowed to statuses
func (r *PaymentRepository) ListLineItems(ctx context.Context, statuses ...domain.PaymentStatus) ([]*domain.PaymentLineItem, error) {
	rows, err := r.pool.Query(ctx,
		lineItemSelect+` WHERE cardinality($1::text[]) = 0 OR pi.status = ANY($1) ORDER BY pi.student_id, pi.id`,
		statusStrings(statuses),
	)
	if err != nil {
		return nil, err
	}
	return collectLineItems(rows)
}

// Transition moves a pending payment and all of its line items to a terminal status
func (r *PaymentRepository) Transition(ctx context.Context, id int32, t domain.PaymentTransition) (*domain.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var approvedAt *time.Time
	if t.To == domain.PaymentStatusSettled {
		approvedAt = &t.At
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $2, approved_at = $3, note = $4, reviewed_by = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		id, string(t.To), approvedAt, t.Note, pgtype.UUID{Bytes: t.ReviewedBy, Valid: true},
	)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrPaymentNotFound
			}
			return nil, err
		}
		return nil, domain.ErrPaymentNotPending
	}

	// settled items are paid at their billed amount, rejected items carry nothing
	_, err = tx.Exec(ctx, `
		UPDATE payment_items
		SET status = $2,
		    paid_amount = CASE WHEN $3 THEN billed_amount ELSE 0 END,
		    updated_at = NOW()
		WHERE payment_id = $1`,
		id, string(t.To), t.To == domain.PaymentStatusSettled,
	)
	if err != nil {
		return nil, fmt.Errorf("update line items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return r.GetByID(ctx, id)
}

// CountByStatus counts payments in a status
func (r *PaymentRepository) CountByStatus(ctx context.Context, status domain.PaymentStatus) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE status = $1`, string(status)).Scan(&count)
	return count, err
}

// SumSettledBetween sums the paid totals of payments approved in [from, to)
func (r *PaymentRepository) SumSettledBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_paid), 0) FROM payments
		WHERE status = 'lunas' AND approved_at >= $1 AND approved_at < $2`,
		from, to,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(sum), nil
}

func (r *PaymentRepository) attachItems(ctx context.Context, payments []*domain.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	ids := make([]int32, len(payments))
	byID := make(map[int32]*domain.Payment, len(payments))
	for i, p := range payments {
		ids[i] = p.ID
		p.Items = []*domain.PaymentLineItem{}
		byID[p.ID] = p
	}

	rows, err := r.pool.Query(ctx, lineItemSelect+` WHERE pi.payment_id = ANY($1) ORDER BY pi.id`, ids)
	if err != nil {
		return err
	}
	items, err := collectLineItems(rows)
	if err != nil {
		return err
	}
	for _, item := range items {
		if p, ok := byID[item.PaymentID]; ok {
			p.Items = append(p.Items, item)
		}
	}
	return nil
}

func statusStrings(statuses []domain.PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func collectPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	defer rows.Close()

	payments := []*domain.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p           domain.Payment
		totalBilled pgtype.Numeric
		totalPaid   pgtype.Numeric
		status      string
		reviewedBy  pgtype.UUID
	)
	err := row.Scan(&p.ID, &p.StudentID, &p.StudentName, &p.ClassName, &totalBilled, &totalPaid, &status,
		&p.SubmittedAt, &p.ApprovedAt, &p.ProofRef, &p.Note, &reviewedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	p.TotalBilled = pgNumericToDecimal(totalBilled)
	p.TotalPaid = pgNumericToDecimal(totalPaid)
	p.Status = domain.PaymentStatus(status)
	if reviewedBy.Valid {
		id := uuid.UUID(reviewedBy.Bytes)
		p.ReviewedBy = &id
	}
	return &p, nil
}

func collectLineItems(rows pgx.Rows) ([]*domain.PaymentLineItem, error) {
	defer rows.Close()

	items := []*domain.PaymentLineItem{}
	for rows.Next() {
		var (
			item          domain.PaymentLineItem
			sppID, ppdbID *int32
			billed, paid  pgtype.Numeric
			status        string
		)
		err := rows.Scan(&item.ID, &item.PaymentID, &item.StudentID, &sppID, &ppdbID,
			&item.ItemName, &billed, &paid, &status)
		if err != nil {
			return nil, err
		}
		target, err := domain.FeeRefFromColumns(sppID, ppdbID)
		if err != nil {
			return nil, fmt.Errorf("line item %d: %w", item.ID, err)
		}
		item.Target = target
		item.BilledAmount = pgNumericToDecimal(billed)
		item.PaidAmount = pgNumericToDecimal(paid)
		item.Status = domain.PaymentStatus(status)
		items = append(items, &item)
	}
	return items, rows.Err()
}
