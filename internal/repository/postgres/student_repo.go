package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository implements domain.StudentRepository using PostgreSQL
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentSelect = `
	SELECT s.id, s.nis, s.name, s.class_id, c.name, s.parent_phone, s.active, s.created_at, s.updated_at
	FROM students s
	JOIN classes c ON c.id = s.class_id`

// Create creates a new student
func (r *StudentRepository) Create(ctx context.Context, student *domain.Student) (*domain.Student, error) {
	var id int32
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (nis, name, class_id, parent_phone, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`,
		student.NIS, student.Name, student.ClassID, student.ParentPhone,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrNISAlreadyExists
		}
		return nil, fmt.Errorf("create student: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a student with their class name
func (r *StudentRepository) GetByID(ctx context.Context, id int32) (*domain.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx, studentSelect+` WHERE s.id = $1`, id))
}

// List returns students matching the filters ordered by class and name
func (r *StudentRepository) List(ctx context.Context, filters domain.StudentFilters) ([]*domain.Student, error) {
	var (
		conds []string
		args  []any
	)
	if filters.ClassID != nil {
		args = append(args, *filters.ClassID)
		conds = append(conds, fmt.Sprintf("s.class_id = $%d", len(args)))
	}
	if filters.ActiveOnly {
		conds = append(conds, "s.active")
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		args = append(args, "%"+search+"%")
		conds = append(conds, fmt.Sprintf("(s.name ILIKE $%d OR s.nis ILIKE $%d)", len(args), len(args)))
	}

	query := studentSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY c.name, s.name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []*domain.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

// Update changes a student's name, class and parent phone
func (r *StudentRepository) Update(ctx context.Context, id int32, data domain.UpdateStudentData) (*domain.Student, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE students
		SET name = $2, class_id = $3, parent_phone = $4, updated_at = NOW()
		WHERE id = $1`,
		id, data.Name, data.ClassID, data.ParentPhone,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrStudentNotFound
	}
	return r.GetByID(ctx, id)
}

// SetActive activates or deactivates a student
func (r *StudentRepository) SetActive(ctx context.Context, id int32, active bool) (*domain.Student, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE students SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrStudentNotFound
	}
	return r.GetByID(ctx, id)
}

func scanStudent(row pgx.Row) (*domain.Student, error) {
	var s domain.Student
	err := row.Scan(&s.ID, &s.NIS, &s.Name, &s.ClassID, &s.ClassName, &s.ParentPhone, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}
