package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClassRepository implements domain.ClassRepository using PostgreSQL
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

// Create creates a new class
func (r *ClassRepository) Create(ctx context.Context, class *domain.SchoolClass) (*domain.SchoolClass, error) {
	var created domain.SchoolClass
	err := r.pool.QueryRow(ctx, `
		INSERT INTO classes (name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`,
		class.Name,
	).Scan(&created.ID, &created.Name, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create class: %w", err)
	}
	return &created, nil
}

// GetByID retrieves a class by ID
func (r *ClassRepository) GetByID(ctx context.Context, id int32) (*domain.SchoolClass, error) {
	var class domain.SchoolClass
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at FROM classes WHERE id = $1`, id,
	).Scan(&class.ID, &class.Name, &class.CreatedAt, &class.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClassNotFound
		}
		return nil, err
	}
	return &class, nil
}

// List returns all classes ordered by name
func (r *ClassRepository) List(ctx context.Context) ([]*domain.SchoolClass, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM classes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := []*domain.SchoolClass{}
	for rows.Next() {
		var class domain.SchoolClass
		if err := rows.Scan(&class.ID, &class.Name, &class.CreatedAt, &class.UpdatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, &class)
	}
	return classes, rows.Err()
}
