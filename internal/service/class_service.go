package service

import (
	"context"
	"strings"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
)

// ClassService manages school classes
type ClassService struct {
	classRepo domain.ClassRepository
}

// NewClassService creates a new ClassService
func NewClassService(classRepo domain.ClassRepository) *ClassService {
	return &ClassService{classRepo: classRepo}
}

// Create adds a class. Admin only.
func (s *ClassService) Create(ctx context.Context, actor domain.Actor, name string) (*domain.SchoolClass, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	class := &domain.SchoolClass{Name: strings.TrimSpace(name)}
	if err := class.Validate(); err != nil {
		return nil, err
	}
	return s.classRepo.Create(ctx, class)
}

// List returns all classes
func (s *ClassService) List(ctx context.Context) ([]*domain.SchoolClass, error) {
	return s.classRepo.List(ctx)
}
