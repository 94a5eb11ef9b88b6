package service

import (
	"context"
	"strings"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/notify"
)

// StudentService manages student records
type StudentService struct {
	studentRepo domain.StudentRepository
	classRepo   domain.ClassRepository
}

// NewStudentService creates a new StudentService
func NewStudentService(studentRepo domain.StudentRepository, classRepo domain.ClassRepository) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		classRepo:   classRepo,
	}
}

// CreateStudentInput holds the input for creating a student
type CreateStudentInput struct {
	NIS         string
	Name        string
	ClassID     int32
	ParentPhone *string
}

func normalizeParentPhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	normalized := notify.NormalizePhone(*phone)
	if normalized == "" {
		return nil
	}
	return &normalized
}

// Create registers a new student. Admin only.
func (s *StudentService) Create(ctx context.Context, actor domain.Actor, input CreateStudentInput) (*domain.Student, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	student := &domain.Student{
		NIS:         strings.TrimSpace(input.NIS),
		Name:        strings.TrimSpace(input.Name),
		ClassID:     input.ClassID,
		ParentPhone: normalizeParentPhone(input.ParentPhone),
		Active:      true,
	}
	if err := student.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.classRepo.GetByID(ctx, student.ClassID); err != nil {
		return nil, err
	}
	return s.studentRepo.Create(ctx, student)
}

// UpdateStudentInput holds the input for updating a student
type UpdateStudentInput struct {
	Name        string
	ClassID     int32
	ParentPhone *string
}

// Update changes a student's name, class or parent phone. Admin only.
func (s *StudentService) Update(ctx context.Context, actor domain.Actor, id int32, input UpdateStudentInput) (*domain.Student, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}
	if input.ClassID <= 0 {
		return nil, domain.ErrStudentClassNeeded
	}
	if _, err := s.classRepo.GetByID(ctx, input.ClassID); err != nil {
		return nil, err
	}

	return s.studentRepo.Update(ctx, id, domain.UpdateStudentData{
		Name:        name,
		ClassID:     input.ClassID,
		ParentPhone: normalizeParentPhone(input.ParentPhone),
	})
}

// SetActive activates or deactivates a student. Admin only.
func (s *StudentService) SetActive(ctx context.Context, actor domain.Actor, id int32, active bool) (*domain.Student, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.studentRepo.SetActive(ctx, id, active)
}

// Get returns a student. Students may only read their own record.
func (s *StudentService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Student, error) {
	if !actor.CanAccessStudent(id) {
		return nil, domain.ErrForbidden
	}
	return s.studentRepo.GetByID(ctx, id)
}

// List returns students matching the filters. Admin only.
func (s *StudentService) List(ctx context.Context, actor domain.Actor, filters domain.StudentFilters) ([]*domain.Student, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.studentRepo.List(ctx, filters)
}
