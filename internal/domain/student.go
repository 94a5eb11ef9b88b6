package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrStudentInactive    = errors.New("student is inactive")
	ErrNISRequired        = errors.New("student number (NIS) is required")
	ErrNISAlreadyExists   = errors.New("student number (NIS) already exists")
	ErrStudentClassNeeded = errors.New("class is required")
)

// Student is an enrolled pupil who owes fees
type Student struct {
	ID          int32     `json:"id"`
	NIS         string    `json:"nis"`
	Name        string    `json:"name"`
	ClassID     int32     `json:"classId"`
	ClassName   string    `json:"className,omitempty"`
	ParentPhone *string   `json:"parentPhone,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s *Student) Validate() error {
	if s.NIS == "" {
		return ErrNISRequired
	}
	if s.Name == "" {
		return ErrNameRequired
	}
	if len(s.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if s.ClassID <= 0 {
		return ErrStudentClassNeeded
	}
	return nil
}

// StudentFilters holds optional filters for listing students
type StudentFilters struct {
	ClassID    *int32
	ActiveOnly bool
	Search     string
}

// UpdateStudentData holds the mutable fields of a student
type UpdateStudentData struct {
	Name        string
	ClassID     int32
	ParentPhone *string
}

// StudentRepository defines the interface for student persistence operations
type StudentRepository interface {
	Create(ctx context.Context, student *Student) (*Student, error)
	GetByID(ctx context.Context, id int32) (*Student, error)
	List(ctx context.Context, filters StudentFilters) ([]*Student, error)
	Update(ctx context.Context, id int32, data UpdateStudentData) (*Student, error)
	SetActive(ctx context.Context, id int32, active bool) (*Student, error)
}
