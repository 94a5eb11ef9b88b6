package domain

import (
	"context"
	"errors"
	"time"
)

var ErrClassNotFound = errors.New("class not found")

// SchoolClass is a class/section students are enrolled in
type SchoolClass struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *SchoolClass) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if len(c.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ClassRepository defines the interface for class persistence operations
type ClassRepository interface {
	Create(ctx context.Context, class *SchoolClass) (*SchoolClass, error)
	GetByID(ctx context.Context, id int32) (*SchoolClass, error)
	List(ctx context.Context) ([]*SchoolClass, error)
}
