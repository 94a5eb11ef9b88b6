package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRole        = errors.New("role must be admin or student")
	ErrStudentLinkMissing = errors.New("student users must be linked to a student")
)

// Role is the access role of an authenticated user
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User represents a login account
type User struct {
	ID        uuid.UUID `json:"id"`
	Auth0ID   string    `json:"auth0Id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	StudentID *int32    `json:"studentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Validate() error {
	if u.Name == "" {
		return ErrNameRequired
	}
	if len(u.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !u.Role.IsValid() {
		return ErrInvalidRole
	}
	if u.Role == RoleStudent && (u.StudentID == nil || *u.StudentID <= 0) {
		return ErrStudentLinkMissing
	}
	return nil
}

// Actor is the authenticated caller of a service operation.
// It is resolved once per request and passed explicitly.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	StudentID int32
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccessStudent reports whether the actor may read data of the given student
func (a Actor) CanAccessStudent(studentID int32) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleStudent && a.StudentID != 0 && a.StudentID == studentID
}

// Actor builds the request actor for this user
func (u *User) Actor() Actor {
	actor := Actor{UserID: u.ID, Role: u.Role}
	if u.StudentID != nil {
		actor.StudentID = *u.StudentID
	}
	return actor
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByAuth0ID(ctx context.Context, auth0ID string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
