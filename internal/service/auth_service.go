package service

import (
	"context"
	"strings"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// AuthService resolves authenticated callers and provisions user accounts
type AuthService struct {
	userRepo    domain.UserRepository
	studentRepo domain.StudentRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository, studentRepo domain.StudentRepository) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		studentRepo: studentRepo,
	}
}

// ActorByAuth0ID resolves the actor for a validated token subject.
// Users must be provisioned by an admin beforehand.
func (s *AuthService) ActorByAuth0ID(ctx context.Context, auth0ID string) (domain.Actor, error) {
	user, err := s.userRepo.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return domain.Actor{}, err
	}
	return user.Actor(), nil
}

// Me returns the user record of the actor
func (s *AuthService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, actor.UserID)
}

// CreateUserInput holds the input for provisioning a user
type CreateUserInput struct {
	Auth0ID   string
	Email     string
	Name      string
	Role      domain.Role
	StudentID *int32
}

// CreateUser provisions a login for an admin or a student. Admin only.
func (s *AuthService) CreateUser(ctx context.Context, actor domain.Actor, input CreateUserInput) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	user := &domain.User{
		Auth0ID:   strings.TrimSpace(input.Auth0ID),
		Email:     strings.TrimSpace(input.Email),
		Name:      strings.TrimSpace(input.Name),
		Role:      input.Role,
		StudentID: input.StudentID,
	}
	if user.Auth0ID == "" {
		return nil, domain.ErrInvalidInput
	}
	if user.Role == domain.RoleAdmin {
		user.StudentID = nil
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if user.StudentID != nil {
		if _, err := s.studentRepo.GetByID(ctx, *user.StudentID); err != nil {
			return nil, err
		}
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", created.ID.String()).
		Str("role", string(created.Role)).
		Msg("User provisioned")
	return created, nil
}

// ListUsers returns all users. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, actor domain.Actor) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.userRepo.List(ctx)
}
