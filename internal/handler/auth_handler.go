package handler

import (
	"net/http"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles the current user and user provisioning requests
type AuthHandler struct {
	authService    *service.AuthService
	studentService *service.StudentService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, studentService *service.StudentService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		studentService: studentService,
	}
}

// MeResponse represents the current user with the linked student, if any
type MeResponse struct {
	User    *domain.User    `json:"user"`
	Student *domain.Student `json:"student,omitempty"`
}

// CreateUserRequest represents the create user request body
type CreateUserRequest struct {
	Auth0ID   string `json:"auth0Id" validate:"required,max=255"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	Name      string `json:"name" validate:"required,max=255"`
	Role      string `json:"role" validate:"required,oneof=admin student"`
	StudentID *int32 `json:"studentId,omitempty"`
}

// Me returns the authenticated user
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), actor)
	if err != nil {
		return handleServiceError(c, err, "get current user")
	}

	resp := MeResponse{User: user}
	if actor.StudentID != 0 {
		student, err := h.studentService.Get(c.Request().Context(), actor, actor.StudentID)
		if err != nil {
			return handleServiceError(c, err, "get current user")
		}
		resp.Student = student
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateUser provisions a login
// @Summary Create user
// @Description Links an Auth0 subject to the admin role or to a student
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User"
// @Success 201 {object} domain.User
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /users [post]
func (h *AuthHandler) CreateUser(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	var req CreateUserRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	user, err := h.authService.CreateUser(c.Request().Context(), actor, service.CreateUserInput{
		Auth0ID:   req.Auth0ID,
		Email:     req.Email,
		Name:      req.Name,
		Role:      domain.Role(req.Role),
		StudentID: req.StudentID,
	})
	if err != nil {
		return handleServiceError(c, err, "create user")
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers returns all users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.User
// @Failure 403 {object} ProblemDetails
// @Router /users [get]
func (h *AuthHandler) ListUsers(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	users, err := h.authService.ListUsers(c.Request().Context(), actor)
	if err != nil {
		return handleServiceError(c, err, "list users")
	}
	return c.JSON(http.StatusOK, users)
}
