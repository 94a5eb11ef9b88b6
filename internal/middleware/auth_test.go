package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type stubValidator struct {
	subject string
	err     error
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: s.subject},
		CustomClaims:     &CustomClaims{Email: "tu@sekolah.sch.id"},
	}, nil
}

type stubResolver struct {
	actors map[string]domain.Actor
	err    error
}

func (s *stubResolver) ActorByAuth0ID(ctx context.Context, auth0ID string) (domain.Actor, error) {
	if s.err != nil {
		return domain.Actor{}, s.err
	}
	actor, ok := s.actors[auth0ID]
	if !ok {
		return domain.Actor{}, domain.ErrUserNotFound
	}
	return actor, nil
}

var testAdmin = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), Role: domain.RoleAdmin}

func runAuth(t *testing.T, m *AuthMiddleware, header string) (*httptest.ResponseRecorder, *domain.Actor) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *domain.Actor
	h := m.Authenticate()(func(c echo.Context) error {
		if actor, ok := GetActor(c); ok {
			seen = &actor
		}
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return rec, seen
}

func TestAuthenticate(t *testing.T) {
	resolver := &stubResolver{actors: map[string]domain.Actor{"auth0|admin": testAdmin}}

	tests := []struct {
		name       string
		validator  *stubValidator
		resolver   *stubResolver
		header     string
		wantStatus int
		wantActor  bool
	}{
		{"valid token", &stubValidator{subject: "auth0|admin"}, resolver, "Bearer abc", http.StatusOK, true},
		{"lowercase scheme", &stubValidator{subject: "auth0|admin"}, resolver, "bearer abc", http.StatusOK, true},
		{"missing header", &stubValidator{subject: "auth0|admin"}, resolver, "", http.StatusUnauthorized, false},
		{"wrong scheme", &stubValidator{subject: "auth0|admin"}, resolver, "Basic abc", http.StatusUnauthorized, false},
		{"no scheme", &stubValidator{subject: "auth0|admin"}, resolver, "abc", http.StatusUnauthorized, false},
		{"invalid token", &stubValidator{err: errors.New("expired")}, resolver, "Bearer abc", http.StatusUnauthorized, false},
		{"unprovisioned user", &stubValidator{subject: "auth0|stranger"}, resolver, "Bearer abc", http.StatusForbidden, false},
		{"lookup failure", &stubValidator{subject: "auth0|admin"}, &stubResolver{err: errors.New("db down")}, "Bearer abc", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddlewareWithValidator(tt.validator, tt.resolver)
			rec, actor := runAuth(t, m, tt.header)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantActor {
				if actor == nil {
					t.Fatal("Expected actor in context")
				}
				if actor.UserID != testAdmin.UserID {
					t.Errorf("Expected user %s, got %s", testAdmin.UserID, actor.UserID)
				}
			} else if actor != nil {
				t.Error("Handler should not run")
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	student := domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent, StudentID: 10}

	tests := []struct {
		name       string
		actor      *domain.Actor
		wantStatus int
	}{
		{"admin passes", &testAdmin, http.StatusOK},
		{"student forbidden", &student, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tt.actor))
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := RequireAdmin()(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})
			if err := h(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestContextGetters(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if GetAuth0ID(c) != "" {
		t.Error("Expected empty auth0 id")
	}
	if GetClaims(c) != nil {
		t.Error("Expected nil claims")
	}
	if _, ok := GetActor(c); ok {
		t.Error("Expected no actor")
	}

	ctx := context.WithValue(req.Context(), Auth0IDKey, "auth0|12345")
	c.SetRequest(req.WithContext(ctx))
	if got := GetAuth0ID(c); got != "auth0|12345" {
		t.Errorf("Expected auth0|12345, got %q", got)
	}
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{Email: "test@example.com", Name: "Test"}
	if err := claims.Validate(context.Background()); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
