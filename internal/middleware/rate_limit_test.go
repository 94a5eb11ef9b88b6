package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(10, 5) // 10 per minute, burst of 5
	defer rl.Stop()

	userID := uuid.New()

	for i := 0; i < 5; i++ {
		if !rl.Allow(userID) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if rl.Allow(userID) {
		t.Error("Request 6 should be rate limited")
	}
}

func TestRateLimiter_DifferentUsers(t *testing.T) {
	rl := NewRateLimiter(10, 3)
	defer rl.Stop()

	user1 := uuid.New()
	user2 := uuid.New()

	for i := 0; i < 3; i++ {
		if !rl.Allow(user1) {
			t.Errorf("User1 request %d should be allowed", i+1)
		}
	}
	if rl.Allow(user1) {
		t.Error("User1 should be rate limited")
	}

	for i := 0; i < 3; i++ {
		if !rl.Allow(user2) {
			t.Errorf("User2 request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(10, 3)
	rl.Stop()
	rl.Stop()
}

func TestRateLimitMiddleware_SkipsAnonymous(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitMiddleware_LimitsPerUser(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(10, 2)
	defer rl.Stop()

	actor := domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent, StudentID: 10}
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}
	newContext := func() (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec), rec
	}

	for i := 0; i < 2; i++ {
		c, rec := newContext()
		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("Request %d: Expected no error, got %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Request %d: Expected status 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("Request %d: Expected X-RateLimit-Limit 10, got %q", i+1, got)
		}
	}

	c, rec := newContext()
	if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("Expected X-RateLimit-Remaining 0")
	}
}
