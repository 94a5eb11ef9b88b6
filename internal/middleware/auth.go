package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// Auth0IDKey is the context key for the Auth0 user ID (subject)
	Auth0IDKey contextKey = "auth0_id"
	// ActorKey is the context key for the resolved domain.Actor
	ActorKey contextKey = "actor"
)

// TokenValidator validates a raw bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// ActorResolver maps a token subject to a provisioned user
type ActorResolver interface {
	ActorByAuth0ID(ctx context.Context, auth0ID string) (domain.Actor, error)
}

// AuthMiddleware provides JWT validation and actor resolution
type AuthMiddleware struct {
	validator TokenValidator
	resolver  ActorResolver
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(auth0Domain, audience string, resolver ActorResolver) (*AuthMiddleware, error) {
	issuerURL, err := url.Parse("https://" + auth0Domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return NewAuthMiddlewareWithValidator(jwtValidator, resolver), nil
}

// NewAuthMiddlewareWithValidator creates an AuthMiddleware around an existing token validator
func NewAuthMiddlewareWithValidator(v TokenValidator, resolver ActorResolver) *AuthMiddleware {
	return &AuthMiddleware{
		validator: v,
		resolver:  resolver,
	}
}

// Authenticate returns an Echo middleware that validates the bearer token and
// stores the caller's actor in the request context
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "missing authorization header")
			}

			// Check Bearer prefix
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "invalid authorization header format")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "invalid claims")
			}

			auth0ID := validatedClaims.RegisteredClaims.Subject

			actor, err := m.resolver.ActorByAuth0ID(c.Request().Context(), auth0ID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					log.Debug().Str("auth0_id", auth0ID).Msg("User not provisioned")
					return forbiddenError(c, "account is not registered")
				}
				log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Actor lookup failed")
				return problem(c, http.StatusInternalServerError, errorTypeInternal, "Internal Server Error", "failed to resolve user")
			}

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, Auth0IDKey, auth0ID)
			ctx = context.WithValue(ctx, ActorKey, actor)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireAdmin rejects callers that are not admins. It must run after Authenticate.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := GetActor(c)
			if !ok {
				return unauthorizedError(c, "not authenticated")
			}
			if !actor.IsAdmin() {
				return forbiddenError(c, "admin role required")
			}
			return next(c)
		}
	}
}

// GetAuth0ID extracts the Auth0 user ID from the context
func GetAuth0ID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(Auth0IDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetActor extracts the authenticated actor from the context
func GetActor(c echo.Context) (domain.Actor, bool) {
	actor, ok := c.Request().Context().Value(ActorKey).(domain.Actor)
	return actor, ok
}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}
