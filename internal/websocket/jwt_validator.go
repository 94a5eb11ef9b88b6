package websocket

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/sppku/sppku-backend/internal/domain"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrUserNotProvisioned is returned when the token subject has no user record
var ErrUserNotProvisioned = errors.New("user not provisioned")

// ActorLookup resolves the request actor for an Auth0 subject
type ActorLookup interface {
	ActorByAuth0ID(ctx context.Context, auth0ID string) (domain.Actor, error)
}

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct{}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections
type Auth0JWTValidator struct {
	validator   *validator.Validator
	actorLookup ActorLookup
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domain, audience string, actorLookup ActorLookup) (*Auth0JWTValidator, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
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

	return &Auth0JWTValidator{
		validator:   jwtValidator,
		actorLookup: actorLookup,
	}, nil
}

// ValidateToken validates a JWT token and returns the actor it belongs to
func (v *Auth0JWTValidator) ValidateToken(ctx context.Context, token string) (domain.Actor, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return domain.Actor{}, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return domain.Actor{}, ErrInvalidToken
	}

	actor, err := v.actorLookup.ActorByAuth0ID(ctx, validatedClaims.RegisteredClaims.Subject)
	if err != nil {
		return domain.Actor{}, ErrUserNotProvisioned
	}
	return actor, nil
}

// ChannelsFor returns the channels a connection of actor may listen on
func ChannelsFor(actor domain.Actor) []string {
	if actor.IsAdmin() {
		return []string{AdminChannel}
	}
	if actor.StudentID != 0 {
		return []string{StudentChannel(actor.StudentID)}
	}
	return nil
}
