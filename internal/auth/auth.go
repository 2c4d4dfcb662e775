package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/approval-workflow/internal"
)

// Claims carries the actor identity. Subject is the actor id.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Actor returns the identity the claims describe.
func (c *Claims) Actor() internal.Actor {
	return internal.Actor{ID: c.Subject, TenantID: c.TenantID}
}

// TokenGenerator mints and validates actor tokens.
type TokenGenerator interface {
	GenerateActorToken(actor internal.Actor) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
	now      func() time.Time
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	ActorID     string    `json:"actor_id"`
	TenantID    string    `json:"tenant_id"`
}
