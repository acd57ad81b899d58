// Package tokencodec reads claims out of bearer tokens without verifying them.
// Verification is the authority's job; the client only needs the expiry to
// schedule refreshes and the subject to show who is signed in.
package tokencodec

import (
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultFallbackTTL = 15 * time.Minute

type JWTCodec struct {
	clock       ports.Clock
	fallbackTTL time.Duration
	parser      *jwt.Parser
}

var _ ports.TokenCodec = (*JWTCodec)(nil)

func NewJWTCodec(clock ports.Clock, fallbackTTL time.Duration) *JWTCodec {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultFallbackTTL
	}

	return &JWTCodec{
		clock:       clock,
		fallbackTTL: fallbackTTL,
		parser:      jwt.NewParser(),
	}
}

// DecodeExpiry returns the exp claim, or now+fallback when the token is not a
// JWT or carries no usable exp.
func (c *JWTCodec) DecodeExpiry(token string) time.Time {
	claims, ok := c.claims(token)
	if !ok {
		return c.fallback()
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Unix() <= 0 {
		return c.fallback()
	}

	return exp.Time
}

func (c *JWTCodec) DecodeIdentity(token string) (domain.Identity, bool) {
	claims, ok := c.claims(token)
	if !ok {
		return domain.Identity{}, false
	}

	subject, _ := claims.GetSubject()
	identity := domain.Identity{
		UserID:      subject,
		Email:       stringClaim(claims, "email"),
		DisplayName: stringClaim(claims, "name"),
	}
	if raw, ok := claims["roles"].([]any); ok {
		for _, role := range raw {
			if name, ok := role.(string); ok {
				identity.Roles = append(identity.Roles, name)
			}
		}
	}

	if identity.UserID == "" && identity.Email == "" {
		return domain.Identity{}, false
	}
	return identity, true
}

func (c *JWTCodec) claims(token string) (jwt.MapClaims, bool) {
	if token == "" {
		return nil, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

func (c *JWTCodec) fallback() time.Time {
	return c.clock.Now().Add(c.fallbackTTL)
}

func stringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return value
}
