package devauthority

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type accessClaims struct {
	Email      string   `json:"email"`
	Name       string   `json:"name,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Generation int64    `json:"gen"`
	jwt.RegisteredClaims
}

type issuedToken struct {
	value     string
	expiresAt time.Time
}

func (s *Server) issueAccess(u *user) (issuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)

	claims := accessClaims{
		Email:      u.email,
		Name:       u.name,
		Roles:      u.roles,
		Generation: s.generation.Load(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.id,
			Issuer:    "stayctl-dev-authority",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return issuedToken{}, fmt.Errorf("sign access token: %w", err)
	}
	// NumericDate truncates to whole seconds; report what the token says.
	return issuedToken{value: signed, expiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Server) verifyAccess(token string) (*accessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("stayctl-dev-authority"),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &accessClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Generation < s.generation.Load() {
		return nil, errors.New("access token was revoked")
	}
	return claims, nil
}
