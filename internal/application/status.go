package application

import (
	"context"
	"time"

	"github.com/bnema/stayctl/internal/domain"
)

type SessionStatus struct {
	Authenticated bool             `json:"authenticated"`
	Remember      bool             `json:"remember"`
	Area          domain.Area      `json:"area,omitempty"`
	ExpiresAt     time.Time        `json:"expiresAt,omitzero"`
	NextRefresh   time.Time        `json:"nextRefresh,omitzero"`
	Identity      *domain.Identity `json:"user,omitempty"`
}

// Status is a read-only snapshot of the session. It never refreshes.
func (s *AuthService) Status(ctx context.Context) SessionStatus {
	session, ok := s.Current(ctx)
	if !ok {
		return SessionStatus{}
	}

	status := SessionStatus{
		Authenticated: session.Valid(s.clock.Now()),
		Remember:      session.Remember,
		Area:          domain.AreaFor(session.Remember),
		ExpiresAt:     session.ExpiresAt,
	}
	if next, armed := s.scheduler.NextFire(); armed {
		status.NextRefresh = next
	}
	if identity, ok := s.Identity(ctx); ok {
		status.Identity = &identity
	}
	return status
}
