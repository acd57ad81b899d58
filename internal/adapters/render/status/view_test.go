package status

import (
	"testing"
	"time"

	"github.com/bnema/stayctl/internal/application"
	"github.com/bnema/stayctl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSignedInRememberedSession(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(application.SessionStatus{
		Authenticated: true,
		Remember:      true,
		Area:          domain.AreaDurable,
		ExpiresAt:     now.Add(12 * time.Minute),
		NextRefresh:   now.Add(11 * time.Minute),
		Identity:      &domain.Identity{UserID: "u1", Email: "ada@example.com", DisplayName: "Ada"},
	}, RenderOptions{Now: now, AuthorityURL: "http://localhost:8080/api"})

	require.NoError(t, err)
	assert.Contains(t, output, "authority: http://localhost:8080/api")
	assert.Contains(t, output, "Ada <ada@example.com>")
	assert.Contains(t, output, "state: signed in")
	assert.Contains(t, output, "durable (remembered across restarts)")
	assert.Contains(t, output, "80% left")
	assert.Contains(t, output, "expires in 12 minutes (11:12)")
	assert.Contains(t, output, "next refresh: in 11 minutes (11:11)")
	assert.Contains(t, output, "[")
	assert.NotContains(t, output, "expired")
}

func TestRenderEphemeralSessionWithoutIdentity(t *testing.T) {
	now := time.Date(2026, 2, 14, 23, 50, 0, 0, time.UTC)

	output, err := Render(application.SessionStatus{
		Authenticated: true,
		Area:          domain.AreaEphemeral,
		ExpiresAt:     now.Add(30 * time.Minute),
	}, RenderOptions{Now: now, TokenLifetime: time.Hour})

	require.NoError(t, err)
	assert.Contains(t, output, "identity unavailable")
	assert.Contains(t, output, "ephemeral (this login session only)")
	assert.Contains(t, output, "50% left")
	assert.Contains(t, output, "expires in 30 minutes (00:20 on 15 Feb)")
	assert.Contains(t, output, "next refresh: not scheduled")
}

func TestRenderExpiredSession(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(application.SessionStatus{
		Remember:  true,
		Area:      domain.AreaDurable,
		ExpiresAt: now.Add(-5 * time.Minute),
		Identity:  &domain.Identity{UserID: "u1"},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "user u1")
	assert.Contains(t, output, "state: expired")
	assert.Contains(t, output, " 0% left")
	assert.Contains(t, output, "expired 10:55")
}

func TestRenderSignedOut(t *testing.T) {
	output, err := Render(application.SessionStatus{}, RenderOptions{Now: time.Now()})

	require.NoError(t, err)
	assert.Contains(t, output, "Not signed in")
	assert.NotContains(t, output, "token:")
}

func TestRenderWithoutClockFallsBackToAbsoluteTimes(t *testing.T) {
	expires := time.Date(2026, 2, 14, 11, 15, 0, 0, time.UTC)

	output, err := Render(application.SessionStatus{
		Authenticated: true,
		Area:          domain.AreaEphemeral,
		ExpiresAt:     expires,
		NextRefresh:   expires.Add(-time.Minute),
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "expires 2026-02-14T11:15:00Z")
	assert.Contains(t, output, "2026-02-14T11:14:00Z")
}
