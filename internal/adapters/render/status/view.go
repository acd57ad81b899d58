package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/stayctl/internal/application"
	"github.com/bnema/stayctl/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const defaultTokenLifetime = 15 * time.Minute

type RenderOptions struct {
	Now time.Time
	// TokenLifetime scales the remaining-lifetime bar. Zero means 15m.
	TokenLifetime time.Duration
	AuthorityURL  string
}

func renderView(status application.SessionStatus, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Booking Platform Session")}
	if opts.AuthorityURL != "" {
		lines = append(lines, s.header.Render("authority: "+opts.AuthorityURL))
	}

	if status.ExpiresAt.IsZero() && !status.Authenticated {
		lines = append(lines, s.empty.Render("Not signed in. Run `stayctl login`."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(renderSession(status, opts, s)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(status application.SessionStatus, opts RenderOptions, s styles) string {
	parts := []string{s.user.Render(userTitle(status.Identity))}

	state := s.detail.Render("state: signed in")
	if !status.Authenticated {
		state = s.warning.Render("state: expired")
	}
	parts = append(parts, state, s.detail.Render("storage: "+areaLabel(status)))
	parts = append(parts, lifetimeLine(status, opts, s))
	parts = append(parts, s.detail.Render("next refresh: "+formatNextRefresh(status.NextRefresh, opts.Now)))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func userTitle(identity *domain.Identity) string {
	if identity == nil {
		return "Signed-in user (identity unavailable)"
	}

	name := strings.TrimSpace(identity.DisplayName)
	email := strings.TrimSpace(identity.Email)
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case email != "":
		return email
	case name != "":
		return name
	default:
		return fmt.Sprintf("user %s", identity.UserID)
	}
}

func areaLabel(status application.SessionStatus) string {
	if status.Remember {
		return fmt.Sprintf("%s (remembered across restarts)", status.Area)
	}
	return fmt.Sprintf("%s (this login session only)", status.Area)
}

func lifetimeLine(status application.SessionStatus, opts RenderOptions, s styles) string {
	label := s.key.Render("token:")
	now := opts.Now
	if now.IsZero() {
		return label + " " + s.meta.Render("expires "+status.ExpiresAt.Format(time.RFC3339))
	}

	lifetime := opts.TokenLifetime
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	remaining := status.ExpiresAt.Sub(now)
	leftPercent := clampPercent(100 * remaining.Seconds() / lifetime.Seconds())

	percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(leftPercent, 0, 100))
	meta := percentStyle.Render(fmt.Sprintf("%2.0f%% left", leftPercent))
	expiry := s.meta.Render(fmt.Sprintf("(%s)", formatExpiryRelative(status.ExpiresAt, now)))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		" ",
		renderProgressBar(leftPercent, 24, s),
		" ",
		meta,
		" ",
		expiry,
	)
}

func renderProgressBar(leftPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(leftPercent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatClock(at, now time.Time) string {
	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}
	return at.Format("15:04 on 02 Jan")
}

func formatExpiryRelative(expiresAt, now time.Time) string {
	if !expiresAt.After(now) {
		return "expired " + formatClock(expiresAt, now)
	}
	return fmt.Sprintf("expires %s (%s)", humanizeIn(expiresAt.Sub(now)), formatClock(expiresAt, now))
}

func formatNextRefresh(next, now time.Time) string {
	if next.IsZero() {
		return "not scheduled"
	}
	if now.IsZero() {
		return next.Format(time.RFC3339)
	}
	if !next.After(now) {
		return "due now"
	}
	return fmt.Sprintf("%s (%s)", humanizeIn(next.Sub(now)), formatClock(next, now))
}

func humanizeIn(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "in under a minute"
	case d < time.Hour:
		return plural(int(math.Ceil(d.Minutes())), "minute")
	case d < 24*time.Hour:
		return plural(int(math.Ceil(d.Hours())), "hour")
	default:
		return plural(int(math.Ceil(d.Hours()/24)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("in 1 %s", unit)
	}
	return fmt.Sprintf("in %d %ss", n, unit)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale: 240 (faded) at min, 255 (bright) at max.
	return lipgloss.Color(fmt.Sprintf("%d", int(240.0+15.0*normalized)))
}
