package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/application"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
	// StaleAfter flags a snapshot older than this. Zero disables the check.
	StaleAfter time.Duration
}

func renderView(report application.StatusReport, opts RenderOptions, s styles) string {
	if opts.Now.IsZero() {
		opts.Now = report.GeneratedAt
	}

	lines := []string{
		s.title.Render("mailbot status"),
		s.header.Render(fmt.Sprintf("account: %s", report.Tokens.Account)),
		s.section.Render(renderDaemon(report.Daemon, opts, s)),
		s.section.Render(renderBreakers(report.Breakers, opts, s)),
		s.section.Render(renderTokens(report.Tokens, opts, s)),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderDaemon(daemon application.DaemonStatus, opts RenderOptions, s styles) string {
	parts := []string{s.heading.Render("Daemon")}

	switch {
	case daemon.Running:
		parts = append(parts, s.ok.Render(fmt.Sprintf("running (pid %d)", daemon.PID)))
	case daemon.PID > 0:
		parts = append(parts, s.warning.Render(fmt.Sprintf("not running (stale lock from pid %d)", daemon.PID)))
	default:
		parts = append(parts, s.empty.Render("not running"))
	}

	snapshot := daemon.Snapshot
	if snapshot == nil {
		parts = append(parts, s.empty.Render("no snapshot recorded"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	line := s.detail.Render(fmt.Sprintf("last snapshot %s, drafts in progress: %d", formatRelative(snapshot.TakenAt, opts.Now), len(snapshot.Sessions)))
	if opts.StaleAfter > 0 && daemon.Running && opts.Now.Sub(snapshot.TakenAt) > opts.StaleAfter {
		line += " " + s.warning.Render("[stale]")
	}
	parts = append(parts, line)

	for _, session := range snapshot.Sessions {
		parts = append(parts, s.meta.Render(fmt.Sprintf("  chat %d: %s at %s, expires %s",
			session.ChatID, session.Kind, session.Step, formatRelative(session.ExpiresAt, opts.Now))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderBreakers(breakers []domain.BreakerStatus, opts RenderOptions, s styles) string {
	parts := []string{s.heading.Render("Circuit breakers")}
	if len(breakers) == 0 {
		parts = append(parts, s.empty.Render("none configured"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	for _, breaker := range breakers {
		parts = append(parts, breakerLine(breaker, opts, s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func breakerLine(breaker domain.BreakerStatus, opts RenderOptions, s styles) string {
	state := breaker.State
	label := s.key.Render(fmt.Sprintf("%-7s", string(breaker.Operation)+":"))
	bar := renderProgressBar(state.FailureCount, state.MaxFailures, 12, s)
	count := s.meta.Render(fmt.Sprintf("%d/%d failures", state.FailureCount, state.MaxFailures))

	verdict := s.ok.Render("closed")
	if breaker.Open {
		verdict = s.warning.Render(fmt.Sprintf("open, retries %s", formatRelative(state.ReopensAt(), opts.Now)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", bar, " ", count, " ", verdict)
}

func renderTokens(tokens domain.TokenStatus, opts RenderOptions, s styles) string {
	parts := []string{s.heading.Render("Credentials")}

	if !tokens.HasAppCredentials {
		parts = append(parts, s.meta.Render("app credentials: not cached yet"))
	} else {
		parts = append(parts, s.detail.Render("app credentials: cached"))
	}

	switch {
	case !tokens.HasTokens:
		parts = append(parts, s.warning.Render("tokens: missing, run `mailbot auth login`"))
	case tokens.ExpiryDate.IsZero():
		parts = append(parts, s.detail.Render("access token: no expiry"))
	case tokens.ExpiryDate.Before(opts.Now):
		parts = append(parts, s.detail.Render(fmt.Sprintf("access token: expired %s, refreshed on next use", formatRelative(tokens.ExpiryDate, opts.Now))))
	default:
		parts = append(parts, s.detail.Render(fmt.Sprintf("access token: expires %s", formatRelative(tokens.ExpiryDate, opts.Now))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderProgressBar(used, max, width int, s styles) string {
	if width <= 0 || max <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * float64(used) / float64(max)))
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

func formatRelative(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.UTC().Format(time.RFC3339)
	}

	delta := at.Sub(now)
	clock := at.UTC().Format("15:04")
	if delta < 0 {
		return fmt.Sprintf("%s ago (%s)", humanDuration(-delta), clock)
	}
	return fmt.Sprintf("in %s (%s)", humanDuration(delta), clock)
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return plural(int(math.Round(d.Minutes())), "minute")
	case d < 24*time.Hour:
		return plural(int(math.Round(d.Hours())), "hour")
	default:
		return plural(int(math.Round(d.Hours()/24)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
