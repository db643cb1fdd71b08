package status

import (
	"fmt"
	"math"
	"strings"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	SessionID domain.SessionID
	Channel   string
}

const readinessBarWidth = 10

func renderView(statuses []application.ParticipantStatus, opts RenderOptions, s styles) string {
	title := "Classroom"
	if opts.SessionID != "" {
		title = fmt.Sprintf("Classroom %s", opts.SessionID)
	}

	header := fmt.Sprintf("participants: %d", len(statuses))
	if opts.Channel != "" {
		header += fmt.Sprintf("  channel: %s", opts.Channel)
	}

	lines := []string{
		s.title.Render(title),
		s.header.Render(header),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No participants."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderParticipant(status, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderParticipant(status application.ParticipantStatus, s styles) string {
	gate := status.Gate
	parts := []string{
		s.participant.Render(fmt.Sprintf("%s (%s)", gate.Participant, authorityLabel(gate.Authority))),
		gateLine(status, s),
		readinessLine(gate.Readiness, gate.Forced, s),
	}

	if gate.State == domain.GateEntered || gate.State == domain.GateActive || gate.State == domain.GateDisconnected {
		parts = append(parts, viewLine(status.View, s))
	}
	if gate.Authority == domain.AuthorityBroadcaster && status.Termination != "" && status.Termination != domain.TerminationActive {
		parts = append(parts, s.warning.Render(fmt.Sprintf("termination: %s", status.Termination)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func authorityLabel(authority domain.Authority) string {
	if authority == "" {
		return "unknown"
	}
	return string(authority)
}

func gateLine(status application.ParticipantStatus, s styles) string {
	gate := status.Gate
	state := gateStyle(gate.State, s).Render(string(gate.State))
	line := s.key.Render("gate:") + " " + state

	if gate.State == domain.GateEntered && !status.Synced {
		line += " " + s.warning.Render("[awaiting sync]")
	}
	if gate.Reconnects > 0 {
		line += " " + s.detail.Render(fmt.Sprintf("(reconnects: %d)", gate.Reconnects))
	}
	if gate.State == domain.GateLeft && gate.LeaveReason != "" {
		line += " " + s.detail.Render(fmt.Sprintf("(%s)", strings.ReplaceAll(gate.LeaveReason, "_", " ")))
	}
	return line
}

func gateStyle(state domain.GateState, s styles) lipgloss.Style {
	switch state {
	case domain.GateActive:
		return s.healthy
	case domain.GateDisconnected:
		return s.warning
	case domain.GateLeft:
		return s.empty
	default:
		return s.detail
	}
}

func readinessLine(record domain.ReadinessRecord, forced bool, s styles) string {
	checks := []struct {
		label string
		ok    bool
	}{
		{"permissions", record.PermissionsGranted},
		{"mic", record.MicTested},
		{"speaker", record.SpeakerTested},
		{"camera", record.CameraPreviewed},
		{"ready", record.ReadyConfirmed},
	}

	done := 0
	marks := make([]string, 0, len(checks))
	for _, check := range checks {
		mark := " "
		if check.ok {
			mark = "x"
			done++
		}
		marks = append(marks, fmt.Sprintf("[%s] %s", mark, check.label))
	}

	percent := 100 * float64(done) / float64(len(checks))
	countStyle := lipgloss.NewStyle().Foreground(interpolateColor(percent, 0, 100))
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("readiness:"),
		" ",
		renderProgressBar(percent, readinessBarWidth, s),
		" ",
		countStyle.Render(fmt.Sprintf("%d/%d", done, len(checks))),
		" ",
		s.detail.Render(strings.Join(marks, " ")),
	)
	if forced {
		line += " " + s.warning.Render("[forced]")
	}
	return line
}

func viewLine(view domain.ViewState, s styles) string {
	scene := "none"
	if !view.Scene.IsZero() {
		scene = view.Scene.String()
	}

	line := fmt.Sprintf("camera: x=%s y=%s scale=%.2f  scene: %s",
		formatCoord(view.Camera.X), formatCoord(view.Camera.Y), view.Camera.Scale, scene)
	if view.Tool != "" {
		line += fmt.Sprintf("  tool: %s", view.Tool)
	}
	if view.InputBlocked {
		line += "  [input blocked]"
	}

	rendered := s.detail.Render(line)
	if !view.Bound {
		rendered += " " + s.warning.Render("[unbound]")
	}
	return rendered
}

func formatCoord(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
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

	// ANSI 256 greyscale ramp from 240 (faded) to 255 (bright white).
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
