package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

const barWidth = 24

func renderView(r domain.Report, s styles) string {
	budget := r.Deadline.Sub(r.StartedAt)
	lines := []string{
		s.title.Render(runTitle(r.RunID)),
		s.header.Render(fmt.Sprintf("budget: %s  used: %s", formatDuration(budget), formatDuration(r.Elapsed()))),
	}

	if len(r.Stages) == 0 {
		lines = append(lines, s.empty.Render("No stage was started."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, stage := range r.Stages {
		lines = append(lines, stageLine(stage, budget, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func runTitle(runID string) string {
	if strings.TrimSpace(runID) == "" {
		return "Unlock run"
	}
	return "Unlock run " + runID
}

func stageLine(stage domain.StageReport, budget time.Duration, s styles) string {
	outcome := s.ok.Render("ok")
	if stage.Failure != 0 {
		outcome = s.failure.Render(stage.Failure.String())
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.stage.Render(string(stage.Stage)),
		s.elapsed.Render(formatDuration(stage.Elapsed)),
		" ",
		renderProgressBar(sharePercent(stage.Elapsed, budget), barWidth, s),
		" ",
		outcome,
	)
}

// sharePercent is the part of the run budget a stage consumed.
func sharePercent(elapsed, budget time.Duration) float64 {
	if budget <= 0 {
		return 0
	}
	return clampPercent(float64(elapsed) / float64(budget) * 100)
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(usedPercent) / 100))
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

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}
