// Package report renders workflow state for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/projector"
	"github.com/joeblew999/droneflow/internal/workflow"
)

// Theme holds the colors used by the report.
type Theme struct {
	Primary lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Water   lipgloss.AdaptiveColor
	Drain   lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
}

// DefaultTheme matches the workspace layer colors.
var DefaultTheme = Theme{
	Primary: lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"},
	Success: lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"},
	Warning: lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"},
	Error:   lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"},
	Water:   lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#06B6D4"},
	Drain:   lipgloss.AdaptiveColor{Light: "#9333EA", Dark: "#A855F7"},
	Muted:   lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
	Border:  lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},
}

// Report renders snapshots and run history.
type Report struct {
	theme Theme
	width int
}

// New creates a report with the given theme. width <= 0 disables the box width.
func New(theme Theme, width int) *Report {
	return &Report{theme: theme, width: width}
}

func (r *Report) phaseStyle(p workflow.Phase) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch p {
	case workflow.Analyzed:
		return s.Foreground(r.theme.Success)
	case workflow.Failed:
		return s.Foreground(r.theme.Error)
	case workflow.Uploading, workflow.Processing:
		return s.Foreground(r.theme.Warning)
	default:
		return s.Foreground(r.theme.Primary)
	}
}

func (r *Report) box() lipgloss.Style {
	b := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(r.theme.Border).
		Padding(0, 1)
	if r.width > 0 {
		b = b.Width(r.width)
	}
	return b
}

// Event renders an event's snapshot under the event phase, so failures show
// as failed rather than as the phase the workflow rolled back to.
func (r *Report) Event(ev workflow.Event) string {
	s := ev.Snapshot
	s.Phase = ev.Phase
	return r.Snapshot(s)
}

// Snapshot renders the phase, file, result telemetry and last notice.
func (r *Report) Snapshot(s workflow.Snapshot) string {
	label := lipgloss.NewStyle().Foreground(r.theme.Muted).Width(12)
	title := lipgloss.NewStyle().Foreground(r.theme.Primary).Bold(true).Render("DRONEFLOW")

	rows := []string{title, ""}
	row := func(k, v string) {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label.Render(k), v))
	}

	row("Phase", r.phaseStyle(s.Phase).Render(s.Phase.String()))
	if s.File != nil {
		file := s.File.Name
		if s.File.RemoteID != "" {
			file += lipgloss.NewStyle().Foreground(r.theme.Muted).Render(" (" + s.File.RemoteID + ")")
		}
		row("File", file)
	}
	if s.Result != nil {
		sum := s.Result.Summary
		if sum.Present {
			row("Min datum", fmt.Sprintf("%.2f m", sum.MinElevation))
			row("Max datum", fmt.Sprintf("%.2f m", sum.MaxElevation))
		}
		row("Water", r.layer(s.Result.Waterlogging, r.theme.Water))
		row("Drainage", r.layer(s.Result.Drainage, r.theme.Drain))
	}
	row("Center", formatCenter(s.Center))
	if s.Notice != nil {
		rows = append(rows, "", lipgloss.NewStyle().Foreground(r.theme.Error).Render(s.Notice.Message))
	}

	return r.box().Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (r *Report) layer(l *projector.Layer, color lipgloss.AdaptiveColor) string {
	if l == nil {
		return lipgloss.NewStyle().Foreground(r.theme.Muted).Render("not reported")
	}
	return lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%d features", l.FeatureCount()))
}

// Runs renders run history as a compact table, newest first.
func (r *Report) Runs(entries []ledger.Entry) string {
	if len(entries) == 0 {
		return lipgloss.NewStyle().Foreground(r.theme.Muted).Render("No runs recorded")
	}

	header := lipgloss.NewStyle().Foreground(r.theme.Primary).Bold(true)
	cell := lipgloss.NewStyle().Width(10)
	name := lipgloss.NewStyle().Width(24)

	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top,
		header.Inherit(cell).Render("OUTCOME"),
		header.Inherit(name).Render("FILE"),
		header.Render("DETAIL"),
	)}
	for _, e := range entries {
		outcome := lipgloss.NewStyle().Foreground(r.theme.Success)
		detail := fmt.Sprintf("%d water, %d drainage", e.WaterloggingFeatures, e.DrainageFeatures)
		if e.Outcome == ledger.OutcomeFailed {
			outcome = outcome.Foreground(r.theme.Error)
			detail = e.Message
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			outcome.Inherit(cell).Render(e.Outcome),
			name.Render(truncate(e.FileName, 22)),
			detail,
		))
	}
	return strings.Join(lines, "\n")
}

func formatCenter(c projector.MapCenter) string {
	return fmt.Sprintf("%.5f, %.5f", c.Latitude, c.Longitude)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
