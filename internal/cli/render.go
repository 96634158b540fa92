package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"silentwave/internal/alerts"
	"silentwave/internal/events"
	"silentwave/internal/models"
)

var (
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#C62828")).Padding(0, 1)
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#F9A825")).Padding(0, 1)
	drillStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#1565C0")).Padding(0, 1)
	clearStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E7D32"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935"))
)

func severityStyle(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeverityCritical:
		return criticalStyle
	case models.SeverityWarning:
		return warningStyle
	case models.SeverityDrill:
		return drillStyle
	default:
		return mutedStyle
	}
}

// printer renders dashboard events as terminal lines.
type printer struct {
	out      io.Writer
	lastNews string
}

func (p *printer) print(ev events.Event) {
	if line := p.render(ev); line != "" {
		fmt.Fprintln(p.out, line)
	}
}

func (p *printer) render(ev events.Event) string {
	stamp := mutedStyle.Render(ev.At.Local().Format("15:04:05"))

	switch ev.Type {
	case events.TypeAlert:
		st, ok := ev.Data.(models.State)
		if !ok || st.CurrentAlert == nil {
			return ""
		}
		line := fmt.Sprintf("%s %s %s", stamp, severityStyle(st.Severity).Render(st.Label), strings.Join(st.CurrentAlert.Cities, ", "))
		if st.RemainingShelterTime != nil {
			line += fmt.Sprintf(" (%ds)", *st.RemainingShelterTime)
		}
		if st.CurrentAlert.Instructions != "" {
			line += "\n         " + st.CurrentAlert.Instructions
		}
		return line

	case events.TypeClear:
		return fmt.Sprintf("%s %s", stamp, clearStyle.Render(alerts.Label(models.Alert{Type: models.AlertNone})))

	case events.TypeCountdown:
		left, ok := ev.Data.(int)
		// every second is too chatty for a scrolling terminal
		if !ok || (left > 10 && left%15 != 0) {
			return ""
		}
		return fmt.Sprintf("%s %s", stamp, mutedStyle.Render(fmt.Sprintf("%ds to shelter", left)))

	case events.TypeStatus:
		status, ok := ev.Data.(models.ConnectionStatus)
		if !ok {
			return ""
		}
		if status == models.StatusDisconnected {
			return fmt.Sprintf("%s %s", stamp, errorStyle.Render("disconnected"))
		}
		return ""

	case events.TypeNews:
		items, ok := ev.Data.([]models.NewsItem)
		if !ok || len(items) == 0 || items[0].Title == p.lastNews {
			return ""
		}
		p.lastNews = items[0].Title
		return fmt.Sprintf("%s %s", stamp, mutedStyle.Render("📰 "+items[0].Title))
	}
	return ""
}

func formatAge(now, ts time.Time) string {
	if ts.IsZero() || ts.After(now) {
		return "now"
	}
	return now.Sub(ts).Truncate(time.Second).String() + " ago"
}
