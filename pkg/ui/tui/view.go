package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
╔═══════════════════════════════════════╗
║   ☁  S K Y C R A W L  ☁               ║
║   follower graph · feed harvester     ║
╚═══════════════════════════════════════╝`

// View renders the screen
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{logoStyle.Width(m.width).Render(logo)}

	width := (m.width - 4) / 2
	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderStatsPanel(width),
		"  ",
		m.renderLogsPanel(width),
	)
	sections = append(sections, main)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else if m.Finished() {
		sections = append(sections, helpStyle.Render("Press any key to exit"))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to abort"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" CRAWL ")

	var phase string
	switch m.phase {
	case PhaseDone:
		phase = successStyle.Render("✓ done")
	case PhaseFailed:
		phase = errorStyle.Render("✗ failed")
	default:
		phase = m.spinner.View() + " " + statsValueStyle.Render(string(m.phase))
	}

	failed := m.failures()
	rows := []string{
		row("Seed:", m.cfg.Seed),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Phase:"), phase),
		row("Elapsed:", formatDuration(time.Since(m.startTime))),
		"",
		m.progress.ViewAs(m.Percent()),
		row("Discovered:", fmt.Sprintf("%d / %d", m.discovered, m.cfg.MaxUsers)),
		row("Queue:", fmt.Sprintf("%d", m.queued)),
		row("In flight:", fmt.Sprintf("%d", m.inFlight())),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Failures:"), failureStyle(failed).Render(fmt.Sprintf("%d", failed))),
		row("Posts:", fmt.Sprintf("%d", m.posts)),
	}
	if m.phase == PhaseFeeds {
		rows = append(rows, row("Feeds left:", fmt.Sprintf("%d", m.remaining)))
	}
	if m.summary != nil && m.summary.BoundReached {
		rows = append(rows, warningStyle.Render("user bound reached"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

func row(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" ACTIVITY ")

	start := len(m.logs) - 10
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, entry := range m.logs[start:] {
		message := entry.Message
		if maxLen := width - 25; maxLen > 3 && len(message) > maxLen {
			message = message[:maxLen-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(entry.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(entry.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", entry.Level)),
			logMessageStyle.Render(message),
		))
	}

	content := strings.Join(lines, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the first results...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/esc    - Abort the run and quit
    ?        - Toggle this help
    ctrl+l   - Clear the activity panel

  Failures:
    ` + successStyle.Render("Green") + `    - none
    ` + warningStyle.Render("Orange") + `   - a few tasks failed and were skipped
    ` + errorStyle.Render("Red") + `      - many tasks failed
`
	return panelStyle.Width(m.width).Render(help)
}
