package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"skycrawl/pkg/crawler"
	"skycrawl/pkg/metrics"
)

// Phase is the stage of the run shown in the header
type Phase string

const (
	PhaseStarting  Phase = "starting"
	PhaseFollowers Phase = "followers"
	PhaseFeeds     Phase = "feeds"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

const maxLogLines = 50

// Config describes the run the screen is attached to
type Config struct {
	Seed     string
	MaxUsers int
	// Stats, when set, is polled on every tick for in-flight and failure counts
	Stats func() metrics.Snapshot
	// OnQuit is called when the user quits before the run finishes
	OnQuit func()
}

// LogLine is one entry in the activity panel
type LogLine struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model for the progress screen
type Model struct {
	cfg      Config
	spinner  spinner.Model
	progress progress.Model

	phase      Phase
	discovered int
	queued     int
	posts      int
	remaining  int
	stats      metrics.Snapshot
	summary    *crawler.Summary
	runErr     error
	startTime  time.Time

	logs     []LogLine
	width    int
	height   int
	showHelp bool
	quitting bool
}

// NewModel creates the model for a run
func NewModel(cfg Config) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(skyBlue)

	return &Model{
		cfg:       cfg,
		spinner:   s,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		phase:     PhaseStarting,
		startTime: time.Now(),
	}
}

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Phase returns the current phase
func (m *Model) Phase() Phase {
	return m.phase
}

// Finished reports whether the run ended, successfully or not
func (m *Model) Finished() bool {
	return m.phase == PhaseDone || m.phase == PhaseFailed
}

// Percent is the progress of the current phase between 0 and 1. Phase one
// is measured against the user bound, phase two against the users found.
func (m *Model) Percent() float64 {
	var p float64
	switch m.phase {
	case PhaseFollowers:
		if m.cfg.MaxUsers > 0 {
			p = float64(m.discovered) / float64(m.cfg.MaxUsers)
		}
	case PhaseFeeds:
		if m.discovered > 0 {
			p = float64(m.discovered-m.remaining) / float64(m.discovered)
		}
	case PhaseDone:
		p = 1
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func (m *Model) addLog(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = alertRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logs = append(m.logs, LogLine{Time: time.Now(), Level: level, Message: message, Color: color})
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

func (m *Model) refreshStats() {
	if m.cfg.Stats != nil {
		m.stats = m.cfg.Stats()
	}
}

func (m *Model) inFlight() int64 {
	if m.stats.InFlight == nil {
		return 0
	}
	switch m.phase {
	case PhaseFollowers:
		return m.stats.InFlight[metrics.PhaseFollowers]
	case PhaseFeeds:
		return m.stats.InFlight[metrics.PhaseFeeds]
	}
	return 0
}

func (m *Model) failures() int64 {
	return m.stats.ExpansionsFailed + m.stats.FeedsFailed
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
