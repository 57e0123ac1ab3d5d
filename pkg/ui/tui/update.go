package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"skycrawl/pkg/crawler"
)

// FollowersMsg reports phase one progress
type FollowersMsg struct {
	Discovered int
	Queued     int
}

// PostsMsg reports phase two progress
type PostsMsg struct {
	Posts     int
	Remaining int
}

// DoneMsg is sent once the run completed
type DoneMsg struct {
	Summary crawler.Summary
}

// ErrorMsg is sent when the run failed
type ErrorMsg struct {
	Err error
}

// LogMsg adds a line to the activity panel
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg refreshes the polled stats
type TickMsg time.Time

// Update handles all messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clamp(msg.Width/2-10, 10, 80)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.refreshStats()
		if m.Finished() {
			return m, nil
		}
		return m, tickCmd()

	case FollowersMsg:
		if m.phase == PhaseStarting {
			m.phase = PhaseFollowers
			m.addLog("INFO", "Crawling followers of "+m.cfg.Seed)
		}
		m.discovered = msg.Discovered
		m.queued = msg.Queued
		return m, nil

	case PostsMsg:
		if m.phase != PhaseFeeds {
			m.phase = PhaseFeeds
			m.queued = 0
			m.addLog("INFO", fmt.Sprintf("Harvesting feeds of %d users", m.discovered))
		}
		m.posts = msg.Posts
		m.remaining = msg.Remaining
		return m, nil

	case DoneMsg:
		summary := msg.Summary
		m.summary = &summary
		m.phase = PhaseDone
		m.discovered = summary.Users
		m.posts = summary.Posts
		m.remaining = 0
		m.refreshStats()
		m.addLog("SUCCESS", fmt.Sprintf("Done: %d users, %d posts", summary.Users, summary.Posts))
		if summary.BoundReached {
			m.addLog("WARN", "User bound reached")
		}
		return m, nil

	case ErrorMsg:
		m.runErr = msg.Err
		m.phase = PhaseFailed
		m.refreshStats()
		m.addLog("ERROR", msg.Err.Error())
		return m, nil

	case LogMsg:
		m.addLog(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		if !m.Finished() && m.cfg.OnQuit != nil {
			m.cfg.OnQuit()
		}
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logs = nil
		return m, nil
	}

	if m.Finished() {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
