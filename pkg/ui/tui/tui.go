package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"skycrawl/pkg/crawler"
)

// Program runs the progress screen and forwards crawler callbacks into it
type Program struct {
	program *tea.Program
	model   *Model
}

var _ crawler.Observer = (*Program)(nil)

// NewProgram creates the screen for a run. Extra options are passed to bubbletea.
func NewProgram(cfg Config, opts ...tea.ProgramOption) *Program {
	model := NewModel(cfg)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &Program{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run blocks until the user quits
func (p *Program) Run() error {
	if _, err := p.program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Quit stops the screen
func (p *Program) Quit() {
	p.program.Quit()
}

// FollowersProgress implements crawler.Observer
func (p *Program) FollowersProgress(discovered, queued int) {
	p.program.Send(FollowersMsg{Discovered: discovered, Queued: queued})
}

// PostsProgress implements crawler.Observer
func (p *Program) PostsProgress(posts, remaining int) {
	p.program.Send(PostsMsg{Posts: posts, Remaining: remaining})
}

// Done implements crawler.Observer
func (p *Program) Done(summary crawler.Summary) {
	p.program.Send(DoneMsg{Summary: summary})
}

// Fail shows a run error
func (p *Program) Fail(err error) {
	p.program.Send(ErrorMsg{Err: err})
}

// Log adds a line to the activity panel
func (p *Program) Log(level, format string, args ...interface{}) {
	p.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
