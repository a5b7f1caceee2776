package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"tmscraper/pkg/session"
)

// TUI runs the wizard in the alternate screen
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a wizard editing sess
func NewTUI(ctx context.Context, sess *session.Session, opts Options) *TUI {
	model := NewModel(ctx, sess, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	return &TUI{
		program: program,
		model:   model,
	}
}

// Start blocks until the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	if t.model.cancel != nil {
		t.model.cancel()
	}
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Session returns the session as left by the user
func (t *TUI) Session() *session.Session {
	return t.model.Session()
}
