// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the noise player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/brownnoise/pkg/stream"
)

// UI owns the bubbletea program
type UI struct {
	program *tea.Program
}

// New creates the TUI for controller
func New(controller Controller, backend string) *UI {
	return &UI{
		program: tea.NewProgram(NewModel(controller, backend), tea.WithAltScreen()),
	}
}

// Run blocks until the user quits
func (u *UI) Run() error {
	_, err := u.program.Run()
	return err
}

// Update pushes a session snapshot, e.g. after a remote toggle
func (u *UI) Update(stats stream.Stats) {
	u.program.Send(StatusMsg(stats))
}

// Quit asks the program to exit
func (u *UI) Quit() {
	u.program.Quit()
}
