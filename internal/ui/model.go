// ABOUTME: Bubbletea model for the noise player TUI
// ABOUTME: One toggle control plus live session status
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/harperreed/brownnoise/pkg/stream"
)

// Controller is the playback surface the TUI drives
type Controller interface {
	Toggle() error
	Stats() stream.Stats
}

// Model represents the TUI state
type Model struct {
	controller Controller
	keys       KeyMap
	backend    string

	stats   stream.Stats
	lastErr error

	width    int
	height   int
	quitting bool
}

// StatusMsg carries a fresh session snapshot
type StatusMsg stream.Stats

// errMsg reports a failed toggle
type errMsg struct{ err error }

type tickMsg time.Time

const refreshInterval = 500 * time.Millisecond

// NewModel creates a new TUI model
func NewModel(controller Controller, backend string) Model {
	return Model{
		controller: controller,
		keys:       DefaultKeyMap(),
		backend:    backend,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh polls the controller for stats
func (m Model) refresh() tea.Cmd {
	if m.controller == nil {
		return nil
	}
	c := m.controller
	return func() tea.Msg {
		return StatusMsg(c.Stats())
	}
}

// toggle runs the controller toggle off the UI goroutine
func (m Model) toggle() tea.Cmd {
	if m.controller == nil {
		return nil
	}
	c := m.controller
	return func() tea.Msg {
		if err := c.Toggle(); err != nil {
			return errMsg{err}
		}
		return StatusMsg(c.Stats())
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tea.Batch(m.refresh(), tickEvery())
	case StatusMsg:
		m.stats = stream.Stats(msg)
	case errMsg:
		m.lastErr = msg.err
		return m, m.refresh()
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.lastErr = nil
		return m, m.toggle()
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("130")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	playingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Brown Noise"))
	b.WriteString("\n\n")

	b.WriteString(m.renderState())
	b.WriteString(m.renderStats())

	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderState() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("State:    "))
	switch {
	case m.stats.State == stream.StateRunning:
		b.WriteString(playingStyle.Render("▶ playing"))
	case m.stats.Interrupted:
		b.WriteString(warnStyle.Render("⏸ interrupted by another player"))
	default:
		b.WriteString(valueStyle.Render("⏸ " + m.stats.State.String()))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Backend:  "))
	b.WriteString(valueStyle.Render(m.backend))
	if m.stats.Mode != "" {
		b.WriteString(valueStyle.Render(fmt.Sprintf(" (%s)", m.stats.Mode)))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderStats() string {
	var b strings.Builder

	if m.stats.Mode == stream.ModePush {
		b.WriteString(headerStyle.Render("Queue:    "))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%d buffers", m.stats.QueueDepth)))
		b.WriteString("\n")

		if m.stats.Underruns > 0 {
			b.WriteString(headerStyle.Render("Underruns:"))
			b.WriteString(warnStyle.Render(fmt.Sprintf(" %d", m.stats.Underruns)))
			b.WriteString("\n")
		}
	}

	b.WriteString(headerStyle.Render("Played:   "))
	b.WriteString(valueStyle.Render(m.stats.DeviceTime.Round(time.Second).String()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Samples:  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%s)",
		humanize.Comma(m.stats.SamplesGenerated),
		humanize.Bytes(uint64(m.stats.SamplesGenerated)*4))))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, 2)
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}
