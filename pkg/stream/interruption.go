// ABOUTME: Interruption monitor for higher-priority audio
// ABOUTME: Stops the session when another player takes over, never auto-resumes
package stream

import (
	"fmt"
	"log/slog"
	"sync"
)

// InterruptionPhase tells whether an interruption started or finished
type InterruptionPhase int

const (
	InterruptionBegan InterruptionPhase = iota
	InterruptionEnded
)

func (p InterruptionPhase) String() string {
	switch p {
	case InterruptionBegan:
		return "began"
	case InterruptionEnded:
		return "ended"
	default:
		return fmt.Sprintf("InterruptionPhase(%d)", int(p))
	}
}

// Interruption is one platform notification
type Interruption struct {
	Phase        InterruptionPhase
	ShouldResume bool
}

// InterruptionSource delivers platform interruptions and arbitrates audio focus
type InterruptionSource interface {
	// Subscribe registers fn for every interruption until the returned
	// function is called
	Subscribe(fn func(Interruption)) (unsubscribe func(), err error)

	// RequestFocus announces that playback is about to start
	RequestFocus() error

	// AbandonFocus gives focus back after playback stops
	AbandonFocus() error
}

// InterruptionMonitor subscribes to a source once and calls onBegan
// for each interruption that begins
type InterruptionMonitor struct {
	mu          sync.Mutex
	source      InterruptionSource
	onBegan     func()
	unsubscribe func()
	installed   bool
	logger      *slog.Logger
}

// NewInterruptionMonitor creates a monitor; Install subscribes it
func NewInterruptionMonitor(source InterruptionSource, onBegan func(), logger *slog.Logger) *InterruptionMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterruptionMonitor{
		source:  source,
		onBegan: onBegan,
		logger:  logger,
	}
}

// Install subscribes to the source. Further calls are no-ops.
func (m *InterruptionMonitor) Install() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.installed {
		return nil
	}

	unsubscribe, err := m.source.Subscribe(m.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to interruptions: %w", err)
	}

	m.unsubscribe = unsubscribe
	m.installed = true
	return nil
}

// Installed reports whether the monitor is subscribed
func (m *InterruptionMonitor) Installed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installed
}

func (m *InterruptionMonitor) handle(ev Interruption) {
	switch ev.Phase {
	case InterruptionBegan:
		m.logger.Info("audio interruption began")
		if m.onBegan != nil {
			m.onBegan()
		}
	case InterruptionEnded:
		// playback stays stopped until the user starts it again
		m.logger.Info("audio interruption ended", "should_resume", ev.ShouldResume)
	default:
		m.logger.Warn("unknown interruption phase", "phase", ev.Phase)
	}
}

// Close unsubscribes. Safe to call repeatedly.
func (m *InterruptionMonitor) Close() error {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.installed = false
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}
