// ABOUTME: Stream session state machine
// ABOUTME: Owns device, generator and scheduler for one play/stop lifecycle
package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/harperreed/brownnoise/pkg/audio/output"
	"github.com/harperreed/brownnoise/pkg/noise"
)

var (
	// ErrDeviceUnavailable is returned when Play could not bring up a device
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrUnsupportedDevice is returned for devices offering neither pull
	// nor queue playback
	ErrUnsupportedDevice = errors.New("device supports neither pull nor queue playback")
)

// State is the session lifecycle state
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options are the tunables read at each Play
type Options struct {
	// FadeEnabled ramps gain in on gain capable devices
	FadeEnabled bool

	// FadeDuration is the fade-in length (default 3s)
	FadeDuration time.Duration

	// PushBufferDuration is the queue buffer length (default 2s)
	PushBufferDuration time.Duration

	// MinQueuedBuffers is the queue depth kept while running (default 3)
	MinQueuedBuffers int
}

// DefaultOptions returns fade on, 2s buffers, 3 queued
func DefaultOptions() Options {
	return Options{
		FadeEnabled:        true,
		FadeDuration:       audio.FadeInDuration,
		PushBufferDuration: audio.PushBufferDuration,
		MinQueuedBuffers:   audio.MinQueuedBuffers,
	}
}

func (o Options) withDefaults() Options {
	if o.FadeDuration <= 0 {
		o.FadeDuration = audio.FadeInDuration
	}
	if o.PushBufferDuration <= 0 {
		o.PushBufferDuration = audio.PushBufferDuration
	}
	if o.MinQueuedBuffers <= 0 {
		o.MinQueuedBuffers = audio.MinQueuedBuffers
	}
	return o
}

// Config holds session configuration
type Config struct {
	// Factory opens the output device at each Play
	Factory output.Factory

	// Format requested from the factory (default mono 44100 Hz)
	Format audio.Format

	// Options are the initial tunables; nil means DefaultOptions
	Options *Options

	// Interruptions is optional; without it the session never yields
	Interruptions InterruptionSource

	// NewGenerator builds the generator for each Play (default noise.New(nil))
	NewGenerator func() *noise.Generator

	// OnStateChange is called outside the session lock on every transition
	OnStateChange func(State)

	Logger *slog.Logger
}

// Stats is a snapshot of the current or last session
type Stats struct {
	SessionID   string
	State       State
	Interrupted bool
	DeviceTime  time.Duration
	SchedulerStats
}

// Session plays brown noise through one device at a time
type Session struct {
	mu          sync.Mutex
	factory     output.Factory
	format      audio.Format
	opts        Options
	newGen      func() *noise.Generator
	source      InterruptionSource
	monitor     *InterruptionMonitor
	onChange    func(State)
	logger      *slog.Logger
	state       State
	interrupted bool
	pending     []State

	// per-play resources, acquired in order
	id      string
	log     *slog.Logger
	device  output.Device
	gain    output.GainNode
	gen     *noise.Generator
	sched   Scheduler
	focused bool
	last    SchedulerStats
}

// NewSession creates an idle session and installs the interruption
// monitor when a source is configured
func NewSession(cfg Config) (*Session, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("session requires a device factory")
	}
	if cfg.Format.SampleRate <= 0 {
		cfg.Format = audio.Mono(audio.DefaultSampleRate)
	}
	if cfg.Format.Channels <= 0 {
		cfg.Format.Channels = 1
	}
	opts := DefaultOptions()
	if cfg.Options != nil {
		opts = cfg.Options.withDefaults()
	}
	if cfg.NewGenerator == nil {
		cfg.NewGenerator = func() *noise.Generator { return noise.New(nil) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Session{
		factory:  cfg.Factory,
		format:   cfg.Format,
		opts:     opts,
		newGen:   cfg.NewGenerator,
		source:   cfg.Interruptions,
		onChange: cfg.OnStateChange,
		logger:   cfg.Logger,
		log:      cfg.Logger,
	}

	if s.source != nil {
		s.monitor = NewInterruptionMonitor(s.source, s.interrupt, cfg.Logger)
		if err := s.monitor.Install(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SetOptions replaces the tunables; they apply from the next Play
func (s *Session) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts.withDefaults()
}

// SetFactory replaces the device factory; it applies from the next Play
func (s *Session) SetFactory(factory output.Factory) {
	if factory == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factory = factory
}

// Play starts streaming. It is a no-op unless the session is idle.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil
	}

	s.interrupted = false
	s.last = SchedulerStats{}
	s.id = uuid.NewString()
	s.log = s.logger.With("session", s.id)
	s.setState(StateStarting)

	err := s.start()
	if err != nil {
		s.log.Error("failed to start playback", "error", err)
		s.teardown()
		s.setState(StateIdle)
	} else {
		s.setState(StateRunning)
		s.log.Info("playback started", "mode", s.last.Mode)
	}

	pending := s.takePending()
	s.mu.Unlock()

	s.notify(pending)
	return err
}

// start acquires resources in order (must hold s.mu)
func (s *Session) start() error {
	device, err := s.factory(s.format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	s.device = device

	s.gen = s.newGen()

	// prefer the queue when a device offers both
	switch d := device.(type) {
	case output.QueueDevice:
		s.sched = NewQueueScheduler(d, s.gen, QueueOptions{
			BufferDuration: s.opts.PushBufferDuration,
			MinQueued:      s.opts.MinQueuedBuffers,
			Logger:         s.log,
		})
	case output.PullDevice:
		s.sched = NewPullScheduler(d, s.gen, s.log)
	default:
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, ErrUnsupportedDevice)
	}

	if gd, ok := device.(output.GainDevice); ok {
		s.gain = gd.Gain()
		if s.opts.FadeEnabled {
			Fade{Duration: s.opts.FadeDuration}.Apply(s.gain, device.CurrentTime())
		}
	}

	if err := s.sched.Start(); err != nil {
		// nothing was started, so teardown must not stop it
		s.sched = nil
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	s.last = s.sched.Stats()

	if s.source != nil {
		if err := s.source.RequestFocus(); err != nil {
			s.log.Warn("audio focus request failed", "error", err)
		} else {
			s.focused = true
		}
	}

	return nil
}

// teardown releases whatever was acquired, in order (must hold s.mu)
func (s *Session) teardown() {
	if s.sched != nil {
		if err := s.sched.Stop(); err != nil {
			s.log.Warn("scheduler stop error", "error", err)
		}
		s.last = s.sched.Stats()
		s.sched = nil
	}

	if s.gain != nil {
		s.gain.Disconnect()
		s.gain = nil
	}

	if s.device != nil {
		if err := s.device.Close(); err != nil {
			s.log.Warn("device close error", "error", err)
		}
		s.device = nil
	}

	if s.gen != nil {
		s.gen.Reset()
		s.gen = nil
	}

	if s.focused {
		if err := s.source.AbandonFocus(); err != nil {
			s.log.Warn("audio focus abandon failed", "error", err)
		}
		s.focused = false
	}
}

// Stop tears the stream down. Calling it when idle is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.stopLocked()
	s.log.Info("playback stopped")
	pending := s.takePending()
	s.mu.Unlock()

	s.notify(pending)
	return nil
}

func (s *Session) stopLocked() {
	s.setState(StateStopping)
	s.teardown()
	s.setState(StateIdle)
}

// Toggle stops a running session and starts an idle one
func (s *Session) Toggle() error {
	if s.Playing() {
		return s.Stop()
	}
	return s.Play()
}

// interrupt is the monitor callback for an interruption that began
func (s *Session) interrupt() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.interrupted = true
	s.stopLocked()
	s.log.Info("playback interrupted")
	pending := s.takePending()
	s.mu.Unlock()

	s.notify(pending)
}

// Playing reports whether the session is running
func (s *Session) Playing() bool {
	return s.State() == StateRunning
}

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interrupted reports whether the last session ended by interruption.
// Cleared by the next Play.
func (s *Session) Interrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

// Stats returns a snapshot of the current or last session
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		SessionID:      s.id,
		State:          s.state,
		Interrupted:    s.interrupted,
		SchedulerStats: s.last,
	}
	if s.sched != nil {
		st.SchedulerStats = s.sched.Stats()
	}
	if s.device != nil {
		st.DeviceTime = s.device.CurrentTime()
	}
	return st
}

// Close stops playback and uninstalls the interruption monitor
func (s *Session) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	if s.monitor != nil {
		return s.monitor.Close()
	}
	return nil
}

// setState records a transition for notify (must hold s.mu)
func (s *Session) setState(state State) {
	s.log.Debug("session state", "from", s.state, "to", state)
	s.state = state
	s.pending = append(s.pending, state)
}

func (s *Session) takePending() []State {
	pending := s.pending
	s.pending = nil
	return pending
}

func (s *Session) notify(states []State) {
	if s.onChange == nil {
		return
	}
	for _, state := range states {
		s.onChange(state)
	}
}
