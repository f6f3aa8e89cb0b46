// ABOUTME: Buffer schedulers that keep a device fed from the generator
// ABOUTME: Pull mode fills on device request, push mode keeps a queue topped up
package stream

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/harperreed/brownnoise/pkg/audio/output"
	"github.com/harperreed/brownnoise/pkg/noise"
)

// Scheduling modes reported in stats
const (
	ModePull = "pull"
	ModePush = "push"
)

// Scheduler drives one device for one session
type Scheduler interface {
	// Start wires the device callbacks and starts the device
	Start() error

	// Stop clears the running flag, then stops the device
	Stop() error

	// Stats returns a snapshot of scheduler counters
	Stats() SchedulerStats
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Mode             string
	QueueDepth       int
	BuffersEnqueued  int64
	BuffersCompleted int64
	SamplesGenerated int64
	Underruns        int64
}

// PullScheduler answers device requests directly from the generator
type PullScheduler struct {
	device  output.PullDevice
	running atomic.Bool

	mu  sync.Mutex
	gen *noise.Generator

	samples   atomic.Int64
	callbacks atomic.Int64
	logger    *slog.Logger
}

// NewPullScheduler creates a pull scheduler for device
func NewPullScheduler(device output.PullDevice, gen *noise.Generator, logger *slog.Logger) *PullScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PullScheduler{
		device: device,
		gen:    gen,
		logger: logger,
	}
}

// process is the device callback. It fills exactly len(out) samples, or
// zeroes out once the scheduler has stopped.
func (s *PullScheduler) process(out []float32) {
	if !s.running.Load() {
		clear(out)
		return
	}

	s.mu.Lock()
	if s.gen == nil {
		s.mu.Unlock()
		clear(out)
		return
	}
	s.gen.Fill(out)
	s.mu.Unlock()

	s.samples.Add(int64(len(out)))
	s.callbacks.Add(1)
}

// Start registers the processor and starts the device
func (s *PullScheduler) Start() error {
	s.running.Store(true)
	s.device.SetProcessor(s.process)

	if err := s.device.Start(); err != nil {
		s.running.Store(false)
		s.device.SetProcessor(nil)
		return fmt.Errorf("failed to start pull device: %w", err)
	}

	s.logger.Debug("pull scheduler started", "buffer_size", audio.PullBufferSize)
	return nil
}

// Stop disconnects the processor from the generator
func (s *PullScheduler) Stop() error {
	s.running.Store(false)

	err := s.device.Stop()
	s.device.SetProcessor(nil)

	// waits out any in-flight callback
	s.mu.Lock()
	s.gen = nil
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to stop pull device: %w", err)
	}
	return nil
}

// Stats returns scheduler statistics
func (s *PullScheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Mode:             ModePull,
		BuffersCompleted: s.callbacks.Load(),
		SamplesGenerated: s.samples.Load(),
	}
}

// QueueOptions configures a QueueScheduler
type QueueOptions struct {
	// BufferDuration is the length of each enqueued buffer
	BufferDuration time.Duration

	// MinQueued is the queue depth kept while running
	MinQueued int

	Logger *slog.Logger
}

// QueueScheduler keeps at least MinQueued buffers submitted to a queue device
type QueueScheduler struct {
	device  output.QueueDevice
	format  audio.Format
	frames  int
	min     int
	running atomic.Bool

	mu        sync.Mutex
	gen       *noise.Generator
	depth     int
	enqueued  int64
	completed int64
	samples   int64

	logger *slog.Logger
}

// NewQueueScheduler creates a push scheduler for device
func NewQueueScheduler(device output.QueueDevice, gen *noise.Generator, opts QueueOptions) *QueueScheduler {
	if opts.BufferDuration <= 0 {
		opts.BufferDuration = audio.PushBufferDuration
	}
	if opts.MinQueued <= 0 {
		opts.MinQueued = audio.MinQueuedBuffers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	format := device.Format()
	frames := format.Frames(opts.BufferDuration)
	if frames <= 0 {
		frames = 1
	}

	return &QueueScheduler{
		device: device,
		format: format,
		frames: frames,
		min:    opts.MinQueued,
		gen:    gen,
		logger: opts.Logger,
	}
}

// enqueueLocked renders and submits one buffer (must hold s.mu)
func (s *QueueScheduler) enqueueLocked() error {
	if !s.running.Load() || s.gen == nil {
		return nil
	}

	buf := audio.NewBuffer(s.format, s.frames)
	s.gen.Fill(buf.Samples)

	if err := s.device.Enqueue(buf); err != nil {
		return fmt.Errorf("failed to enqueue buffer: %w", err)
	}

	s.depth++
	s.enqueued++
	s.samples += int64(len(buf.Samples))
	return nil
}

// topUpLocked enqueues until the minimum depth is reached (must hold s.mu)
func (s *QueueScheduler) topUpLocked() error {
	for s.running.Load() && s.gen != nil && s.depth < s.min {
		if err := s.enqueueLocked(); err != nil {
			return err
		}
	}
	return nil
}

// handleEnded is the device completion callback
func (s *QueueScheduler) handleEnded() {
	if !s.running.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth > 0 {
		s.depth--
	}
	s.completed++

	if err := s.topUpLocked(); err != nil {
		s.logger.Warn("queue refill failed", "error", err, "depth", s.depth)
	}
}

// Start pre-fills the queue to the minimum depth, then starts the device
func (s *QueueScheduler) Start() error {
	s.device.SetOnEnded(s.handleEnded)
	s.running.Store(true)

	s.mu.Lock()
	err := s.topUpLocked()
	depth := s.depth
	s.mu.Unlock()

	if err != nil {
		s.running.Store(false)
		s.device.SetOnEnded(nil)
		return err
	}

	if err := s.device.Start(); err != nil {
		s.running.Store(false)
		s.device.SetOnEnded(nil)
		return fmt.Errorf("failed to start queue device: %w", err)
	}

	s.logger.Debug("queue scheduler started", "depth", depth, "buffer_frames", s.frames)
	return nil
}

// Stop clears the running flag, stops the device and drops the generator
func (s *QueueScheduler) Stop() error {
	s.running.Store(false)

	err := s.device.Stop()
	s.device.SetOnEnded(nil)

	s.mu.Lock()
	s.gen = nil
	s.depth = 0
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to stop queue device: %w", err)
	}
	return nil
}

// Depth returns the number of submitted buffers not yet completed
func (s *QueueScheduler) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// Stats returns scheduler statistics
func (s *QueueScheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SchedulerStats{
		Mode:             ModePush,
		QueueDepth:       s.depth,
		BuffersEnqueued:  s.enqueued,
		BuffersCompleted: s.completed,
		SamplesGenerated: s.samples,
	}
	if uc, ok := s.device.(output.UnderrunCounter); ok {
		st.Underruns = int64(uc.Underruns())
	}
	return st
}
