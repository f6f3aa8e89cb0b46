// ABOUTME: Fake output devices for exercising the stream engine in tests
// ABOUTME: Pull and queue fakes record every call and let tests drive callbacks
package devicetest

import (
	"errors"
	"sync"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/harperreed/brownnoise/pkg/audio/output"
)

// PullDevice is a fake PullDevice. Tests call Pull to play the
// role of the audio thread.
type PullDevice struct {
	mu        sync.Mutex
	format    audio.Format
	processor func([]float32)
	frames    int64
	started   bool
	closed    bool
	calls     []string
	gain      *output.Gain

	// StartErr is returned by Start when set
	StartErr error
}

// NewPullDevice creates a fake pull device
func NewPullDevice(format audio.Format) *PullDevice {
	return &PullDevice{format: format, gain: output.NewGain()}
}

func (d *PullDevice) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *PullDevice) Format() audio.Format { return d.format }

func (d *PullDevice) CurrentTime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format.Duration(d.frames)
}

func (d *PullDevice) Gain() output.GainNode { return d.gain }

// GainStage exposes the concrete gain for assertions
func (d *PullDevice) GainStage() *output.Gain { return d.gain }

func (d *PullDevice) SetProcessor(fn func([]float32)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn == nil {
		d.record("clear-processor")
	} else {
		d.record("set-processor")
	}
	d.processor = fn
}

func (d *PullDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("start")
	if d.StartErr != nil {
		return d.StartErr
	}
	d.started = true
	return nil
}

func (d *PullDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("stop")
	d.started = false
	return nil
}

func (d *PullDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")
	d.closed = true
	return nil
}

// Processor returns the registered callback, if any
func (d *PullDevice) Processor() func([]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processor
}

// Pull runs the processor over a fresh buffer the way a device would.
// Returns nil when no processor is registered.
func (d *PullDevice) Pull(frames int) []float32 {
	d.mu.Lock()
	fn := d.processor
	d.frames += int64(frames)
	d.mu.Unlock()

	if fn == nil {
		return nil
	}
	out := make([]float32, frames*d.format.Channels)
	fn(out)
	return out
}

func (d *PullDevice) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

func (d *PullDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Calls returns the recorded call sequence
func (d *PullDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// QueueDevice is a fake QueueDevice. Tests call Complete to finish
// the head buffer.
type QueueDevice struct {
	mu      sync.Mutex
	format  audio.Format
	queue   []*audio.Buffer
	onEnded func()
	started bool
	closed  bool
	calls   []string
	total   int
	now     time.Duration
	gain    *output.Gain

	// StartErr is returned by Start when set
	StartErr error

	// EnqueueErr is returned by Enqueue when set
	EnqueueErr error
}

// NewQueueDevice creates a fake queue device
func NewQueueDevice(format audio.Format) *QueueDevice {
	return &QueueDevice{format: format, gain: output.NewGain()}
}

func (d *QueueDevice) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *QueueDevice) Format() audio.Format { return d.format }

func (d *QueueDevice) CurrentTime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// SetCurrentTime moves the device clock
func (d *QueueDevice) SetCurrentTime(t time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = t
}

func (d *QueueDevice) Gain() output.GainNode { return d.gain }

// GainStage exposes the concrete gain for assertions
func (d *QueueDevice) GainStage() *output.Gain { return d.gain }

func (d *QueueDevice) SetOnEnded(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEnded = fn
}

func (d *QueueDevice) Enqueue(buf *audio.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.EnqueueErr != nil {
		return d.EnqueueErr
	}
	if d.closed {
		return errors.New("device closed")
	}
	d.record("enqueue")
	d.queue = append(d.queue, buf)
	d.total++
	return nil
}

func (d *QueueDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("start")
	if d.StartErr != nil {
		return d.StartErr
	}
	d.started = true
	return nil
}

func (d *QueueDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("stop")
	d.started = false
	d.queue = nil
	return nil
}

func (d *QueueDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")
	d.closed = true
	return nil
}

// Complete finishes the head buffer and fires the completion callback
// outside the device lock. Returns false when the queue is empty.
func (d *QueueDevice) Complete() bool {
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return false
	}
	d.queue = d.queue[1:]
	fn := d.onEnded
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// OnEnded returns the registered completion callback
func (d *QueueDevice) OnEnded() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onEnded
}

// Depth returns the number of buffers waiting on the fake device
func (d *QueueDevice) Depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Queued returns the waiting buffers
func (d *QueueDevice) Queued() []*audio.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*audio.Buffer(nil), d.queue...)
}

// Enqueued returns the total number of buffers ever enqueued
func (d *QueueDevice) Enqueued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

func (d *QueueDevice) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

func (d *QueueDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Calls returns the recorded call sequence
func (d *QueueDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// BareDevice offers neither pull nor queue playback
type BareDevice struct {
	mu     sync.Mutex
	format audio.Format
	closed bool
}

func NewBareDevice(format audio.Format) *BareDevice {
	return &BareDevice{format: format}
}

func (d *BareDevice) Format() audio.Format        { return d.format }
func (d *BareDevice) CurrentTime() time.Duration { return 0 }

func (d *BareDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *BareDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Factory hands out devices built by New and remembers them
type Factory struct {
	mu     sync.Mutex
	opened []output.Device

	// New builds a device per Open call
	New func(format audio.Format) output.Device

	// Err fails every Open when set
	Err error
}

// Open matches output.Factory
func (f *Factory) Open(format audio.Format) (output.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	d := f.New(format)
	f.opened = append(f.opened, d)
	return d, nil
}

// Opened returns every device handed out so far
func (f *Factory) Opened() []output.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]output.Device(nil), f.opened...)
}

// PullFactory returns a factory of fake pull devices
func PullFactory() *Factory {
	return &Factory{New: func(format audio.Format) output.Device { return NewPullDevice(format) }}
}

// QueueFactory returns a factory of fake queue devices
func QueueFactory() *Factory {
	return &Factory{New: func(format audio.Format) output.Device { return NewQueueDevice(format) }}
}
