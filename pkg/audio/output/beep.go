// ABOUTME: Beep-based queue output implementation
// ABOUTME: Plays enqueued mono buffers back to back through the beep speaker mixer
package output

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/harperreed/brownnoise/pkg/audio"
)

// The beep speaker is process global and can only be initialized once
var (
	speakerMu    sync.Mutex
	speakerReady bool
	speakerRate  beep.SampleRate
)

func ensureSpeaker(rate beep.SampleRate, logger *slog.Logger) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerReady {
		if rate != speakerRate {
			return fmt.Errorf("speaker already initialized at %dHz, cannot reopen at %dHz", speakerRate, rate)
		}
		return nil
	}

	bufferSize := rate.N(time.Millisecond * 100)
	if err := speaker.Init(rate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	speakerReady = true
	speakerRate = rate
	logger.Debug("speaker initialized", "sample_rate", int(rate))
	return nil
}

// BeepQueue is a QueueDevice backed by the beep speaker. It is itself a
// beep.Streamer that the speaker mixer pulls from.
type BeepQueue struct {
	mu        sync.Mutex
	format    audio.Format
	queue     []*audio.Buffer
	pos       int
	frames    int64
	playing   bool
	closed    bool
	onEnded   func()
	underruns int

	gain       *Gain
	volume     float64
	registered bool
	play       func(beep.Streamer)
	logger     *slog.Logger

	// only touched by the mixer goroutine
	scratch []float32
}

// NewBeepQueue initializes the speaker and returns a queue device
func NewBeepQueue(format audio.Format, opts Options) (*BeepQueue, error) {
	q := newBeepQueue(format, opts)
	if err := ensureSpeaker(beep.SampleRate(q.format.SampleRate), q.logger); err != nil {
		return nil, err
	}
	q.play = func(s beep.Streamer) { speaker.Play(s) }

	q.logger.Debug("audio output initialized", "backend", BackendBeep,
		"sample_rate", q.format.SampleRate, "channels", q.format.Channels)
	return q, nil
}

// newBeepQueue builds the device without touching the speaker
func newBeepQueue(format audio.Format, opts Options) *BeepQueue {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	volume := opts.Volume
	if volume <= 0 || volume > 1 {
		volume = 1
	}

	return &BeepQueue{
		format: audio.Mono(format.SampleRate),
		gain:   NewGain(),
		volume: volume,
		play:   func(beep.Streamer) {},
		logger: logger,
	}
}

// Format returns the device format (always mono)
func (q *BeepQueue) Format() audio.Format {
	return q.format
}

// CurrentTime returns the time the mixer has pulled from this device
func (q *BeepQueue) CurrentTime() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.format.Duration(q.frames)
}

// Gain returns the gain stage
func (q *BeepQueue) Gain() GainNode {
	return q.gain
}

// SetOnEnded registers the per-buffer completion callback
func (q *BeepQueue) SetOnEnded(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onEnded = fn
}

// Enqueue appends a mono buffer at the device rate
func (q *BeepQueue) Enqueue(buf *audio.Buffer) error {
	if buf == nil {
		return fmt.Errorf("nil buffer")
	}
	if buf.Format != q.format {
		return fmt.Errorf("buffer format %dHz/%dch does not match device %dHz/%dch",
			buf.Format.SampleRate, buf.Format.Channels, q.format.SampleRate, q.format.Channels)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("device closed")
	}
	q.queue = append(q.queue, buf)
	return nil
}

// Start begins consuming the queue
func (q *BeepQueue) Start() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("device closed")
	}
	q.playing = true
	register := !q.registered
	q.registered = true
	q.mu.Unlock()

	if !register {
		return nil
	}

	var streamer beep.Streamer = q
	if q.volume < 1 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   math.Log2(q.volume),
		}
	}
	q.play(streamer)
	return nil
}

// Stop stops consuming and drops queued buffers without firing callbacks
func (q *BeepQueue) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.playing = false
	clear(q.queue)
	q.queue = q.queue[:0]
	q.pos = 0
	return nil
}

// Close detaches the device from the mixer
func (q *BeepQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.playing = false
	q.queue = nil
	q.pos = 0
	q.onEnded = nil
	return nil
}

// Underruns returns how many mixer pulls found the queue short
func (q *BeepQueue) Underruns() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.underruns
}

// Stream implements beep.Streamer. Completion callbacks run after the
// queue lock is released so they may enqueue.
func (q *BeepQueue) Stream(samples [][2]float64) (int, bool) {
	n := len(samples)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, false
	}

	if cap(q.scratch) < n {
		q.scratch = make([]float32, n)
	}
	buf := q.scratch[:n]

	start := q.format.Duration(q.frames)
	q.frames += int64(n)

	filled, completed := 0, 0
	if q.playing {
		for filled < n && len(q.queue) > 0 {
			head := q.queue[0]
			c := copy(buf[filled:], head.Samples[q.pos:])
			filled += c
			q.pos += c
			if q.pos >= len(head.Samples) {
				q.queue[0] = nil
				q.queue = q.queue[1:]
				q.pos = 0
				completed++
			}
		}
		if filled < n {
			q.underruns++
		}
	}
	clear(buf[filled:])
	onEnded := q.onEnded
	q.mu.Unlock()

	q.gain.Apply(buf, start, q.format)
	for i, s := range buf {
		samples[i][0] = float64(s)
		samples[i][1] = float64(s)
	}

	if onEnded != nil {
		for range completed {
			onEnded()
		}
	}

	return n, true
}

// Err implements beep.Streamer
func (q *BeepQueue) Err() error {
	return nil
}
