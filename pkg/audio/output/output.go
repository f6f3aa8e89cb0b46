// ABOUTME: Audio output capability definitions
// ABOUTME: Pull, queue and gain capabilities plus the backend factory
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
)

// Backend names accepted by NewFactory
const (
	BackendBeep      = "beep"
	BackendOto       = "oto"
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio"
)

// Sample encodings for byte-oriented pull backends
const (
	BitDepthInt16   = 16
	BitDepthFloat32 = 32
)

var (
	// ErrUnknownBackend is returned for backend names NewFactory does not know.
	ErrUnknownBackend = errors.New("unknown audio backend")

	// ErrUnsupportedBitDepth is returned for bit depths other than 16 and 32.
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
)

// Device represents an audio output device owned by a single session
type Device interface {
	// Format returns the format the device was opened with
	Format() audio.Format

	// CurrentTime returns the device clock (time rendered since open)
	CurrentTime() time.Duration

	// Close releases the device
	Close() error
}

// PullDevice calls a processor on its own clock whenever it needs samples
type PullDevice interface {
	Device

	// SetProcessor registers the fill callback; nil removes it
	SetProcessor(fn func(out []float32))

	// Start begins invoking the processor
	Start() error

	// Stop stops invoking the processor
	Stop() error
}

// QueueDevice plays discrete pre-rendered buffers back to back
type QueueDevice interface {
	Device

	// Enqueue appends a buffer; the device owns it afterwards
	Enqueue(buf *audio.Buffer) error

	// SetOnEnded registers the per-buffer completion callback
	SetOnEnded(fn func())

	// Start begins consuming the queue
	Start() error

	// Stop stops consuming and drops queued buffers
	Stop() error
}

// UnderrunCounter is implemented by devices that count reads the queue
// could not fully satisfy
type UnderrunCounter interface {
	Underruns() int
}

// GainNode is a gain stage supporting time-scheduled automation
type GainNode interface {
	SetValueAtTime(value float64, at time.Duration)
	LinearRampToValueAtTime(value float64, at time.Duration)
	Disconnect()
}

// GainDevice is a device with a gain stage before its destination
type GainDevice interface {
	Device
	Gain() GainNode
}

// Options configures backend construction
type Options struct {
	// Volume is the master volume (0.0 to 1.0)
	Volume float64

	// BufferFrames is the pull callback size (default 4096)
	BufferFrames int

	// BitDepth selects int16 or float32 PCM for oto and malgo (default 32)
	BitDepth int

	Logger *slog.Logger
}

// Factory opens a device for a format
type Factory func(format audio.Format) (Device, error)

// Backends lists the backend names in preference order
func Backends() []string {
	return []string{BackendBeep, BackendOto, BackendMalgo, BackendPortAudio}
}

// NewFactory returns the device factory for a backend name.
// An empty name selects the beep queue backend.
func NewFactory(backend string, opts Options) (Factory, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Volume <= 0 || opts.Volume > 1 {
		opts.Volume = 1
	}
	if opts.BufferFrames <= 0 {
		opts.BufferFrames = audio.PullBufferSize
	}
	switch opts.BitDepth {
	case 0:
		opts.BitDepth = BitDepthFloat32
	case BitDepthInt16, BitDepthFloat32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, opts.BitDepth)
	}

	switch strings.ToLower(backend) {
	case "", BackendBeep:
		return func(format audio.Format) (Device, error) {
			q, err := NewBeepQueue(format, opts)
			if err != nil {
				return nil, err
			}
			return q, nil
		}, nil
	case BackendOto:
		return func(format audio.Format) (Device, error) {
			o, err := NewOto(format, opts)
			if err != nil {
				return nil, err
			}
			return o, nil
		}, nil
	case BackendMalgo:
		return func(format audio.Format) (Device, error) {
			m, err := NewMalgo(format, opts)
			if err != nil {
				return nil, err
			}
			return m, nil
		}, nil
	case BackendPortAudio:
		return func(format audio.Format) (Device, error) {
			p, err := NewPortAudio(format, opts)
			if err != nil {
				return nil, err
			}
			return p, nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownBackend, backend, strings.Join(Backends(), ", "))
	}
}
