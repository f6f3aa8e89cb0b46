// ABOUTME: Oto-based pull output implementation
// ABOUTME: The oto player reads float32 PCM rendered on demand by the processor
package output

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/brownnoise/pkg/audio"
)

// oto only allows one context per process, so it is shared across devices
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
	otoBits   int
)

// sharedOtoContext returns the process context, creating it on first use
func sharedOtoContext(format audio.Format, bits int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoFormat != format || otoBits != bits {
			return nil, fmt.Errorf("oto context already open at %dHz/%dch/%dbit, cannot reopen at %dHz/%dch/%dbit",
				otoFormat.SampleRate, otoFormat.Channels, otoBits, format.SampleRate, format.Channels, bits)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoCtx, nil
	}

	sampleFormat := oto.FormatFloat32LE
	if bits == BitDepthInt16 {
		sampleFormat = oto.FormatSignedInt16LE
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       sampleFormat,
		BufferSize:   format.Duration(audio.PullBufferSize),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	otoCtx = ctx
	otoFormat = format
	otoBits = bits
	return ctx, nil
}

// Oto output implementation using oto library
type Oto struct {
	*renderer

	ctx    *oto.Context
	player *oto.Player
	volume float64
	logger *slog.Logger
}

// NewOto opens an oto pull device
func NewOto(format audio.Format, opts Options) (*Oto, error) {
	r := newRenderer(format, opts.BufferFrames, opts.BitDepth)

	ctx, err := sharedOtoContext(r.format, r.bits)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("audio output initialized", "backend", BackendOto,
		"sample_rate", r.format.SampleRate, "channels", r.format.Channels, "bit_depth", r.bits)

	return &Oto{
		renderer: r,
		ctx:      ctx,
		volume:   opts.Volume,
		logger:   logger,
	}, nil
}

// Read is called by the oto player whenever it needs more samples
func (o *Oto) Read(p []byte) (int, error) {
	return o.renderBytes(p), nil
}

// Start creates the player and begins pulling
func (o *Oto) Start() error {
	if o.player != nil {
		return nil
	}

	o.player = o.ctx.NewPlayer(o)
	o.player.SetBufferSize(o.period * o.format.Channels * o.sampleSize())
	if o.volume > 0 {
		o.player.SetVolume(o.volume)
	}
	o.player.Play()
	return nil
}

// Stop pauses and releases the player
func (o *Oto) Stop() error {
	if o.player == nil {
		return nil
	}

	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}

// Close releases output resources; the shared context is suspended
func (o *Oto) Close() error {
	if err := o.Stop(); err != nil {
		o.logger.Warn("oto stop error", "error", err)
	}
	o.SetProcessor(nil)
	if err := o.ctx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	return nil
}
