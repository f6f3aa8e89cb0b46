//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform pull output whose stream callback runs the processor
package output

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
	"github.com/harperreed/brownnoise/pkg/audio"
)

// PortAudio output implementation
type PortAudio struct {
	*renderer

	stream  *portaudio.Stream
	volume  float32
	started bool
	logger  *slog.Logger
}

// NewPortAudio initializes PortAudio and opens the default output stream
func NewPortAudio(format audio.Format, opts Options) (*PortAudio, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &PortAudio{
		renderer: newRenderer(format, opts.BufferFrames, BitDepthFloat32),
		volume:   float32(opts.Volume),
		logger:   logger,
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, p.format.Channels, float64(p.format.SampleRate),
		p.period, p.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	p.stream = stream

	logger.Debug("audio output initialized", "backend", BackendPortAudio,
		"sample_rate", p.format.SampleRate, "channels", p.format.Channels)

	return p, nil
}

func (p *PortAudio) callback(out []float32) {
	p.render(out)
	if p.volume < 1 {
		for i := range out {
			out[i] *= p.volume
		}
	}
}

// Start starts the stream
func (p *PortAudio) Start() error {
	if p.started {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	p.started = true
	return nil
}

// Stop stops the stream
func (p *PortAudio) Stop() error {
	if !p.started {
		return nil
	}
	p.started = false
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	if err := p.Stop(); err != nil {
		p.logger.Warn("portaudio stop error", "error", err)
	}
	p.SetProcessor(nil)

	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			return fmt.Errorf("failed to close stream: %w", err)
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
