// ABOUTME: Malgo-based pull output implementation
// ABOUTME: Uses miniaudio via malgo; its data callback runs the processor
package output

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/harperreed/brownnoise/pkg/audio"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	*renderer

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	volume   float32
	started  bool
	logger   *slog.Logger
}

// NewMalgo opens a miniaudio playback device
func NewMalgo(format audio.Format, opts Options) (*Malgo, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Malgo{
		renderer: newRenderer(format, opts.BufferFrames, opts.BitDepth),
		volume:   float32(opts.Volume),
		logger:   logger,
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	if m.bits == BitDepthInt16 {
		deviceConfig.Playback.Format = malgo.FormatS16
	}
	deviceConfig.Playback.Channels = uint32(m.format.Channels)
	deviceConfig.SampleRate = uint32(m.format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.period)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: m.dataCallback,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		if uerr := ctx.Uninit(); uerr != nil {
			logger.Warn("malgo context uninit error", "error", uerr)
		}
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	m.malgoCtx = ctx
	m.device = device

	logger.Debug("audio output initialized", "backend", BackendMalgo,
		"sample_rate", m.format.SampleRate, "channels", m.format.Channels, "bit_depth", m.bits)

	return m, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput, pInput []byte, frameCount uint32) {
	n := m.renderBytes(pOutput[:int(frameCount)*m.format.Channels*m.sampleSize()])
	if m.volume < 1 {
		m.scaleBytes(pOutput[:n], m.volume)
	}
}

// Start starts the device
func (m *Malgo) Start() error {
	if m.started {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.started = true
	return nil
}

// Stop stops the device
func (m *Malgo) Stop() error {
	if !m.started {
		return nil
	}
	m.started = false
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	if err := m.Stop(); err != nil {
		m.logger.Warn("device stop error", "error", err)
	}
	m.SetProcessor(nil)

	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.logger.Warn("malgo context uninit error", "error", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	return nil
}
