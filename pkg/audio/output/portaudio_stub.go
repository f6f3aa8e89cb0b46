//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/harperreed/brownnoise/pkg/audio"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct {
	*renderer
}

// NewPortAudio always fails without the portaudio build tag
func NewPortAudio(format audio.Format, opts Options) (*PortAudio, error) {
	return nil, errPortAudioDisabled
}

// Start is unavailable in the stub
func (p *PortAudio) Start() error {
	return errPortAudioDisabled
}

// Stop is unavailable in the stub
func (p *PortAudio) Stop() error {
	return errPortAudioDisabled
}

// Close is unavailable in the stub
func (p *PortAudio) Close() error {
	return errPortAudioDisabled
}
