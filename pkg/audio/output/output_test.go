// ABOUTME: Audio output capability tests
// ABOUTME: Verifies backend factory selection and interface conformance
package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendsImplementCapabilities(t *testing.T) {
	var _ QueueDevice = (*BeepQueue)(nil)
	var _ GainDevice = (*BeepQueue)(nil)
	var _ PullDevice = (*Oto)(nil)
	var _ GainDevice = (*Oto)(nil)
	var _ PullDevice = (*Malgo)(nil)
	var _ GainDevice = (*Malgo)(nil)
	var _ PullDevice = (*PortAudio)(nil)
	var _ GainNode = (*Gain)(nil)
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{"beep", false},
		{"BEEP", false},
		{"oto", false},
		{"malgo", false},
		{"portaudio", false},
		{"alsa", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			f, err := NewFactory(tt.backend, Options{})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownBackend))
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}

func TestBackendsOrder(t *testing.T) {
	assert.Equal(t, []string{BackendBeep, BackendOto, BackendMalgo, BackendPortAudio}, Backends())
}

func TestNewFactoryBitDepth(t *testing.T) {
	for _, bits := range []int{0, BitDepthInt16, BitDepthFloat32} {
		f, err := NewFactory(BackendOto, Options{BitDepth: bits})
		require.NoError(t, err, "bit depth %d", bits)
		assert.NotNil(t, f)
	}

	f, err := NewFactory(BackendOto, Options{BitDepth: 24})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedBitDepth)
	assert.Nil(t, f)
}
