package output

import (
	"testing"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/stretchr/testify/assert"
)

func TestGainDefaultsToUnity(t *testing.T) {
	g := NewGain()
	assert.Equal(t, 1.0, g.ValueAt(0))
	assert.Equal(t, 1.0, g.ValueAt(time.Hour))
	assert.True(t, g.Connected())
}

func TestGainFadeIn(t *testing.T) {
	g := NewGain()
	now := 10 * time.Second
	g.SetValueAtTime(0, now)
	g.LinearRampToValueAtTime(1, now+3*time.Second)

	tests := []struct {
		at   time.Duration
		want float64
	}{
		{now, 0},
		{now + 1500*time.Millisecond, 0.5},
		{now + 750*time.Millisecond, 0.25},
		{now + 3*time.Second, 1},
		{now + time.Minute, 1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, g.ValueAt(tt.at), 1e-9, "at %v", tt.at)
	}
}

func TestGainBeforeFirstEvent(t *testing.T) {
	g := NewGain()
	g.SetValueAtTime(0, time.Second)
	g.LinearRampToValueAtTime(1, 4*time.Second)

	// before the set event the ramp starts from unity at time zero
	assert.Equal(t, 1.0, g.ValueAt(500*time.Millisecond))
}

func TestGainEventsSortedOnInsert(t *testing.T) {
	g := NewGain()
	g.LinearRampToValueAtTime(1, 2*time.Second)
	g.SetValueAtTime(0, 0)

	assert.InDelta(t, 0.5, g.ValueAt(time.Second), 1e-9)
}

func TestGainDisconnectSilences(t *testing.T) {
	g := NewGain()
	g.Disconnect()

	samples := []float32{0.5, -0.5, 0.25}
	g.Apply(samples, 0, audio.Mono(44100))

	assert.Equal(t, []float32{0, 0, 0}, samples)
	assert.Equal(t, 0.0, g.ValueAt(0))
	assert.False(t, g.Connected())
}

func TestGainApplyRamp(t *testing.T) {
	format := audio.Format{SampleRate: 4, Channels: 2}
	g := NewGain()
	g.SetValueAtTime(0, 0)
	g.LinearRampToValueAtTime(1, time.Second)

	samples := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	g.Apply(samples, 0, format)

	assert.InDeltaSlice(t, []float64{0, 0, 0.25, 0.25, 0.5, 0.5, 0.75, 0.75, 1, 1}, toFloat64(samples), 1e-6)
}

func TestGainApplyUnityIsNoop(t *testing.T) {
	g := NewGain()
	samples := []float32{0.1, 0.2}
	g.Apply(samples, time.Second, audio.Mono(44100))
	assert.Equal(t, []float32{0.1, 0.2}, samples)
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
