package stream_test

import (
	"testing"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio/output"
	"github.com/harperreed/brownnoise/pkg/stream"
	"github.com/stretchr/testify/assert"
)

type gainCall struct {
	op    string
	value float64
	at    time.Duration
}

type recordingGain struct {
	calls []gainCall
}

func (g *recordingGain) SetValueAtTime(v float64, at time.Duration) {
	g.calls = append(g.calls, gainCall{"set", v, at})
}

func (g *recordingGain) LinearRampToValueAtTime(v float64, at time.Duration) {
	g.calls = append(g.calls, gainCall{"ramp", v, at})
}

func (g *recordingGain) Disconnect() {
	g.calls = append(g.calls, gainCall{op: "disconnect"})
}

var _ output.GainNode = (*recordingGain)(nil)

func TestFadeApply(t *testing.T) {
	tests := []struct {
		name string
		fade stream.Fade
		now  time.Duration
		want []gainCall
	}{
		{
			name: "default",
			fade: stream.DefaultFade(),
			now:  5 * time.Second,
			want: []gainCall{{"set", 0, 5 * time.Second}, {"ramp", 1, 8 * time.Second}},
		},
		{
			name: "custom",
			fade: stream.Fade{Duration: 500 * time.Millisecond},
			now:  0,
			want: []gainCall{{"set", 0, 0}, {"ramp", 1, 500 * time.Millisecond}},
		},
		{
			name: "zero duration",
			fade: stream.Fade{},
			now:  time.Second,
			want: []gainCall{{"set", 1, time.Second}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &recordingGain{}
			tt.fade.Apply(g, tt.now)
			assert.Equal(t, tt.want, g.calls)
		})
	}
}

func TestFadeOnRealGain(t *testing.T) {
	g := output.NewGain()
	stream.DefaultFade().Apply(g, 0)

	assert.Equal(t, 0.0, g.ValueAt(0))
	assert.InDelta(t, 0.5, g.ValueAt(1500*time.Millisecond), 1e-9)
	assert.Equal(t, 1.0, g.ValueAt(3*time.Second))
}
