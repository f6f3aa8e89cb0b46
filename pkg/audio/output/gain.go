// ABOUTME: Gain stage with scheduled automation
// ABOUTME: Evaluates set-value and linear-ramp events against a device clock
package output

import (
	"sort"
	"sync"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
)

// gainEvent is one automation point
type gainEvent struct {
	at    time.Duration
	value float64
	ramp  bool
}

// Gain is a GainNode evaluated per frame. Unity until automated,
// silent after Disconnect.
type Gain struct {
	mu           sync.Mutex
	events       []gainEvent
	disconnected bool
}

// NewGain creates a unity gain stage
func NewGain() *Gain {
	return &Gain{}
}

// SetValueAtTime jumps to value at the given device time
func (g *Gain) SetValueAtTime(value float64, at time.Duration) {
	g.insert(gainEvent{at: at, value: value})
}

// LinearRampToValueAtTime ramps linearly from the previous event to value,
// arriving at the given device time
func (g *Gain) LinearRampToValueAtTime(value float64, at time.Duration) {
	g.insert(gainEvent{at: at, value: value, ramp: true})
}

func (g *Gain) insert(e gainEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := sort.Search(len(g.events), func(i int) bool { return g.events[i].at > e.at })
	g.events = append(g.events, gainEvent{})
	copy(g.events[i+1:], g.events[i:])
	g.events[i] = e
}

// Disconnect silences the stage for good
func (g *Gain) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnected = true
}

// Connected reports whether Disconnect has not been called
func (g *Gain) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.disconnected
}

// ValueAt returns the gain at device time t
func (g *Gain) ValueAt(t time.Duration) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disconnected {
		return 0
	}
	return g.valueAt(t)
}

// valueAt evaluates the automation (must hold g.mu)
func (g *Gain) valueAt(t time.Duration) float64 {
	value := 1.0
	var prevAt time.Duration

	for _, e := range g.events {
		if e.at <= t {
			value = e.value
			prevAt = e.at
			continue
		}
		if e.ramp {
			frac := float64(t-prevAt) / float64(e.at-prevAt)
			return value + (e.value-value)*frac
		}
		break
	}

	return value
}

// settled reports whether the automation is constant from t on (must hold g.mu)
func (g *Gain) settled(t time.Duration) bool {
	return len(g.events) == 0 || g.events[len(g.events)-1].at <= t
}

// Apply scales interleaved samples whose first frame plays at start
func (g *Gain) Apply(samples []float32, start time.Duration, format audio.Format) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disconnected {
		clear(samples)
		return
	}

	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}

	if g.settled(start) {
		v := float32(g.valueAt(start))
		if v == 1 {
			return
		}
		for i := range samples {
			samples[i] *= v
		}
		return
	}

	for frame := 0; frame*channels < len(samples); frame++ {
		t := start + format.Duration(int64(frame))
		v := float32(g.valueAt(t))
		for ch := 0; ch < channels && frame*channels+ch < len(samples); ch++ {
			samples[frame*channels+ch] *= v
		}
	}
}
