// ABOUTME: Fade-in envelope for newly started streams
// ABOUTME: Schedules a linear ramp from silence to unity on a gain node
package stream

import (
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/harperreed/brownnoise/pkg/audio/output"
)

// Fade ramps gain from 0 to 1 over Duration
type Fade struct {
	Duration time.Duration
}

// DefaultFade returns the 3 second fade-in
func DefaultFade() Fade {
	return Fade{Duration: audio.FadeInDuration}
}

// Apply schedules the ramp starting at device time now. A non-positive
// duration sets unity gain immediately.
func (f Fade) Apply(node output.GainNode, now time.Duration) {
	if f.Duration <= 0 {
		node.SetValueAtTime(1, now)
		return
	}
	node.SetValueAtTime(0, now)
	node.LinearRampToValueAtTime(1, now+f.Duration)
}
