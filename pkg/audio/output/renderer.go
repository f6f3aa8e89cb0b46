// ABOUTME: Shared sample clock and gain stage for pull backends
// ABOUTME: Runs the registered processor and encodes int16 or float32 PCM
package output

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
)

// renderer drives a processor on behalf of a pull backend
type renderer struct {
	mu      sync.Mutex
	format  audio.Format
	frames  int64
	period  int
	bits    int
	process func([]float32)
	gain    *Gain
	scratch []float32
}

func newRenderer(format audio.Format, period, bits int) *renderer {
	if format.Channels <= 0 {
		format.Channels = 1
	}
	if period <= 0 {
		period = audio.PullBufferSize
	}
	if bits != BitDepthInt16 {
		bits = BitDepthFloat32
	}
	return &renderer{
		format: format,
		period: period,
		bits:   bits,
		gain:   NewGain(),
	}
}

// Format returns the device format
func (r *renderer) Format() audio.Format {
	return r.format
}

// SetProcessor registers the fill callback
func (r *renderer) SetProcessor(fn func(out []float32)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.process = fn
}

// CurrentTime returns the time rendered so far
func (r *renderer) CurrentTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.format.Duration(r.frames)
}

// Gain returns the gain stage
func (r *renderer) Gain() GainNode {
	return r.gain
}

// render fills out from the processor, or silence when none is registered,
// and advances the clock
func (r *renderer) render(out []float32) {
	r.mu.Lock()
	process := r.process
	start := r.format.Duration(r.frames)
	r.frames += int64(len(out) / r.format.Channels)
	r.mu.Unlock()

	if process != nil {
		process(out)
	} else {
		clear(out)
	}

	r.gain.Apply(out, start, r.format)
}

// sampleSize returns the encoded bytes per sample
func (r *renderer) sampleSize() int {
	return r.bits / 8
}

// renderBytes renders into a little-endian PCM byte buffer at the
// renderer bit depth. Only called from the single backend audio goroutine.
func (r *renderer) renderBytes(p []byte) int {
	size := r.sampleSize()
	n := len(p) / size
	n -= n % r.format.Channels
	if n == 0 {
		return 0
	}

	if cap(r.scratch) < n {
		r.scratch = make([]float32, n)
	}
	buf := r.scratch[:n]
	r.render(buf)

	if r.bits == BitDepthInt16 {
		for i, s := range buf {
			binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.SampleToInt16(s)))
		}
	} else {
		for i, s := range buf {
			binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
		}
	}
	return n * size
}

// scaleBytes applies volume v to samples encoded at the renderer bit depth
func (r *renderer) scaleBytes(p []byte, v float32) {
	if r.bits == BitDepthInt16 {
		scaleInt16LE(p, v)
		return
	}
	scaleFloat32LE(p, v)
}

// scaleFloat32LE multiplies encoded float32 samples in place
func scaleFloat32LE(p []byte, v float32) {
	for i := 0; i+4 <= len(p); i += 4 {
		s := math.Float32frombits(binary.LittleEndian.Uint32(p[i:]))
		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(s*v))
	}
}

// scaleInt16LE multiplies encoded int16 samples in place
func scaleInt16LE(p []byte, v float32) {
	for i := 0; i+2 <= len(p); i += 2 {
		s := audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(p[i:])))
		binary.LittleEndian.PutUint16(p[i:], uint16(audio.SampleToInt16(s*v)))
	}
}
