package output

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/stretchr/testify/assert"
)

func TestRendererSilentWithoutProcessor(t *testing.T) {
	r := newRenderer(audio.Mono(1000), 0, 0)
	out := []float32{1, 1, 1}
	r.render(out)

	assert.Equal(t, []float32{0, 0, 0}, out)
	assert.Equal(t, 3*time.Millisecond, r.CurrentTime())
}

func TestRendererRunsProcessor(t *testing.T) {
	r := newRenderer(audio.Format{SampleRate: 1000, Channels: 2}, 0, 0)
	r.SetProcessor(func(out []float32) {
		for i := range out {
			out[i] = 0.5
		}
	})

	out := make([]float32, 8)
	r.render(out)

	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, out)
	assert.Equal(t, 4*time.Millisecond, r.CurrentTime())
}

func TestRendererBytes(t *testing.T) {
	r := newRenderer(audio.Format{SampleRate: 1000, Channels: 2}, 0, 0)
	r.SetProcessor(func(out []float32) {
		for i := range out {
			out[i] = float32(i)
		}
	})

	// 11 bytes holds two whole float32s, one stereo frame
	p := make([]byte, 11)
	n := r.renderBytes(p)
	assert.Equal(t, 8, n)
	assert.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(p[0:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(p[4:])))

	assert.Equal(t, 0, r.renderBytes(make([]byte, 7)))
}

func TestScaleFloat32LE(t *testing.T) {
	p := make([]byte, 8)
	binary.LittleEndian.PutUint32(p[0:], math.Float32bits(1))
	binary.LittleEndian.PutUint32(p[4:], math.Float32bits(-0.5))

	scaleFloat32LE(p, 0.5)

	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(p[0:])))
	assert.Equal(t, float32(-0.25), math.Float32frombits(binary.LittleEndian.Uint32(p[4:])))
}

func TestRendererBytesInt16(t *testing.T) {
	r := newRenderer(audio.Mono(1000), 0, BitDepthInt16)
	r.SetProcessor(func(out []float32) {
		copy(out, []float32{1, -1, 0.5, 2})
	})

	p := make([]byte, 9)
	n := r.renderBytes(p)
	assert.Equal(t, 8, n)
	assert.Equal(t, 4*time.Millisecond, r.CurrentTime())

	got := make([]int16, 4)
	for i := range got {
		got[i] = int16(binary.LittleEndian.Uint16(p[i*2:]))
	}
	assert.Equal(t, []int16{32767, -32767, 16384, 32767}, got)
}

func TestRendererDefaultsToFloat32(t *testing.T) {
	assert.Equal(t, 4, newRenderer(audio.Mono(1000), 0, 0).sampleSize())
	assert.Equal(t, 4, newRenderer(audio.Mono(1000), 0, 24).sampleSize())
	assert.Equal(t, 2, newRenderer(audio.Mono(1000), 0, BitDepthInt16).sampleSize())
}

func TestScaleBytesInt16(t *testing.T) {
	r := newRenderer(audio.Mono(1000), 0, BitDepthInt16)
	p := make([]byte, 4)
	binary.LittleEndian.PutUint16(p[0:], uint16(int16(32767)))
	binary.LittleEndian.PutUint16(p[2:], uint16(int16(-16384)))

	r.scaleBytes(p, 0.5)

	assert.Equal(t, int16(16384), int16(binary.LittleEndian.Uint16(p[0:])))
	assert.Equal(t, int16(-8192), int16(binary.LittleEndian.Uint16(p[2:])))
}
