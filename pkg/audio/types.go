// ABOUTME: Audio type definitions
// ABOUTME: Defines the stream format, sample buffers and PCM conversion
package audio

import (
	"math"
	"time"
)

const (
	// DefaultSampleRate is the rate every backend is opened at
	DefaultSampleRate = 44100

	// PullBufferSize is the processor block size requested from pull devices
	PullBufferSize = 4096

	// PushBufferDuration is the length of one queued buffer in push mode
	PushBufferDuration = 2 * time.Second

	// MinQueuedBuffers is the push-mode backlog kept ahead of the device (~6s)
	MinQueuedBuffers = 3

	// FadeInDuration is the default gain ramp at stream start
	FadeInDuration = 3 * time.Second

	// 16-bit range constants
	MaxInt16 = math.MaxInt16
	MinInt16 = math.MinInt16
)

// Format describes the stream format
type Format struct {
	SampleRate int
	Channels   int
}

// Mono returns the mono format at the given rate
func Mono(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: 1}
}

// Frames returns the number of frames covering d
func (f Format) Frames(d time.Duration) int {
	return int(int64(f.SampleRate) * int64(d) / int64(time.Second))
}

// Duration returns the playback time of n frames
func (f Format) Duration(frames int64) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(f.SampleRate))
}

// Buffer is a fixed-length block of float samples at a fixed format.
// Once handed to a device it belongs to the device.
type Buffer struct {
	Samples []float32
	Format  Format
}

// NewBuffer allocates a silent buffer of the given number of frames
func NewBuffer(format Format, frames int) *Buffer {
	if format.Channels <= 0 {
		format.Channels = 1
	}
	return &Buffer{
		Samples: make([]float32, frames*format.Channels),
		Format:  format,
	}
}

// Frames returns the number of frames in the buffer
func (b *Buffer) Frames() int {
	if b.Format.Channels <= 0 {
		return len(b.Samples)
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the playback time of the buffer
func (b *Buffer) Duration() time.Duration {
	return b.Format.Duration(int64(b.Frames()))
}

// Clamp limits a sample to [-1, 1]
func Clamp(sample float32) float32 {
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}

// SampleToInt16 converts a float sample to 16-bit PCM
func SampleToInt16(sample float32) int16 {
	return int16(math.Round(float64(Clamp(sample)) * MaxInt16))
}

// SampleFromInt16 converts a 16-bit PCM sample to a float sample
func SampleFromInt16(sample int16) float32 {
	if sample == MinInt16 {
		return -1
	}
	return float32(sample) / MaxInt16
}
