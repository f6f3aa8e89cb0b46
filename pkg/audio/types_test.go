// ABOUTME: Tests for audio types
// ABOUTME: Tests buffer sizing and sample conversion functions
package audio

import (
	"testing"
	"time"
)

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full positive", 1, 32767},
		{"full negative", -1, -32767},
		{"half", 0.5, 16384},
		{"clipped high", 1.5, 32767},
		{"clipped low", -2, -32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected float32
	}{
		{"zero", 0, 0},
		{"max", 32767, 1},
		{"min", -32768, -1},
		{"negative max", -32767, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

func TestPushBufferFrames(t *testing.T) {
	format := Mono(DefaultSampleRate)

	frames := format.Frames(PushBufferDuration)
	if frames != 88200 {
		t.Errorf("expected 88200 frames per push buffer, got %d", frames)
	}

	buf := NewBuffer(format, frames)
	if len(buf.Samples) != 88200 {
		t.Errorf("expected 88200 samples, got %d", len(buf.Samples))
	}
	if buf.Duration() != 2*time.Second {
		t.Errorf("expected 2s buffer, got %v", buf.Duration())
	}
}

func TestFormatDuration(t *testing.T) {
	format := Mono(44100)

	if d := format.Duration(44100); d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
	if d := (Format{}).Duration(100); d != 0 {
		t.Errorf("expected 0 for zero rate, got %v", d)
	}
}

func TestNewBufferDefaultsToMono(t *testing.T) {
	buf := NewBuffer(Format{SampleRate: 48000}, 10)
	if buf.Format.Channels != 1 {
		t.Errorf("expected mono default, got %d channels", buf.Format.Channels)
	}
	if buf.Frames() != 10 {
		t.Errorf("expected 10 frames, got %d", buf.Frames())
	}
}
