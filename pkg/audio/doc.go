// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the fundamental types shared by the noise engine.
//
// This package defines core types used throughout the brownnoise library:
//   - Format: Describes the stream format (sample rate, channels)
//   - Buffer: A fixed-length block of float samples
//
// It also carries the stream constants (44.1kHz mono, 4096-frame pull
// blocks, 2 second push buffers, 3 buffer backlog, 3 second fade) and
// float <-> 16-bit PCM conversion for backends that need integer output.
//
// Example:
//
//	format := audio.Mono(audio.DefaultSampleRate)
//	buf := audio.NewBuffer(format, format.Frames(audio.PushBufferDuration))
//	gen.Fill(buf.Samples)
package audio
