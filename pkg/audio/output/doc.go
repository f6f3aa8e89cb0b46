// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides device capabilities and beep, oto, malgo and PortAudio backends
// Package output provides audio output devices.
//
// Devices come in two shapes. A PullDevice calls a processor on its own
// clock (oto, malgo, PortAudio). A QueueDevice plays discrete buffers and
// reports each completion (beep). Every backend also exposes a GainNode
// driven by its sample clock.
//
// Example:
//
//	factory, err := output.NewFactory("beep", output.Options{Volume: 1})
//	dev, err := factory(audio.Mono(44100))
//	defer dev.Close()
package output
