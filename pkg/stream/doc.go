// ABOUTME: Continuous noise streaming engine
// ABOUTME: Schedulers, fade-in, interruption handling and the session state machine
// Package stream keeps an output device fed with brown noise.
//
// A Session owns one playback lifecycle: it opens a device from a
// factory, picks a scheduler by device capability (QueueScheduler for a
// QueueDevice, PullScheduler for a PullDevice), ramps the gain in and
// yields to interruptions reported by an InterruptionSource.
//
// Example:
//
//	factory, _ := output.NewFactory("beep", output.Options{})
//	s, err := stream.NewSession(stream.Config{Factory: factory})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	err = s.Play()
package stream
