// ABOUTME: Fake interruption source for session tests
// ABOUTME: Emit delivers interruptions synchronously to every subscriber
package devicetest

import (
	"sync"

	"github.com/harperreed/brownnoise/pkg/stream"
)

// InterruptionSource is a fake stream.InterruptionSource
type InterruptionSource struct {
	mu         sync.Mutex
	handlers   map[int]func(stream.Interruption)
	next       int
	subscribes int
	requests   int
	abandons   int
	focused    bool

	// SubscribeErr fails Subscribe when set
	SubscribeErr error

	// FocusErr fails RequestFocus when set
	FocusErr error
}

// NewInterruptionSource creates a fake source
func NewInterruptionSource() *InterruptionSource {
	return &InterruptionSource{handlers: make(map[int]func(stream.Interruption))}
}

func (s *InterruptionSource) Subscribe(fn func(stream.Interruption)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	id := s.next
	s.next++
	s.subscribes++
	s.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.handlers, id)
		})
	}, nil
}

func (s *InterruptionSource) RequestFocus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if s.FocusErr != nil {
		return s.FocusErr
	}
	s.focused = true
	return nil
}

func (s *InterruptionSource) AbandonFocus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandons++
	s.focused = false
	return nil
}

// Emit delivers ev to every subscriber on the calling goroutine
func (s *InterruptionSource) Emit(ev stream.Interruption) {
	s.mu.Lock()
	handlers := make([]func(stream.Interruption), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Subscribers returns the number of live subscriptions
func (s *InterruptionSource) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Subscribes returns how many times Subscribe succeeded
func (s *InterruptionSource) Subscribes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribes
}

// Focused reports whether focus is currently held
func (s *InterruptionSource) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// FocusRequests returns the number of RequestFocus calls
func (s *InterruptionSource) FocusRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// FocusAbandons returns the number of AbandonFocus calls
func (s *InterruptionSource) FocusAbandons() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandons
}
