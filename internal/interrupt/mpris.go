// ABOUTME: D-Bus interruption source watching MPRIS media players
// ABOUTME: Another player starting playback interrupts the stream
package interrupt

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/harperreed/brownnoise/pkg/stream"
)

const (
	// MPRISPath is the object path every MPRIS player exports
	MPRISPath = "/org/mpris/MediaPlayer2"
	// PlayerInterface carries PlaybackStatus
	PlayerInterface = "org.mpris.MediaPlayer2.Player"
	// DefaultBusName is the name owned while playing
	DefaultBusName = "org.mpris.MediaPlayer2.brownnoise"

	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"
)

// Options configures the D-Bus source
type Options struct {
	// BusName is requested as audio focus (default DefaultBusName)
	BusName string

	Logger *slog.Logger
}

// Source is a stream.InterruptionSource backed by the session bus
type Source struct {
	conn    *dbus.Conn
	self    string
	busName string
	signals chan *dbus.Signal
	stop    chan struct{}
	done    chan struct{}
	logger  *slog.Logger

	mu       sync.Mutex
	handlers map[int]func(stream.Interruption)
	next     int
	closed   bool
}

// Connect opens a private session bus connection and starts watching
// MPRIS PlaybackStatus changes
func Connect(opts Options) (*Source, error) {
	if opts.BusName == "" {
		opts.BusName = DefaultBusName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(MPRISPath),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	s := &Source{
		conn:     conn,
		busName:  opts.BusName,
		signals:  make(chan *dbus.Signal, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   opts.Logger,
		handlers: make(map[int]func(stream.Interruption)),
	}
	if names := conn.Names(); len(names) > 0 {
		s.self = names[0]
	}

	conn.Signal(s.signals)
	go s.processSignals()

	s.logger.Info("watching MPRIS players for interruptions", "bus_name", s.busName)
	return s, nil
}

// processSignals reads signals until Close or the connection drops
func (s *Source) processSignals() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case sig, ok := <-s.signals:
			if !ok {
				return
			}
			ev, ok := parsePropertiesChanged(sig, s.self)
			if !ok {
				continue
			}

			s.logger.Debug("MPRIS playback change", "sender", sig.Sender, "phase", ev.Phase)
			s.dispatch(ev)
		}
	}
}

func (s *Source) dispatch(ev stream.Interruption) {
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

// Subscribe registers fn for every interruption
func (s *Source) Subscribe(fn func(stream.Interruption)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("interruption source closed")
	}

	id := s.next
	s.next++
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

// RequestFocus claims the bus name so other players can see us
func (s *Source) RequestFocus() error {
	reply, err := s.conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	switch reply {
	case dbus.RequestNameReplyPrimaryOwner, dbus.RequestNameReplyAlreadyOwner:
		return nil
	default:
		return fmt.Errorf("bus name %s already taken", s.busName)
	}
}

// AbandonFocus releases the bus name
func (s *Source) AbandonFocus() error {
	if _, err := s.conn.ReleaseName(s.busName); err != nil {
		return fmt.Errorf("failed to release bus name: %w", err)
	}
	return nil
}

// Close stops watching and closes the private connection
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.handlers = make(map[int]func(stream.Interruption))
	s.mu.Unlock()

	close(s.stop)
	s.conn.RemoveSignal(s.signals)
	err := s.conn.Close()
	<-s.done

	if err != nil {
		return fmt.Errorf("failed to close session bus: %w", err)
	}
	return nil
}

// ClassifyPlaybackStatus maps an MPRIS PlaybackStatus to an interruption
func ClassifyPlaybackStatus(status string) (stream.Interruption, bool) {
	switch status {
	case "Playing":
		return stream.Interruption{Phase: stream.InterruptionBegan}, true
	case "Paused":
		return stream.Interruption{Phase: stream.InterruptionEnded, ShouldResume: true}, true
	case "Stopped":
		return stream.Interruption{Phase: stream.InterruptionEnded}, true
	default:
		return stream.Interruption{}, false
	}
}

// parsePropertiesChanged extracts a PlaybackStatus change sent by
// another connection
func parsePropertiesChanged(sig *dbus.Signal, self string) (stream.Interruption, bool) {
	if sig == nil || sig.Name != propertiesChanged || sig.Path != MPRISPath {
		return stream.Interruption{}, false
	}
	if self != "" && sig.Sender == self {
		return stream.Interruption{}, false
	}
	if len(sig.Body) < 2 {
		return stream.Interruption{}, false
	}

	iface, ok := sig.Body[0].(string)
	if !ok || iface != PlayerInterface {
		return stream.Interruption{}, false
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return stream.Interruption{}, false
	}

	v, ok := changed["PlaybackStatus"]
	if !ok {
		return stream.Interruption{}, false
	}

	status, ok := v.Value().(string)
	if !ok {
		return stream.Interruption{}, false
	}

	return ClassifyPlaybackStatus(status)
}
