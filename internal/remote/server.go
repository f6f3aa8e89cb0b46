// ABOUTME: Remote control server
// ABOUTME: HTTP state endpoint plus a websocket for toggling playback
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/brownnoise/internal/version"
	"github.com/harperreed/brownnoise/pkg/stream"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 16
)

// Controller is the playback surface exposed to remote clients
type Controller interface {
	Play() error
	Stop() error
	Toggle() error
	Stats() stream.Stats
}

// Config holds server configuration
type Config struct {
	// Listen is the host:port to bind
	Listen string

	// Name is the mDNS instance name
	Name string

	// Advertise enables mDNS
	Advertise bool

	Logger *slog.Logger
}

// Server serves /state and /control
type Server struct {
	config     Config
	controller Controller
	logger     *slog.Logger

	upgrader   websocket.Upgrader
	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener
	advertiser *Advertiser

	clients   map[string]*client
	clientsMu sync.RWMutex
	wg        sync.WaitGroup
}

// client is one websocket connection
type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan interface{}
}

// New creates a remote control server
func New(config Config, controller Controller) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Name == "" {
		config.Name = version.Product
	}

	s := &Server{
		config:     config,
		controller: controller,
		logger:     config.Logger,
		mux:        http.NewServeMux(),
		clients:    make(map[string]*client),
		upgrader: websocket.Upgrader{
			// local network control surface; non-browser clients send no Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.mux.HandleFunc("/state", s.handleState)
	s.mux.HandleFunc("/control", s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listener, serves in the background and advertises
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("remote server error", "error", err)
		}
	}()

	s.logger.Info("remote control listening", "addr", ln.Addr().String())

	if s.config.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := Advertise(s.config.Name, port, s.logger)
		if err != nil {
			s.logger.Warn("failed to start mDNS advertisement", "error", err)
		} else {
			s.advertiser = adv
		}
	}

	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops advertising, closes clients and the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.advertiser.Shutdown(); err != nil {
		s.logger.Warn("mDNS shutdown error", "error", err)
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// hijacked websocket connections are not closed by Shutdown
	s.clientsMu.RLock()
	for _, c := range s.clients {
		_ = c.conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
	return err
}

// Broadcast sends a state snapshot to every connected client
func (s *Server) Broadcast(st stream.Stats) {
	msg := NewStateMessage(st)

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		if err := s.send(c, msg); err != nil {
			s.logger.Debug("dropping state update", "client", c.id, "error", err)
		}
	}
}

// Clients returns the number of connected websocket clients
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleState serves the current snapshot as JSON
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewStateMessage(s.controller.Stats())); err != nil {
		s.logger.Warn("failed to write state", "error", err)
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", "error", err)
		return
	}

	s.logger.Debug("remote client connected", "addr", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	c := &client{
		id:       uuid.NewString(),
		conn:     conn,
		sendChan: make(chan interface{}, sendBuffer),
	}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		close(c.sendChan)
		s.clientsMu.Unlock()
		s.logger.Debug("remote client disconnected", "client", c.id)
	}()

	// current state first so the client can render immediately
	_ = s.send(c, NewStateMessage(s.controller.Stats()))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket error", "client", c.id, "error", err)
			}
			return
		}

		s.handleCommand(c, data)
	}
}

// handleCommand runs one client command
func (s *Server) handleCommand(c *client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		_ = s.send(c, ErrorMessage{Type: MessageError, Message: "invalid message"})
		return
	}

	var err error
	switch cmd.Type {
	case CommandToggle:
		err = s.controller.Toggle()
	case CommandPlay:
		err = s.controller.Play()
	case CommandStop:
		err = s.controller.Stop()
	case CommandState:
		_ = s.send(c, NewStateMessage(s.controller.Stats()))
		return
	default:
		_ = s.send(c, ErrorMessage{Type: MessageError, Command: cmd.Type, Message: "unknown command"})
		return
	}

	s.logger.Info("remote command", "client", c.id, "command", cmd.Type, "error", err)

	if err != nil {
		_ = s.send(c, ErrorMessage{Type: MessageError, Command: cmd.Type, Message: err.Error()})
	}
}

// send queues a message without blocking
func (s *Server) send(c *client, msg interface{}) error {
	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Warn("error marshaling message", "error", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("error writing message", "client", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
