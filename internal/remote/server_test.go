package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/brownnoise/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu      sync.Mutex
	state   stream.State
	playErr error
	calls   []string
}

func (c *fakeController) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "play")
	if c.playErr != nil {
		return c.playErr
	}
	c.state = stream.StateRunning
	return nil
}

func (c *fakeController) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "stop")
	c.state = stream.StateIdle
	return nil
}

func (c *fakeController) Toggle() error {
	c.mu.Lock()
	running := c.state == stream.StateRunning
	c.mu.Unlock()
	if running {
		return c.Stop()
	}
	return c.Play()
}

func (c *fakeController) Stats() stream.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stream.Stats{State: c.state, SessionID: "abc"}
}

func (c *fakeController) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func newTestServer(t *testing.T, ctrl Controller) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{}, ctrl)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/control"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStateEndpoint(t *testing.T) {
	ctrl := &fakeController{state: stream.StateRunning}
	_, ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var msg StateMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, MessageState, msg.Type)
	assert.True(t, msg.Playing)
	assert.Equal(t, "running", msg.State)
	assert.Equal(t, "abc", msg.SessionID)
}

func TestStateEndpointRejectsPost(t *testing.T) {
	_, ts := newTestServer(t, &fakeController{})

	resp, err := http.Post(ts.URL+"/state", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestControlSendsInitialState(t *testing.T) {
	_, ts := newTestServer(t, &fakeController{})
	conn := dial(t, ts)

	msg := readJSON(t, conn)
	assert.Equal(t, "state", msg["type"])
	assert.Equal(t, false, msg["playing"])
}

func TestControlCommands(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)
	conn := dial(t, ts)
	readJSON(t, conn)

	for _, cmd := range []string{"toggle", "toggle", "play", "stop"} {
		require.NoError(t, conn.WriteJSON(Command{Type: cmd}))
	}
	require.NoError(t, conn.WriteJSON(Command{Type: "state"}))

	msg := readJSON(t, conn)
	assert.Equal(t, "state", msg["type"])
	assert.Equal(t, []string{"play", "stop", "play", "stop"}, ctrl.Calls())
}

func TestControlCommandError(t *testing.T) {
	ctrl := &fakeController{playErr: errors.New("audio device unavailable")}
	_, ts := newTestServer(t, ctrl)
	conn := dial(t, ts)
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(Command{Type: "play"}))

	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "play", msg["command"])
	assert.Equal(t, "audio device unavailable", msg["message"])
}

func TestControlUnknownCommand(t *testing.T) {
	_, ts := newTestServer(t, &fakeController{})
	conn := dial(t, ts)
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(Command{Type: "rewind"}))
	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "unknown command", msg["message"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = readJSON(t, conn)
	assert.Equal(t, "invalid message", msg["message"])
}

func TestBroadcast(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})
	a := dial(t, ts)
	b := dial(t, ts)
	readJSON(t, a)
	readJSON(t, b)

	require.Eventually(t, func() bool { return s.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)

	s.Broadcast(stream.Stats{State: stream.StateIdle, Interrupted: true})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readJSON(t, conn)
		assert.Equal(t, "state", msg["type"])
		assert.Equal(t, false, msg["playing"])
		assert.Equal(t, true, msg["interrupted"])
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})
	conn := dial(t, ts)
	readJSON(t, conn)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestStartAndShutdown(t *testing.T) {
	s := New(Config{Listen: "127.0.0.1:0"}, &fakeController{})
	require.NoError(t, s.Start())
	require.NotNil(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr().String() + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestNewStateMessage(t *testing.T) {
	msg := NewStateMessage(stream.Stats{
		State:      stream.StateRunning,
		DeviceTime: 1500 * time.Millisecond,
		SchedulerStats: stream.SchedulerStats{
			Mode:             stream.ModePush,
			QueueDepth:       3,
			SamplesGenerated: 264600,
			Underruns:        1,
		},
	})

	assert.Equal(t, StateMessage{
		Type:             "state",
		Playing:          true,
		State:            "running",
		Mode:             "push",
		QueueDepth:       3,
		SamplesGenerated: 264600,
		Underruns:        1,
		DeviceTimeMs:     1500,
	}, msg)
}

func TestServiceTXT(t *testing.T) {
	txt := serviceTXT()
	assert.Contains(t, txt, "path=/control")
	assert.Contains(t, txt, "state=/state")
}
