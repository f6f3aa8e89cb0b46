// ABOUTME: Remote control message types
// ABOUTME: JSON commands in, state snapshots out
package remote

import (
	"github.com/harperreed/brownnoise/pkg/stream"
)

// Command types accepted on /control
const (
	CommandToggle = "toggle"
	CommandPlay   = "play"
	CommandStop   = "stop"
	CommandState  = "state"
)

// Message types sent to clients
const (
	MessageState = "state"
	MessageError = "error"
)

// Command is a client request
type Command struct {
	Type string `json:"type"`
}

// StateMessage is the session snapshot sent to clients and served on /state
type StateMessage struct {
	Type             string `json:"type"`
	Playing          bool   `json:"playing"`
	Interrupted      bool   `json:"interrupted"`
	State            string `json:"state"`
	SessionID        string `json:"session_id,omitempty"`
	Mode             string `json:"mode,omitempty"`
	QueueDepth       int    `json:"queue_depth"`
	SamplesGenerated int64  `json:"samples_generated"`
	Underruns        int64  `json:"underruns"`
	DeviceTimeMs     int64  `json:"device_time_ms"`
}

// ErrorMessage reports a failed command to the client that sent it
type ErrorMessage struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// NewStateMessage converts session stats to the wire form
func NewStateMessage(st stream.Stats) StateMessage {
	return StateMessage{
		Type:             MessageState,
		Playing:          st.State == stream.StateRunning,
		Interrupted:      st.Interrupted,
		State:            st.State.String(),
		SessionID:        st.SessionID,
		Mode:             st.Mode,
		QueueDepth:       st.QueueDepth,
		SamplesGenerated: st.SamplesGenerated,
		Underruns:        st.Underruns,
		DeviceTimeMs:     st.DeviceTime.Milliseconds(),
	}
}
