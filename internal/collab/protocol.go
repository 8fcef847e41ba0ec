package collab

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/inamate/transformlab/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// PresencePayload is what a client shares about itself: where its pointer is
// on the grid and which history entry it is hovering.
type PresencePayload struct {
	UserID      string     `json:"userId,omitempty"`
	Cursor      *CursorPos `json:"cursor,omitempty"`
	HoveredStep string     `json:"hoveredStep,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is in grid cells.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"` // clientID -> presence
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// StateSyncPayload carries the full state view. Seq lets clients drop a
// sync that arrives after a newer one.
type StateSyncPayload struct {
	Seq   int64        `json:"seq"`
	State engine.State `json:"state"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// State sync
	TypeStateSync = "state.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation types
const (
	OpTransformApply = "transform.apply"
	OpHistoryUndo    = "history.undo"
	OpHistoryRedo    = "history.redo"
	OpHistoryReset   = "history.reset"
)

// Nack reasons
const (
	// ReasonRejected marks an undo or redo with nothing to act on.
	ReasonRejected = "rejected"
	ReasonInvalid  = "invalid"
)

// Operation is one edit submitted by a client.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// For transform.apply: the 9 row-major fields as typed.
	Inputs []string `json:"inputs,omitempty"`
	// Set by the server on transform.apply to the id of the new history step.
	StepID string `json:"stepId,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	StepID          string `json:"stepId,omitempty"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail,omitempty"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

// newMessage wraps payload in a message of type msgType.
func newMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return &Message{Type: msgType, Payload: data}, nil
}

// encodeFailure replaces a message whose payload could not be encoded.
var encodeFailure = json.RawMessage(`{"message":"server could not encode message"}`)

// message is newMessage for the hub's outgoing traffic. An unencodable
// payload is logged and goes out as an error message instead.
func message(msgType string, payload any) *Message {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		slog.Error("encode message", "type", msgType, "error", err)
		return &Message{Type: TypeError, Payload: encodeFailure}
	}
	return msg
}
