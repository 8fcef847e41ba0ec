package collab

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/inamate/transformlab/internal/document"
	"github.com/inamate/transformlab/internal/engine"
)

const recvTimeout = 2 * time.Second

type savedDoc struct {
	sessionID string
	doc       *document.Session
}

func newTestHub(t *testing.T) (*Hub, chan savedDoc) {
	t.Helper()
	saves := make(chan savedDoc, 8)
	loader := func(_ context.Context, sessionID string) (*document.Session, error) {
		if sessionID == "sess_missing" {
			return nil, errors.New("no such session")
		}
		return document.NewEmptySession(sessionID, "test", 30), nil
	}
	saver := func(_ context.Context, sessionID string, doc *document.Session) error {
		saves <- savedDoc{sessionID: sessionID, doc: doc}
		return nil
	}

	hub := NewHub(loader, saver, HubConfig{GridUnit: 30})
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub, saves
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatalf("client %s: channel closed", c.ClientID)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		return msg
	case <-time.After(recvTimeout):
		t.Fatalf("client %s: no message within %v", c.ClientID, recvTimeout)
	}
	return Message{}
}

func expect(t *testing.T, c *Client, msgType string) Message {
	t.Helper()
	msg := recv(t, c)
	if msg.Type != msgType {
		t.Fatalf("client %s: got %q, want %q (payload %s)", c.ClientID, msg.Type, msgType, msg.Payload)
	}
	return msg
}

func decode[T any](t *testing.T, msg Message) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		t.Fatalf("decode %s payload: %v", msg.Type, err)
	}
	return v
}

func submit(t *testing.T, op Operation) *Message {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: op})
	if err != nil {
		t.Fatal(err)
	}
	return &Message{Type: TypeOpSubmit, Payload: payload}
}

func join(t *testing.T, hub *Hub, c *Client) engine.State {
	t.Helper()
	hub.Register(c)
	expect(t, c, TypeWelcome)
	synced := decode[StateSyncPayload](t, expect(t, c, TypeStateSync))
	expect(t, c, TypePresenceState)
	return synced.State
}

func TestHubSession(t *testing.T) {
	hub, saves := newTestHub(t)

	a := NewClient(hub, nil, "user_a", "A", "sess_1", "c1")
	b := NewClient(hub, nil, "user_b", "B", "sess_1", "c2")

	st := join(t, hub, a)
	if !st.Current.IsIdentity() {
		t.Fatalf("initial total = %v, want identity", st.Current)
	}
	join(t, hub, b)
	joined := decode[PresenceJoinPayload](t, expect(t, a, TypePresenceJoin))
	if joined.ClientID != "c2" {
		t.Errorf("join client = %q, want c2", joined.ClientID)
	}

	// Undo with nothing applied is refused with the rejection reason.
	hub.handleMessage(a, submit(t, Operation{ID: "op1", Type: OpHistoryUndo}))
	nack := decode[OperationNackPayload](t, expect(t, a, TypeOpNack))
	if nack.OperationID != "op1" || nack.Reason != ReasonRejected {
		t.Errorf("nack = %+v, want op1/%s", nack, ReasonRejected)
	}

	hub.handleMessage(a, submit(t, Operation{ID: "op2", Type: OpTransformApply, Inputs: translateOneCell}))
	ack := decode[OperationAckPayload](t, expect(t, a, TypeOpAck))
	if ack.OperationID != "op2" || ack.ServerSeq != 1 || ack.StepID == "" {
		t.Errorf("ack = %+v", ack)
	}
	syncA := decode[StateSyncPayload](t, expect(t, a, TypeStateSync))
	if syncA.Seq != 1 || syncA.State.Current[engine.E13] != 30 {
		t.Errorf("sync to sender = seq %d, e13 %v", syncA.Seq, syncA.State.Current[engine.E13])
	}

	bc := decode[OperationBroadcastPayload](t, expect(t, b, TypeOpBroadcast))
	if bc.UserID != "user_a" || bc.Operation.StepID != ack.StepID {
		t.Errorf("broadcast = %+v", bc)
	}
	syncB := decode[StateSyncPayload](t, expect(t, b, TypeStateSync))
	if syncB.State.Current != syncA.State.Current {
		t.Errorf("peers disagree: %v vs %v", syncB.State.Current, syncA.State.Current)
	}

	// Malformed inputs are refused as invalid, not rejected.
	hub.handleMessage(b, submit(t, Operation{ID: "op3", Type: OpTransformApply, Inputs: []string{"1"}}))
	nack = decode[OperationNackPayload](t, expect(t, b, TypeOpNack))
	if nack.Reason != ReasonInvalid {
		t.Errorf("reason = %q, want %q", nack.Reason, ReasonInvalid)
	}

	hub.Unregister(a)
	left := decode[PresenceLeavePayload](t, expect(t, b, TypePresenceLeave))
	if left.ClientID != "c1" {
		t.Errorf("leave client = %q, want c1", left.ClientID)
	}

	hub.Unregister(b)
	select {
	case s := <-saves:
		if s.sessionID != "sess_1" || len(s.doc.Undo) != 1 {
			t.Errorf("saved %s with %d undo steps", s.sessionID, len(s.doc.Undo))
		}
	case <-time.After(recvTimeout):
		t.Fatal("session was not saved when the last client left")
	}
}

func TestHubPresenceUpdate(t *testing.T) {
	hub, _ := newTestHub(t)

	a := NewClient(hub, nil, "user_a", "A", "sess_2", "c1")
	b := NewClient(hub, nil, "user_b", "B", "sess_2", "c2")
	join(t, hub, a)
	join(t, hub, b)
	expect(t, a, TypePresenceJoin)

	payload, _ := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 2, Y: -1}, HoveredStep: "step_x"})
	hub.handleMessage(a, &Message{Type: TypePresenceUpdate, Payload: payload})

	got := decode[PresencePayload](t, expect(t, b, TypePresenceUpdate))
	if got.DisplayName != "A" || got.UserID != "user_a" {
		t.Errorf("presence identity = %q/%q", got.UserID, got.DisplayName)
	}
	if got.Cursor == nil || got.Cursor.X != 2 || got.Cursor.Y != -1 || got.HoveredStep != "step_x" {
		t.Errorf("presence = %+v", got)
	}
}

func TestHubLoadFailure(t *testing.T) {
	hub, _ := newTestHub(t)

	c := NewClient(hub, nil, "user_a", "A", "sess_missing", "c1")
	hub.Register(c)
	expect(t, c, TypeError)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected channel to be closed after load failure")
		}
	case <-time.After(recvTimeout):
		t.Fatal("channel not closed after load failure")
	}
}

func TestHubStopSavesDirtyRooms(t *testing.T) {
	saves := make(chan savedDoc, 1)
	hub := NewHub(
		func(_ context.Context, id string) (*document.Session, error) {
			return document.NewEmptySession(id, "test", 30), nil
		},
		func(_ context.Context, id string, doc *document.Session) error {
			saves <- savedDoc{sessionID: id, doc: doc}
			return nil
		},
		HubConfig{GridUnit: 30},
	)
	go hub.Run()

	c := NewClient(hub, nil, "user_a", "A", "sess_3", "c1")
	join(t, hub, c)
	hub.handleMessage(c, submit(t, Operation{ID: "op1", Type: OpTransformApply, Inputs: translateOneCell}))
	expect(t, c, TypeOpAck)

	hub.Stop()
	hub.Stop()

	select {
	case s := <-saves:
		if s.sessionID != "sess_3" {
			t.Errorf("saved %q, want sess_3", s.sessionID)
		}
	default:
		t.Fatal("Stop returned without saving the dirty room")
	}
}

func TestHubRefusesOverflowingOp(t *testing.T) {
	hub, _ := newTestHub(t)

	a := NewClient(hub, nil, "user_a", "A", "sess_4", "c1")
	b := NewClient(hub, nil, "user_b", "B", "sess_4", "c2")
	join(t, hub, a)
	join(t, hub, b)
	expect(t, a, TypePresenceJoin)

	overflow := []string{"1e200", "1e200", "0", "1e200", "1e200", "0", "0", "0", "1"}
	hub.handleMessage(a, submit(t, Operation{ID: "op1", Type: OpTransformApply, Inputs: overflow}))
	nack := decode[OperationNackPayload](t, expect(t, a, TypeOpNack))
	if nack.OperationID != "op1" || nack.Reason != ReasonInvalid {
		t.Errorf("nack = %+v, want op1/%s", nack, ReasonInvalid)
	}

	// The refused op leaves no sync behind: the next messages belong to op2.
	hub.handleMessage(a, submit(t, Operation{ID: "op2", Type: OpTransformApply, Inputs: translateOneCell}))
	ack := decode[OperationAckPayload](t, expect(t, a, TypeOpAck))
	if ack.ServerSeq != 1 {
		t.Errorf("ack seq = %d, want 1", ack.ServerSeq)
	}
	expect(t, b, TypeOpBroadcast)

	for _, c := range []*Client{a, b} {
		msg := expect(t, c, TypeStateSync)
		if string(msg.Payload) == "null" {
			t.Fatalf("client %s got a null state.sync", c.ClientID)
		}
		synced := decode[StateSyncPayload](t, msg)
		if synced.State.Current[engine.E13] != 30 || !synced.State.Invertible {
			t.Errorf("client %s sync = %+v", c.ClientID, synced.State)
		}
	}
}

func TestHubKeepsRoomWhenSaveFails(t *testing.T) {
	saves := make(chan savedDoc, 4)
	failed := false
	loads := 0
	hub := NewHub(
		func(_ context.Context, id string) (*document.Session, error) {
			loads++
			return document.NewEmptySession(id, "test", 30), nil
		},
		func(_ context.Context, id string, doc *document.Session) error {
			if !failed {
				failed = true
				return errors.New("database unavailable")
			}
			saves <- savedDoc{sessionID: id, doc: doc}
			return nil
		},
		HubConfig{GridUnit: 30},
	)
	go hub.Run()

	a := NewClient(hub, nil, "user_a", "A", "sess_5", "c1")
	join(t, hub, a)
	hub.handleMessage(a, submit(t, Operation{ID: "op1", Type: OpTransformApply, Inputs: translateOneCell}))
	expect(t, a, TypeOpAck)
	hub.Unregister(a)

	// The first save failed, so the unsaved edit is still live for the next tab.
	b := NewClient(hub, nil, "user_a", "A", "sess_5", "c2")
	st := join(t, hub, b)
	if st.Current[engine.E13] != 30 {
		t.Errorf("rejoined total e13 = %v, want 30", st.Current[engine.E13])
	}

	hub.Stop()
	if loads != 1 {
		t.Errorf("session loaded %d times, want 1", loads)
	}
	select {
	case s := <-saves:
		if s.sessionID != "sess_5" || len(s.doc.Undo) != 1 {
			t.Errorf("saved %s with %d undo steps", s.sessionID, len(s.doc.Undo))
		}
	default:
		t.Fatal("Stop did not retry the failed save")
	}
}

func TestMessageEncodeFailure(t *testing.T) {
	payload := StateSyncPayload{State: engine.State{Determinant: math.NaN()}}
	if _, err := newMessage(TypeStateSync, payload); err == nil {
		t.Fatal("newMessage accepted a NaN payload")
	}

	msg := message(TypeStateSync, payload)
	if msg.Type != TypeError {
		t.Fatalf("type = %q, want %q", msg.Type, TypeError)
	}
	if got := decode[ErrorPayload](t, *msg); got.Message == "" {
		t.Error("error message is empty")
	}
}

func TestClientDecode(t *testing.T) {
	c := NewClient(nil, nil, "user_a", "A", "sess_6", "c1")

	tests := []struct {
		name       string
		typ        websocket.MessageType
		data       string
		wantReason string
	}{
		{"op submit", websocket.MessageText, `{"type":"op.submit","payload":{}}`, ""},
		{"same session", websocket.MessageText, `{"type":"presence.update","sessionId":"sess_6","payload":{}}`, ""},
		{"binary frame", websocket.MessageBinary, `{"type":"op.submit"}`, "expected a text frame"},
		{"malformed", websocket.MessageText, `{"type":`, "invalid message"},
		{"other session", websocket.MessageText, `{"type":"op.submit","sessionId":"sess_7","payload":{}}`, "message addressed to another session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, reason := c.decode(tt.typ, []byte(tt.data))
			if reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tt.wantReason)
			}
			if tt.wantReason != "" {
				if msg != nil {
					t.Errorf("decode returned %+v alongside a refusal", msg)
				}
				return
			}
			if msg.UserID != "user_a" || msg.ClientID != "c1" || msg.SessionID != "sess_6" {
				t.Errorf("identity = %q/%q/%q", msg.UserID, msg.ClientID, msg.SessionID)
			}
		})
	}
}
