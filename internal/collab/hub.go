package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/transformlab/internal/document"
	"github.com/inamate/transformlab/internal/engine"
	"github.com/inamate/transformlab/internal/typeid"
)

const (
	loadTimeout = 10 * time.Second
	saveTimeout = 10 * time.Second
)

// Loader returns the stored document of a session.
type Loader func(ctx context.Context, sessionID string) (*document.Session, error)

// Saver persists a session document.
type Saver func(ctx context.Context, sessionID string, doc *document.Session) error

// HubConfig tunes the engines the hub creates and how often it saves.
type HubConfig struct {
	GridUnit     float64
	HistoryLimit int
	// SaveInterval is the autosave period for dirty rooms. Zero disables it.
	SaveInterval time.Duration
}

type Room struct {
	sessionID string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	state     *DocumentState
}

func NewRoom(sessionID string, state *DocumentState) *Room {
	return &Room{
		sessionID: sessionID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		state:     state,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	register   chan *Client
	unregister chan *Client

	loader Loader
	saver  Saver
	cfg    HubConfig

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewHub(loader Loader, saver Saver, cfg HubConfig) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		loader:     loader,
		saver:      saver,
		cfg:        cfg,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes joins and leaves until Stop is called. Dirty rooms are saved
// every SaveInterval and once more on stop.
func (h *Hub) Run() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.cfg.SaveInterval > 0 {
		ticker := time.NewTicker(h.cfg.SaveInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-tick:
			h.saveDirty()
		case <-h.stop:
			h.saveDirty()
			h.closeAll()
			return
		}
	}
}

// Stop saves every dirty room, disconnects all clients and waits for Run to
// return. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.RLock()
	room, ok := h.rooms[client.SessionID]
	h.mu.RUnlock()

	if !ok {
		state, err := h.loadState(client.SessionID)
		if err != nil {
			slog.Error("load session", "error", err, "session", client.SessionID)
			client.Send(message(TypeError, ErrorPayload{Message: "could not load session"}))
			client.close()
			return
		}
		room = NewRoom(client.SessionID, state)
	}

	h.mu.Lock()
	h.rooms[client.SessionID] = room
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(message(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		UserID:    client.UserID,
		SessionID: client.SessionID,
	}))

	seq, st := room.state.State()
	client.Send(message(TypeStateSync, StateSyncPayload{Seq: seq, State: st}))

	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinMsg := message(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.SessionID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "session", client.SessionID)
}

func (h *Hub) loadState(sessionID string) (*DocumentState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	doc, err := h.loader(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Documents written before the grid unit was stored use the default.
	if doc.GridUnit <= 0 {
		doc.GridUnit = h.cfg.GridUnit
	}

	eng := engine.NewEngine(doc.GridUnit, h.cfg.HistoryLimit)
	if err := eng.LoadSession(doc); err != nil {
		return nil, err
	}
	return NewDocumentState(eng), nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	h.mu.Unlock()

	slog.Info("client left", "user", client.UserID, "session", client.SessionID)

	if empty {
		if h.save(room) {
			h.evictIfEmpty(room)
		}
		return
	}

	leaveMsg := message(TypePresenceLeave, PresenceLeavePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
	})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.SessionID, leaveMsg, "")
}

// save persists room if it has unsaved operations. It reports whether the
// room is clean afterwards.
func (h *Hub) save(room *Room) bool {
	if h.saver == nil || !room.state.Dirty() {
		return true
	}

	seq, doc := room.state.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := h.saver(ctx, room.sessionID, doc); err != nil {
		slog.Error("save session", "error", err, "session", room.sessionID)
		return false
	}
	room.state.MarkSaved(seq)
	return true
}

// evictIfEmpty drops a room nobody is editing. A room whose last save failed
// is kept until a later save succeeds.
func (h *Hub) evictIfEmpty(room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(room.clients) == 0 && h.rooms[room.sessionID] == room {
		delete(h.rooms, room.sessionID)
	}
}

func (h *Hub) saveDirty() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		if h.save(room) {
			h.evictIfEmpty(room)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.close()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(message(TypeError, ErrorPayload{Message: "unknown message type"}))
	}
}

func (h *Hub) room(sessionID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[sessionID]
	return room, ok
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid op payload", "error", err, "user", sender.UserID)
		sender.Send(message(TypeOpNack, OperationNackPayload{Reason: ReasonInvalid, Detail: "invalid payload"}))
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	room, ok := h.room(sender.SessionID)
	if !ok {
		return
	}

	seq, st, err := room.state.ApplyOperation(&op)
	if err != nil {
		reason := ReasonInvalid
		if errors.Is(err, ErrRejected) {
			reason = ReasonRejected
		}
		slog.Debug("op refused", "op", op.Type, "reason", reason, "error", err, "session", sender.SessionID)
		sender.Send(message(TypeOpNack, OperationNackPayload{
			OperationID: op.ID,
			Reason:      reason,
			Detail:      err.Error(),
		}))
		return
	}

	sender.Send(message(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		StepID:          op.StepID,
		ServerSeq:       seq,
		ServerTimestamp: time.Now().UnixMilli(),
	}))

	broadcast := message(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	broadcast.UserID = sender.UserID
	broadcast.Seq = seq
	h.broadcastToRoom(sender.SessionID, broadcast, sender.ClientID)

	syncMsg := message(TypeStateSync, StateSyncPayload{Seq: seq, State: st})
	syncMsg.Seq = seq
	h.broadcastToRoom(sender.SessionID, syncMsg, "")

	if op.Type != OpTransformApply {
		h.dropStaleHovers(room, st)
	}
}

func (h *Hub) dropStaleHovers(room *Room, st engine.State) {
	live := make(map[string]bool, len(st.UndoHistory)+len(st.RedoHistory))
	for _, s := range st.UndoHistory {
		live[s.ID] = true
	}
	for _, s := range st.RedoHistory {
		live[s.ID] = true
	}
	if cleared := room.presence.ClearHover(live); len(cleared) > 0 {
		if stateMsg := room.presence.StateMessage(); stateMsg != nil {
			h.broadcastToRoom(room.sessionID, stateMsg, "")
		}
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.UserID = sender.UserID
	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.SessionID)
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	outMsg := message(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.SessionID, outMsg, sender.ClientID)
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
