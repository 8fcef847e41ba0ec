package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/inamate/transformlab/internal/db/dbgen"
	"github.com/inamate/transformlab/internal/document"
	"github.com/inamate/transformlab/internal/engine"
	"github.com/inamate/transformlab/internal/typeid"
)

// PlaygroundID is the shared session open to anonymous users. It is never
// stored; it always starts from the sample document.
const PlaygroundID = "playground"

var (
	ErrNotFound  = errors.New("session not found")
	ErrForbidden = errors.New("forbidden")
)

// Store is the subset of the query layer used by sessions.
type Store interface {
	CreateSession(ctx context.Context, arg dbgen.CreateSessionParams) (dbgen.Session, error)
	GetSession(ctx context.Context, id string) (dbgen.Session, error)
	ListSessionsForUser(ctx context.Context, ownerID string) ([]dbgen.Session, error)
	DeleteSession(ctx context.Context, id string) error
	TouchSession(ctx context.Context, id string) error
	CreateSnapshot(ctx context.Context, arg dbgen.CreateSnapshotParams) (dbgen.SessionSnapshot, error)
	GetLatestSnapshot(ctx context.Context, sessionID string) (dbgen.SessionSnapshot, error)
}

type Service struct {
	store        Store
	gridUnit     float64
	historyLimit int
}

func NewService(store Store, gridUnit float64, historyLimit int) *Service {
	if gridUnit <= 0 {
		gridUnit = document.DefaultGridUnit
	}
	return &Service{store: store, gridUnit: gridUnit, historyLimit: historyLimit}
}

type Session struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OwnerID   string  `json:"ownerId"`
	GridUnit  float64 `json:"gridUnit"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// Create stores a new session and seeds it with an empty history snapshot.
// A non-positive gridUnit falls back to the configured default.
func (s *Service) Create(ctx context.Context, name, ownerID string, gridUnit float64) (*Session, error) {
	if gridUnit <= 0 {
		gridUnit = s.gridUnit
	}
	sessionID := typeid.NewSessionID()

	dbSess, err := s.store.CreateSession(ctx, dbgen.CreateSessionParams{
		ID:       sessionID,
		Name:     name,
		OwnerID:  ownerID,
		GridUnit: gridUnit,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	doc := document.NewEmptySession(sessionID, name, gridUnit)
	now := time.Now().UTC().Format(time.RFC3339)
	doc.CreatedAt = now
	doc.UpdatedAt = now
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal empty session: %w", err)
	}

	_, err = s.store.CreateSnapshot(ctx, dbgen.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		SessionID: sessionID,
		Version:   1,
		Document:  docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return dbSessionToSession(dbSess), nil
}

func (s *Service) Get(ctx context.Context, sessionID, userID string) (*Session, error) {
	dbSess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return dbSessionToSession(dbSess), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Session, error) {
	dbSessions, err := s.store.ListSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]Session, len(dbSessions))
	for i, sess := range dbSessions {
		sessions[i] = *dbSessionToSession(sess)
	}
	return sessions, nil
}

func (s *Service) Delete(ctx context.Context, sessionID, userID string) error {
	if _, err := s.owned(ctx, sessionID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authorize checks that userID may open sessionID.
func (s *Service) Authorize(ctx context.Context, sessionID, userID string) error {
	_, err := s.owned(ctx, sessionID, userID)
	return err
}

func (s *Service) GetLatestSnapshot(ctx context.Context, sessionID, userID string) (json.RawMessage, error) {
	if _, err := s.owned(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	snap, err := s.store.GetLatestSnapshot(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Document, nil
}

// State replays the latest snapshot and returns the resulting state view.
func (s *Service) State(ctx context.Context, sessionID, userID string) (*engine.State, error) {
	if _, err := s.owned(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	doc, err := s.LoadDocument(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	eng := engine.NewEngine(doc.GridUnit, s.historyLimit)
	if err := eng.LoadSession(doc); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	st := eng.State()
	return &st, nil
}

// LoadDocument returns the latest stored document of a session. It does no
// access check; the live hub calls it after the websocket handshake has.
func (s *Service) LoadDocument(ctx context.Context, sessionID string) (*document.Session, error) {
	if sessionID == PlaygroundID {
		return document.NewSampleSession(PlaygroundID), nil
	}

	snap, err := s.store.GetLatestSnapshot(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var doc document.Session
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return &doc, nil
}

// SaveDocument stores doc as the next snapshot version of the session.
// The playground is never persisted.
func (s *Service) SaveDocument(ctx context.Context, sessionID string, doc *document.Session) error {
	if sessionID == PlaygroundID {
		return nil
	}

	nextVersion := int32(1)
	current, err := s.store.GetLatestSnapshot(ctx, sessionID)
	switch {
	case err == nil:
		nextVersion = current.Version + 1
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("get snapshot: %w", err)
	}

	doc.Version = int(nextVersion)
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.store.CreateSnapshot(ctx, dbgen.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		SessionID: sessionID,
		Version:   nextVersion,
		Document:  docJSON,
	})
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if err := s.store.TouchSession(ctx, sessionID); err != nil {
		slog.Warn("touch session", "error", err, "session", sessionID)
	}

	slog.Info("session saved", "session", sessionID, "version", nextVersion)
	return nil
}

func (s *Service) owned(ctx context.Context, sessionID, userID string) (dbgen.Session, error) {
	if err := typeid.Validate(sessionID, typeid.Session); err != nil {
		return dbgen.Session{}, ErrNotFound
	}
	dbSess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Session{}, ErrNotFound
		}
		return dbgen.Session{}, fmt.Errorf("get session: %w", err)
	}
	if dbSess.OwnerID != userID {
		return dbgen.Session{}, ErrForbidden
	}
	return dbSess, nil
}

func dbSessionToSession(s dbgen.Session) *Session {
	return &Session{
		ID:        s.ID,
		Name:      s.Name,
		OwnerID:   s.OwnerID,
		GridUnit:  s.GridUnit,
		CreatedAt: s.CreatedAt.Time.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: s.UpdatedAt.Time.Format("2006-01-02T15:04:05Z"),
	}
}
