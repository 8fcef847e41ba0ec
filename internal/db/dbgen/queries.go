package dbgen

import (
	"context"
)

const createUser = `
INSERT INTO users (id, email, password, display_name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password, display_name, created_at`

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.DisplayName, &i.CreatedAt)
	return i, err
}

const getUserByEmail = `
SELECT id, email, password, display_name, created_at
FROM users
WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.DisplayName, &i.CreatedAt)
	return i, err
}

const getUserByID = `
SELECT id, email, password, display_name, created_at
FROM users
WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.DisplayName, &i.CreatedAt)
	return i, err
}

const createSession = `
INSERT INTO sessions (id, name, owner_id, grid_unit)
VALUES ($1, $2, $3, $4)
RETURNING id, name, owner_id, grid_unit, created_at, updated_at`

type CreateSessionParams struct {
	ID       string
	Name     string
	OwnerID  string
	GridUnit float64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRow(ctx, createSession, arg.ID, arg.Name, arg.OwnerID, arg.GridUnit)
	var i Session
	err := row.Scan(&i.ID, &i.Name, &i.OwnerID, &i.GridUnit, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getSession = `
SELECT id, name, owner_id, grid_unit, created_at, updated_at
FROM sessions
WHERE id = $1`

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	row := q.db.QueryRow(ctx, getSession, id)
	var i Session
	err := row.Scan(&i.ID, &i.Name, &i.OwnerID, &i.GridUnit, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listSessionsForUser = `
SELECT id, name, owner_id, grid_unit, created_at, updated_at
FROM sessions
WHERE owner_id = $1
ORDER BY updated_at DESC`

func (q *Queries) ListSessionsForUser(ctx context.Context, ownerID string) ([]Session, error) {
	rows, err := q.db.Query(ctx, listSessionsForUser, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Session
	for rows.Next() {
		var i Session
		if err := rows.Scan(&i.ID, &i.Name, &i.OwnerID, &i.GridUnit, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSession = `
DELETE FROM sessions
WHERE id = $1`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteSession, id)
	return err
}

const touchSession = `
UPDATE sessions
SET updated_at = now()
WHERE id = $1`

func (q *Queries) TouchSession(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, touchSession, id)
	return err
}

const createSnapshot = `
INSERT INTO session_snapshots (id, session_id, version, document)
VALUES ($1, $2, $3, $4)
RETURNING id, session_id, version, document, created_at`

type CreateSnapshotParams struct {
	ID        string
	SessionID string
	Version   int32
	Document  []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (SessionSnapshot, error) {
	row := q.db.QueryRow(ctx, createSnapshot, arg.ID, arg.SessionID, arg.Version, arg.Document)
	var i SessionSnapshot
	err := row.Scan(&i.ID, &i.SessionID, &i.Version, &i.Document, &i.CreatedAt)
	return i, err
}

const getLatestSnapshot = `
SELECT id, session_id, version, document, created_at
FROM session_snapshots
WHERE session_id = $1
ORDER BY version DESC
LIMIT 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context, sessionID string) (SessionSnapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot, sessionID)
	var i SessionSnapshot
	err := row.Scan(&i.ID, &i.SessionID, &i.Version, &i.Document, &i.CreatedAt)
	return i, err
}
