package dbgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

type Session struct {
	ID        string
	Name      string
	OwnerID   string
	GridUnit  float64
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type SessionSnapshot struct {
	ID        string
	SessionID string
	Version   int32
	Document  []byte
	CreatedAt pgtype.Timestamptz
}
