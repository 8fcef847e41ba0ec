// Package typeid mints the prefixed, time-sortable IDs of the lab: users,
// sessions, stored snapshots, history steps and live operations.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

var (
	ErrMalformed = errors.New("malformed id")
	ErrWrongKind = errors.New("id of another kind")
)

// Kind is the prefix that says what an ID names, e.g. "sess" in
// "sess_01h455vb4pex5vsknk084sn02q".
type Kind string

const (
	User     Kind = "user"
	Session  Kind = "sess"
	Snapshot Kind = "snap"
	Step     Kind = "step"
	Op       Kind = "op"
)

// New mints a fresh ID of kind k.
func (k Kind) New() string {
	return typeid.MustGenerate(string(k)).String()
}

func NewUserID() string     { return User.New() }
func NewSessionID() string  { return Session.New() }
func NewSnapshotID() string { return Snapshot.New() }
func NewStepID() string     { return Step.New() }
func NewOpID() string       { return Op.New() }

// KindOf parses id and returns its kind.
func KindOf(id string) (Kind, error) {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrMalformed, id, err)
	}
	return Kind(parsed.Prefix()), nil
}

// Validate checks that id is well formed and names a want.
func Validate(id string, want Kind) error {
	got, err := KindOf(id)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %q is a %s id, want %s", ErrWrongKind, id, got, want)
	}
	return nil
}
