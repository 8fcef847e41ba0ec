package document

import (
	"errors"
	"fmt"
)

// DefaultGridUnit matches the canvas grid spacing of the front-end.
const DefaultGridUnit = 30.0

// Session is the persisted state of one visualizer session.
// Undo and Redo hold the history stacks, both listed bottom first.
type Session struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Version   int     `json:"version"`
	GridUnit  float64 `json:"gridUnit"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
	Shape     Shape   `json:"shape"`
	Undo      []Step  `json:"undo"`
	Redo      []Step  `json:"redo"`
}

// Shape is the polygon being transformed. Vertices are in grid cells.
type Shape struct {
	Name        string       `json:"name"`
	Vertices    [][2]float64 `json:"vertices"`
	Fill        string       `json:"fill"`
	Stroke      string       `json:"stroke"`
	StrokeWidth float64      `json:"strokeWidth"`
}

// Step is one applied transform as stored. Elements are row-major with
// translation already scaled by the session grid unit.
type Step struct {
	ID        string     `json:"id"`
	Elements  [9]float64 `json:"elements"`
	Inputs    []string   `json:"inputs,omitempty"`
	AppliedAt string     `json:"appliedAt"`
}

var (
	ErrNoShape      = errors.New("shape needs at least 3 vertices")
	ErrBadGridUnit  = errors.New("grid unit must be positive")
	ErrDuplicateRef = errors.New("step appears in both undo and redo")
)

// Validate checks the invariants a loaded session must hold.
func (s *Session) Validate() error {
	if s.GridUnit <= 0 {
		return ErrBadGridUnit
	}
	if len(s.Shape.Vertices) < 3 {
		return ErrNoShape
	}

	seen := make(map[string]bool, len(s.Undo))
	for _, st := range s.Undo {
		if st.ID != "" {
			seen[st.ID] = true
		}
	}
	for _, st := range s.Redo {
		if st.ID != "" && seen[st.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateRef, st.ID)
		}
	}
	return nil
}

// DefaultShape returns the arrow-shaped polygon drawn when a session starts.
// It is asymmetric so rotations and reflections are visible.
func DefaultShape() Shape {
	return Shape{
		Name: "arrow",
		Vertices: [][2]float64{
			{0, 0},
			{2, 0},
			{2, 1},
			{3, 1},
			{1.5, 2.5},
			{0, 1},
		},
		Fill:        "#4f86f7",
		Stroke:      "#1b3a7a",
		StrokeWidth: 2,
	}
}

// NewEmptySession creates a session with no history.
func NewEmptySession(sessionID, name string, gridUnit float64) *Session {
	if gridUnit <= 0 {
		gridUnit = DefaultGridUnit
	}
	return &Session{
		ID:        sessionID,
		Name:      name,
		Version:   1,
		GridUnit:  gridUnit,
		CreatedAt: "", // Will be set by caller
		UpdatedAt: "",
		Shape:     DefaultShape(),
		Undo:      []Step{},
		Redo:      []Step{},
	}
}
