package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inamate/transformlab/internal/document"
	"github.com/inamate/transformlab/internal/typeid"
)

// ErrNonFinite is returned when a step would make the composed transform
// overflow. The history is left unchanged.
var ErrNonFinite = errors.New("transform overflows")

// Engine is the visualizer engine for one session. It owns the transform
// history and the shape, processes commands from the frontend and answers
// queries about the composed transform.
//
// Engine is not safe for concurrent use; callers sharing one serialize access.
type Engine struct {
	// Session metadata carried through to snapshots
	sessionID string
	name      string
	version   int
	createdAt string

	history  *History
	gridUnit float64

	shape document.Shape
	// Shape vertices in canvas units, rebuilt when shape or grid unit change
	polygon Polygon
}

// NewEngine creates an engine with an empty history and the default shape.
// A positive historyLimit caps the undo depth.
func NewEngine(gridUnit float64, historyLimit int) *Engine {
	if gridUnit <= 0 {
		gridUnit = DefaultGridUnit
	}
	e := &Engine{
		history:  NewHistory(historyLimit),
		gridUnit: gridUnit,
		version:  1,
	}
	e.setShape(document.DefaultShape())
	return e
}

func (e *Engine) setShape(s document.Shape) {
	e.shape = s
	e.polygon = PolygonFromGrid(s.Vertices, e.gridUnit)
}

// --- Commands (frontend → backend) ---

// LoadDocument loads a session document from JSON.
func (e *Engine) LoadDocument(jsonData string) error {
	var s document.Session
	if err := json.Unmarshal([]byte(jsonData), &s); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	return e.LoadSession(&s)
}

// LoadSession replaces the engine state with a session. The stored steps are
// replayed, so the totals come from the stacks and not from the document.
func (e *Engine) LoadSession(s *document.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate session: %w", err)
	}
	undo, redo := stepsFromDocument(s.Undo), stepsFromDocument(s.Redo)
	if !replayFinite(undo, redo) {
		return fmt.Errorf("replay session: %w", ErrNonFinite)
	}

	e.sessionID = s.ID
	e.name = s.Name
	e.version = s.Version
	e.createdAt = s.CreatedAt
	e.gridUnit = s.GridUnit
	e.setShape(s.Shape)

	e.history.Load(undo, redo)
	return nil
}

// replayFinite walks every total the stacks can reach: the undo steps oldest
// first, then the redo steps in the order Redo would re-apply them.
func replayFinite(undo, redo []Step) bool {
	total := Identity()
	for _, s := range undo {
		total = s.Matrix.Multiply(total)
		if !total.Finite() {
			return false
		}
	}
	for i := len(redo) - 1; i >= 0; i-- {
		total = redo[i].Matrix.Multiply(total)
		if !total.Finite() {
			return false
		}
	}
	return true
}

// LoadSampleDocument loads the built-in sample session.
func (e *Engine) LoadSampleDocument(sessionID string) {
	// The sample always validates.
	_ = e.LoadSession(document.NewSampleSession(sessionID))
}

// Apply parses 9 row-major fields into a step and applies it.
func (e *Engine) Apply(fields []string) (Step, error) {
	m, err := ParseTransform(fields, e.gridUnit)
	if err != nil {
		return Step{}, err
	}
	inputs := make([]string, len(fields))
	copy(inputs, fields)
	return e.ApplyMatrix(m, inputs)
}

// ApplyMatrix applies an already built step matrix. It fails with
// ErrNonFinite if the step or the new total is not finite.
func (e *Engine) ApplyMatrix(m Matrix3, inputs []string) (Step, error) {
	if !m.Finite() || !m.Multiply(e.history.Current()).Finite() {
		slog.Debug("transform rejected", "session", e.sessionID, "reason", "non-finite total")
		return Step{}, ErrNonFinite
	}
	step := Step{
		ID:        typeid.NewStepID(),
		Matrix:    m,
		Inputs:    inputs,
		AppliedAt: time.Now().UTC(),
	}
	e.history.Apply(step)
	slog.Debug("transform applied", "session", e.sessionID, "step", step.ID, "depth", len(e.history.UndoStack()))
	return step, nil
}

// Undo steps back once. It returns false when there is nothing to undo,
// which the frontend turns into its "cannot do that" cue.
func (e *Engine) Undo() bool {
	if !e.history.Undo() {
		slog.Debug("undo rejected", "session", e.sessionID, "reason", "empty undo stack")
		return false
	}
	return true
}

// Redo re-applies the last undone step. It returns false when there is nothing to redo.
func (e *Engine) Redo() bool {
	if !e.history.Redo() {
		slog.Debug("redo rejected", "session", e.sessionID, "reason", "empty redo stack")
		return false
	}
	return true
}

// Reset clears the history.
func (e *Engine) Reset() {
	e.history.Reset()
}

// --- Queries (frontend ← backend) ---

// StepView is a history entry as shown in the hover panel.
// The matrix has its translation in grid cells.
type StepView struct {
	ID        string    `json:"id"`
	Matrix    Matrix3   `json:"matrix"`
	Inputs    []string  `json:"inputs,omitempty"`
	AppliedAt time.Time `json:"appliedAt"`
}

// State is everything the frontend displays besides the canvas.
type State struct {
	SessionID   string     `json:"sessionId,omitempty"`
	GridUnit    float64    `json:"gridUnit"`
	Current     Matrix3    `json:"current"`
	Previous    Matrix3    `json:"previous"`
	Display     Matrix3    `json:"display"` // Current with translation in grid cells
	Determinant float64    `json:"determinant"`
	Invertible  bool       `json:"invertible"`
	Inverse     *Matrix3   `json:"inverse"` // nil when not invertible
	CanUndo     bool       `json:"canUndo"`
	CanRedo     bool       `json:"canRedo"`
	UndoHistory []StepView `json:"undoHistory"` // most recent first
	RedoHistory []StepView `json:"redoHistory"` // most recently undone first
}

// State returns the current state view.
func (e *Engine) State() State {
	current := e.history.Current()
	st := State{
		SessionID:   e.sessionID,
		GridUnit:    e.gridUnit,
		Current:     current,
		Previous:    e.history.Previous(),
		Display:     DisplayMatrix(current, e.gridUnit),
		Determinant: current.Determinant(),
		CanUndo:     e.history.CanUndo(),
		CanRedo:     e.history.CanRedo(),
		UndoHistory: e.stepViews(e.history.UndoSteps()),
		RedoHistory: e.stepViews(e.history.RedoSteps()),
	}
	if inv, ok := current.Inverse(); ok {
		st.Invertible = true
		st.Inverse = &inv
	}
	return st
}

func (e *Engine) stepViews(steps []Step) []StepView {
	views := make([]StepView, len(steps))
	for i, s := range steps {
		views[i] = StepView{
			ID:        s.ID,
			Matrix:    DisplayMatrix(s.Matrix, e.gridUnit),
			Inputs:    s.Inputs,
			AppliedAt: s.AppliedAt,
		}
	}
	return views
}

// GetState returns the state view as JSON.
func (e *Engine) GetState() string {
	data, err := json.Marshal(e.State())
	if err != nil {
		slog.Warn("marshal state", "error", err, "session", e.sessionID)
		return "{}"
	}
	return string(data)
}

// Render compiles the draw commands for the current totals and returns them as JSON.
func (e *Engine) Render() string {
	commands := CompileDrawCommands(
		e.polygon,
		Style{Fill: e.shape.Fill, Stroke: e.shape.Stroke, StrokeWidth: e.shape.StrokeWidth},
		e.history.Current(),
		e.history.Previous(),
		e.gridUnit,
	)

	result, err := DrawCommandsToJSON(commands)
	if err != nil {
		slog.Warn("marshal draw commands", "error", err, "session", e.sessionID)
	}
	return result
}

// HitTest reports whether the canvas point (x, y) is inside the transformed shape.
func (e *Engine) HitTest(x, y float64) bool {
	shape := e.polygon.Transform(e.history.Current())
	if !shape.Finite() {
		return false
	}
	pt := Vec(x, y)
	return shape.Bounds().Contains(x, y) && shape.Contains(pt)
}

// GetShapeBounds returns the bounding box of the transformed shape as JSON.
func (e *Engine) GetShapeBounds() string {
	shape := e.polygon.Transform(e.history.Current())
	if !shape.Finite() {
		return RectToJSON(Rect{})
	}
	return RectToJSON(shape.Bounds())
}

// RectToJSON serializes a rect. A rect that cannot be encoded becomes "{}".
func RectToJSON(r Rect) string {
	data, err := json.Marshal(r)
	if err != nil {
		slog.Warn("marshal rect", "error", err)
		return "{}"
	}
	return string(data)
}

// Determinant returns the determinant of the current total.
func (e *Engine) Determinant() float64 {
	return e.history.Current().Determinant()
}

// Current returns the composed transform.
func (e *Engine) Current() Matrix3 {
	return e.history.Current()
}

// Previous returns the composed transform one step behind Current.
func (e *Engine) Previous() Matrix3 {
	return e.history.Previous()
}

// History exposes the underlying history for read-only queries.
func (e *Engine) History() *History {
	return e.history
}

// GridUnit returns the canvas distance of one grid cell.
func (e *Engine) GridUnit() float64 {
	return e.gridUnit
}

// Snapshot returns the engine state as a session document.
func (e *Engine) Snapshot() *document.Session {
	return &document.Session{
		ID:        e.sessionID,
		Name:      e.name,
		Version:   e.version,
		GridUnit:  e.gridUnit,
		CreatedAt: e.createdAt,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Shape:     e.shape,
		Undo:      stepsToDocument(e.history.UndoStack()),
		Redo:      stepsToDocument(e.history.RedoStack()),
	}
}

// GetDocument returns the session document as JSON.
func (e *Engine) GetDocument() string {
	data, err := json.Marshal(e.Snapshot())
	if err != nil {
		slog.Warn("marshal document", "error", err, "session", e.sessionID)
		return "{}"
	}
	return string(data)
}

func stepsFromDocument(steps []document.Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		appliedAt, err := time.Parse(time.RFC3339, s.AppliedAt)
		if err != nil {
			appliedAt = time.Time{}
		}
		out[i] = Step{
			ID:        s.ID,
			Matrix:    Matrix3(s.Elements),
			Inputs:    s.Inputs,
			AppliedAt: appliedAt,
		}
	}
	return out
}

func stepsToDocument(steps []Step) []document.Step {
	out := make([]document.Step, len(steps))
	for i, s := range steps {
		out[i] = document.Step{
			ID:        s.ID,
			Elements:  [9]float64(s.Matrix),
			Inputs:    s.Inputs,
			AppliedAt: s.AppliedAt.Format(time.RFC3339),
		}
	}
	return out
}
