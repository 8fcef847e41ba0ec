package engine

import "time"

// Step is one applied transform.
type Step struct {
	ID        string    `json:"id"`
	Matrix    Matrix3   `json:"matrix"`
	Inputs    []string  `json:"inputs,omitempty"` // raw field values as typed
	AppliedAt time.Time `json:"appliedAt"`
}

// History owns the undo and redo stacks and the running totals derived from them.
//
// The totals are never updated by inverse arithmetic. Undo and Redo replay the
// product over the undo stack, so a singular step cannot break them and
// repeated undo/redo cycles do not accumulate drift.
//
// History is not safe for concurrent use.
type History struct {
	undo *Stack[Step]
	redo *Stack[Step]

	// current is the product of every undo-stack matrix, oldest applied first.
	// previous is the same product without the top entry.
	current  Matrix3
	previous Matrix3

	// limit caps the undo depth; 0 means unlimited.
	limit int
}

// NewHistory creates an empty history. A positive limit caps the undo depth.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{
		undo:     NewStack[Step](),
		redo:     NewStack[Step](),
		current:  Identity(),
		previous: Identity(),
		limit:    limit,
	}
}

// Apply pushes a step and folds it into the running total as step × total.
// Pending redo entries belong to an abandoned branch and are dropped.
func (h *History) Apply(step Step) {
	h.undo.Push(step)
	h.redo.Clear()

	if h.limit > 0 && h.undo.Len() > h.limit {
		h.undo.DropBottom()
		h.recompute()
		return
	}

	h.previous = h.current
	h.current = step.Matrix.Multiply(h.current)
}

// Undo moves the most recent step to the redo stack.
// It returns false, changing nothing, when there is nothing to undo.
func (h *History) Undo() bool {
	step, ok := h.undo.Pop()
	if !ok {
		return false
	}
	h.redo.Push(step)
	h.recompute()
	return true
}

// Redo moves the most recently undone step back to the undo stack.
// It returns false, changing nothing, when there is nothing to redo.
func (h *History) Redo() bool {
	step, ok := h.redo.Pop()
	if !ok {
		return false
	}
	h.undo.Push(step)
	h.recompute()
	return true
}

// Reset empties both stacks and returns the totals to identity.
func (h *History) Reset() {
	h.undo.Clear()
	h.redo.Clear()
	h.current = Identity()
	h.previous = Identity()
}

// Load replaces the history with the given stacks, both listed oldest first.
// Totals are recomputed from undo rather than taken from the caller.
func (h *History) Load(undo, redo []Step) {
	h.undo.Clear()
	h.redo.Clear()
	if h.limit > 0 && len(undo) > h.limit {
		undo = undo[len(undo)-h.limit:]
	}
	for _, s := range undo {
		h.undo.Push(s)
	}
	for _, s := range redo {
		h.redo.Push(s)
	}
	h.recompute()
}

// recompute rebuilds both totals from the undo stack: total = step_n × (… × (step_1 × I)).
func (h *History) recompute() {
	steps := h.undo.ToSlice()
	h.current = Identity()
	h.previous = Identity()
	for i, s := range steps {
		if i == len(steps)-1 {
			h.previous = h.current
		}
		h.current = s.Matrix.Multiply(h.current)
	}
}

// Current returns the composed transform of every applied step.
func (h *History) Current() Matrix3 { return h.current }

// Previous returns the composed transform one step behind Current.
func (h *History) Previous() Matrix3 { return h.previous }

// CanUndo reports whether the undo stack has entries.
func (h *History) CanUndo() bool { return !h.undo.IsEmpty() }

// CanRedo reports whether the redo stack has entries.
func (h *History) CanRedo() bool { return !h.redo.IsEmpty() }

// UndoSteps lists the undo stack most recent first.
func (h *History) UndoSteps() []Step { return h.undo.Reversed() }

// RedoSteps lists the redo stack most recently undone first.
func (h *History) RedoSteps() []Step { return h.redo.Reversed() }

// UndoStack lists the undo stack oldest first, the order Load expects.
func (h *History) UndoStack() []Step { return h.undo.ToSlice() }

// RedoStack lists the redo stack bottom first, the order Load expects.
func (h *History) RedoStack() []Step { return h.redo.ToSlice() }

// Limit returns the undo depth cap, 0 when unlimited.
func (h *History) Limit() int { return h.limit }
