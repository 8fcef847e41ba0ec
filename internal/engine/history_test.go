package engine

import (
	"fmt"
	"testing"
)

func step(id string, m Matrix3) Step {
	return Step{ID: id, Matrix: m}
}

func TestHistoryInitialState(t *testing.T) {
	h := NewHistory(0)
	if h.Current() != Identity() || h.Previous() != Identity() {
		t.Errorf("fresh history totals = %v / %v, want identity", h.Current(), h.Previous())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("fresh history should have nothing to undo or redo")
	}
}

func TestHistoryScenario(t *testing.T) {
	h := NewHistory(0)

	translate, err := ParseTransform([]string{"1", "0", "2", "0", "1", "0", "0", "0", "1"}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if translate[E13] != 60 {
		t.Fatalf("translation e13 = %v, want 60", translate[E13])
	}

	h.Apply(step("t", translate))
	if h.Current()[E13] != 60 {
		t.Errorf("current e13 = %v, want 60", h.Current()[E13])
	}
	if h.Previous() != Identity() {
		t.Errorf("previous = %v, want identity", h.Previous())
	}

	rotate := Matrix3{0, -1, 0, 1, 0, 0, 0, 0, 1}
	h.Apply(step("r", rotate))
	composite := rotate.Multiply(translate)
	if h.Current() != composite {
		t.Errorf("current = %v, want R*T = %v", h.Current(), composite)
	}
	if h.Previous() != translate {
		t.Errorf("previous = %v, want T", h.Previous())
	}

	if !h.Undo() {
		t.Fatal("Undo rejected")
	}
	if h.Current() != translate {
		t.Errorf("after undo current = %v, want T", h.Current())
	}
	if h.Previous() != Identity() {
		t.Errorf("after undo previous = %v, want identity", h.Previous())
	}
	redo := h.RedoSteps()
	if len(redo) != 1 || redo[0].ID != "r" {
		t.Errorf("redo stack = %v, want the rotation", redo)
	}

	if !h.Redo() {
		t.Fatal("Redo rejected")
	}
	if h.Current() != composite {
		t.Errorf("after redo current = %v, want R*T", h.Current())
	}
	if h.Previous() != translate {
		t.Errorf("after redo previous = %v, want T", h.Previous())
	}
	if h.CanRedo() {
		t.Error("redo stack should be empty")
	}
}

func TestHistoryUndoRestoresExactly(t *testing.T) {
	h := NewHistory(0)
	steps := []Matrix3{
		RotateDegrees(33),
		Translate(17.5, -4),
		Scale(1.1, 0.9),
		Shear(0.25, 0),
		{1, 0, 0, 0, 1, 0, 0.001, 0, 1},
	}
	for i, m := range steps {
		before := h.Current()
		h.Apply(step(fmt.Sprint(i), m))
		h.Undo()
		if h.Current() != before {
			t.Fatalf("step %d: undo gave %v, want exactly %v", i, h.Current(), before)
		}
		h.Redo()
	}

	// Redo after Undo restores exactly, over many cycles.
	want := h.Current()
	for range 50 {
		h.Undo()
		h.Undo()
		h.Redo()
		h.Redo()
	}
	if h.Current() != want {
		t.Errorf("after undo/redo cycles current = %v, want exactly %v", h.Current(), want)
	}
}

func TestHistoryRejectsOnEmpty(t *testing.T) {
	h := NewHistory(0)
	if h.Undo() {
		t.Error("Undo on empty history should be rejected")
	}
	if h.Redo() {
		t.Error("Redo on empty history should be rejected")
	}

	h.Apply(step("a", Translate(30, 0)))
	cur, prev := h.Current(), h.Previous()
	if h.Redo() {
		t.Error("Redo with empty redo stack should be rejected")
	}
	if h.Current() != cur || h.Previous() != prev {
		t.Error("rejected Redo changed the totals")
	}

	h.Undo()
	cur, prev = h.Current(), h.Previous()
	if h.Undo() {
		t.Error("second Undo should be rejected")
	}
	if h.Current() != cur || h.Previous() != prev {
		t.Error("rejected Undo changed the totals")
	}
}

func TestHistoryApplyClearsRedo(t *testing.T) {
	h := NewHistory(0)
	h.Apply(step("a", Translate(30, 0)))
	h.Apply(step("b", Scale(2, 2)))
	h.Undo()
	if !h.CanRedo() {
		t.Fatal("expected a redo entry")
	}

	h.Apply(step("c", RotateDegrees(45)))
	if h.CanRedo() {
		t.Error("Apply should drop pending redo entries")
	}
	if h.Redo() {
		t.Error("Redo after a fresh Apply should be rejected")
	}
}

func TestHistoryStacksDisjoint(t *testing.T) {
	h := NewHistory(0)
	for i := range 4 {
		h.Apply(step(fmt.Sprint(i), Translate(float64(i), 0)))
	}
	h.Undo()
	h.Undo()
	h.Redo()

	seen := map[string]bool{}
	for _, s := range h.UndoStack() {
		seen[s.ID] = true
	}
	for _, s := range h.RedoStack() {
		if seen[s.ID] {
			t.Errorf("step %s is on both stacks", s.ID)
		}
	}
	if got := len(h.UndoStack()) + len(h.RedoStack()); got != 4 {
		t.Errorf("steps across both stacks = %d, want 4", got)
	}
}

func TestHistoryListingOrder(t *testing.T) {
	h := NewHistory(0)
	for _, id := range []string{"a", "b", "c"} {
		h.Apply(step(id, Identity()))
	}
	h.Undo()

	undo := h.UndoSteps()
	if len(undo) != 2 || undo[0].ID != "b" || undo[1].ID != "a" {
		t.Errorf("UndoSteps = %v, want most recent first", ids(undo))
	}
	if stack := h.UndoStack(); stack[0].ID != "a" {
		t.Errorf("UndoStack = %v, want oldest first", ids(stack))
	}
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory(0)
	h.Apply(step("a", Translate(30, 0)))
	h.Apply(step("b", Scale(2, 2)))
	h.Undo()

	h.Reset()
	if h.CanUndo() || h.CanRedo() {
		t.Error("Reset should empty both stacks")
	}
	if h.Current() != Identity() || h.Previous() != Identity() {
		t.Error("Reset should return totals to identity")
	}
}

func TestHistorySingularStep(t *testing.T) {
	h := NewHistory(0)
	h.Apply(step("t", Translate(30, 30)))
	h.Apply(step("flatten", Scale(1, 0)))
	if d := h.Current().Determinant(); d != 0 {
		t.Fatalf("determinant = %v, want 0", d)
	}
	if _, ok := h.Current().Inverse(); ok {
		t.Error("flattened total should not be invertible")
	}
	h.Undo()
	if h.Current() != Translate(30, 30) {
		t.Errorf("undo past a singular step = %v", h.Current())
	}
}

func TestHistoryLimit(t *testing.T) {
	h := NewHistory(2)
	a, b, c := Translate(30, 0), Scale(2, 2), RotateDegrees(90)
	h.Apply(step("a", a))
	h.Apply(step("b", b))
	h.Apply(step("c", c))

	if got := ids(h.UndoStack()); len(got) != 2 || got[0] != "b" {
		t.Errorf("UndoStack = %v, want [b c]", got)
	}
	if want := c.Multiply(b); h.Current() != want {
		t.Errorf("current = %v, want c*b", h.Current())
	}
	if h.Previous() != b {
		t.Errorf("previous = %v, want b", h.Previous())
	}
}

func TestHistoryLoad(t *testing.T) {
	h := NewHistory(0)
	a, b := Translate(30, 0), RotateDegrees(90)
	h.Load([]Step{step("a", a), step("b", b)}, []Step{step("c", Scale(3, 3))})

	if h.Current() != b.Multiply(a) {
		t.Errorf("loaded current = %v", h.Current())
	}
	if h.Previous() != a {
		t.Errorf("loaded previous = %v", h.Previous())
	}
	if !h.Redo() || h.Current() != Scale(3, 3).Multiply(b.Multiply(a)) {
		t.Errorf("redo after load = %v", h.Current())
	}
}

func ids(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}
