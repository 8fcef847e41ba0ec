package collab

import (
	"errors"
	"testing"

	"github.com/inamate/transformlab/internal/engine"
)

var translateOneCell = []string{"1", "0", "1", "0", "1", "0", "0", "0", "1"}

func TestDocumentStateOperations(t *testing.T) {
	ds := NewDocumentState(engine.NewEngine(30, 0))

	tests := []struct {
		name     string
		op       Operation
		wantErr  error
		wantSeq  int64
		wantE13  float64
		canUndo  bool
		canRedo  bool
		wantStep bool
	}{
		{name: "undo on empty", op: Operation{Type: OpHistoryUndo}, wantErr: ErrRejected},
		{name: "redo on empty", op: Operation{Type: OpHistoryRedo}, wantErr: ErrRejected},
		{name: "apply", op: Operation{Type: OpTransformApply, Inputs: translateOneCell}, wantSeq: 1, wantE13: 30, canUndo: true, wantStep: true},
		{name: "apply again", op: Operation{Type: OpTransformApply, Inputs: translateOneCell}, wantSeq: 2, wantE13: 60, canUndo: true, wantStep: true},
		{name: "undo", op: Operation{Type: OpHistoryUndo}, wantSeq: 3, wantE13: 30, canUndo: true, canRedo: true},
		{name: "redo", op: Operation{Type: OpHistoryRedo}, wantSeq: 4, wantE13: 60, canUndo: true},
		{name: "short inputs", op: Operation{Type: OpTransformApply, Inputs: []string{"1"}}, wantErr: engine.ErrFieldCount},
		{name: "unknown", op: Operation{Type: "shape.delete"}, wantErr: ErrUnknownOp},
		{name: "reset", op: Operation{Type: OpHistoryReset}, wantSeq: 5, wantE13: 0},
		{name: "undo after reset", op: Operation{Type: OpHistoryUndo}, wantErr: ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := tt.op
			seq, st, err := ds.ApplyOperation(&op)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if seq != tt.wantSeq {
				t.Errorf("seq = %d, want %d", seq, tt.wantSeq)
			}
			if st.Current[engine.E13] != tt.wantE13 {
				t.Errorf("e13 = %v, want %v", st.Current[engine.E13], tt.wantE13)
			}
			if st.CanUndo != tt.canUndo || st.CanRedo != tt.canRedo {
				t.Errorf("canUndo/canRedo = %v/%v, want %v/%v", st.CanUndo, st.CanRedo, tt.canUndo, tt.canRedo)
			}
			if tt.wantStep && op.StepID == "" {
				t.Error("step id not set on apply")
			}
		})
	}
}

func TestDocumentStateDirty(t *testing.T) {
	ds := NewDocumentState(engine.NewEngine(30, 0))
	if ds.Dirty() {
		t.Fatal("fresh state is dirty")
	}

	// Refused operations do not dirty the state.
	ds.ApplyOperation(&Operation{Type: OpHistoryUndo})
	if ds.Dirty() {
		t.Fatal("rejected undo dirtied the state")
	}

	ds.ApplyOperation(&Operation{Type: OpTransformApply, Inputs: translateOneCell})
	if !ds.Dirty() {
		t.Fatal("apply did not dirty the state")
	}

	seq, doc := ds.Snapshot()
	if len(doc.Undo) != 1 {
		t.Fatalf("snapshot undo = %d entries, want 1", len(doc.Undo))
	}

	ds.ApplyOperation(&Operation{Type: OpHistoryUndo})
	ds.MarkSaved(seq)
	if !ds.Dirty() {
		t.Error("op after snapshot should keep the state dirty")
	}

	seq, _ = ds.Snapshot()
	ds.MarkSaved(seq)
	if ds.Dirty() {
		t.Error("state still dirty after saving latest seq")
	}
}

func TestPresenceClearHover(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("c1", &PresencePayload{HoveredStep: "step_a"})
	pm.Update("c2", &PresencePayload{HoveredStep: "step_gone"})
	pm.Update("c3", &PresencePayload{Cursor: &CursorPos{X: 1, Y: 2}})

	cleared := pm.ClearHover(map[string]bool{"step_a": true})
	if len(cleared) != 1 || cleared[0] != "c2" {
		t.Fatalf("cleared = %v, want [c2]", cleared)
	}

	all := pm.GetAll()
	if all["c1"].HoveredStep != "step_a" {
		t.Errorf("c1 hover = %q, want step_a", all["c1"].HoveredStep)
	}
	if all["c2"].HoveredStep != "" {
		t.Errorf("c2 hover = %q, want empty", all["c2"].HoveredStep)
	}
	if all["c3"].Cursor == nil || all["c3"].Cursor.X != 1 {
		t.Errorf("c3 cursor lost: %+v", all["c3"])
	}
}
