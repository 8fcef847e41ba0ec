package collab

import (
	"errors"
	"fmt"
	"sync"

	"github.com/inamate/transformlab/internal/document"
	"github.com/inamate/transformlab/internal/engine"
)

var (
	// ErrRejected is returned for an undo or redo on an empty stack.
	ErrRejected  = errors.New("nothing to do")
	ErrUnknownOp = errors.New("unknown operation type")
)

// DocumentState holds the authoritative engine for a room.
type DocumentState struct {
	mu        sync.Mutex
	eng       *engine.Engine
	serverSeq int64
	savedSeq  int64
}

func NewDocumentState(eng *engine.Engine) *DocumentState {
	return &DocumentState{eng: eng}
}

// ApplyOperation applies op and returns the new server sequence together with
// the state view right after it. op.StepID is filled in for transform.apply.
func (ds *DocumentState) ApplyOperation(op *Operation) (int64, engine.State, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := ds.applyOperationLocked(op); err != nil {
		return 0, engine.State{}, err
	}

	ds.serverSeq++
	return ds.serverSeq, ds.eng.State(), nil
}

func (ds *DocumentState) applyOperationLocked(op *Operation) error {
	switch op.Type {
	case OpTransformApply:
		step, err := ds.eng.Apply(op.Inputs)
		if err != nil {
			return err
		}
		op.StepID = step.ID
		return nil
	case OpHistoryUndo:
		if !ds.eng.Undo() {
			return fmt.Errorf("undo: %w", ErrRejected)
		}
		return nil
	case OpHistoryRedo:
		if !ds.eng.Redo() {
			return fmt.Errorf("redo: %w", ErrRejected)
		}
		return nil
	case OpHistoryReset:
		ds.eng.Reset()
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOp, op.Type)
	}
}

// State returns the current state view and its sequence number.
func (ds *DocumentState) State() (int64, engine.State) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.serverSeq, ds.eng.State()
}

// Snapshot returns the document to persist and the sequence it reflects.
func (ds *DocumentState) Snapshot() (int64, *document.Session) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.serverSeq, ds.eng.Snapshot()
}

// MarkSaved records that everything up to seq is persisted.
func (ds *DocumentState) MarkSaved(seq int64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if seq > ds.savedSeq {
		ds.savedSeq = seq
	}
}

// Dirty reports whether there are operations not yet persisted.
func (ds *DocumentState) Dirty() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.serverSeq > ds.savedSeq
}
