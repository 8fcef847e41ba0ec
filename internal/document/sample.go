package document

import (
	"math"
	"time"

	"github.com/inamate/transformlab/internal/typeid"
)

// NewSampleSession returns a session with a short demo history: a shift two
// cells right followed by a quarter turn, leaving a shear on the redo stack.
func NewSampleSession(sessionID string) *Session {
	now := time.Now().UTC().Format(time.RFC3339)
	unit := DefaultGridUnit

	s := NewEmptySession(sessionID, "Sample", unit)
	s.CreatedAt = now
	s.UpdatedAt = now

	s.Undo = []Step{
		{
			ID: typeid.NewStepID(),
			Elements: [9]float64{
				1, 0, 2 * unit,
				0, 1, 0,
				0, 0, 1,
			},
			Inputs:    []string{"1", "0", "2", "0", "1", "0", "0", "0", "1"},
			AppliedAt: now,
		},
		{
			ID: typeid.NewStepID(),
			Elements: [9]float64{
				math.Cos(math.Pi / 2), -math.Sin(math.Pi / 2), 0,
				math.Sin(math.Pi / 2), math.Cos(math.Pi / 2), 0,
				0, 0, 1,
			},
			Inputs:    []string{"90d", "90d", "0", "90d", "90d", "0", "0", "0", "1"},
			AppliedAt: now,
		},
	}
	s.Redo = []Step{
		{
			ID: typeid.NewStepID(),
			Elements: [9]float64{
				1, 0.5, 0,
				0, 1, 0,
				0, 0, 1,
			},
			Inputs:    []string{"1", "0.5", "0", "0", "1", "0", "0", "0", "1"},
			AppliedAt: now,
		},
	}
	return s
}
