package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// defaultRollbackReason is used when the caller gives no reason.
const defaultRollbackReason = "rollback to checkpoint"

// Checkpoint is an immutable snapshot of a workflow's completed state. It
// holds deep copies, so later workflow mutation cannot leak into it.
// Checkpoints live in memory for the run's lifetime; persistence, if wanted,
// layers on top of CreateCheckpoint/FromCheckpoint.
type Checkpoint struct {
	ID             string
	WorkflowID     string
	Status         Status
	CompletedSteps []*Step
	Results        map[string]*tools.Result
	Context        Context
	CreatedAt      time.Time
	SnapshotAt     time.Time
}

// CreateCheckpoint snapshots the workflow's completed steps and results.
func (s *State) CreateCheckpoint() *Checkpoint {
	var completed []*Step
	results := make(map[string]*tools.Result, len(s.results))

	for _, step := range s.steps {
		if step.Status != StepCompleted {
			continue
		}
		completed = append(completed, copyStep(step))
		if r, ok := s.results[step.ID]; ok {
			results[step.ID] = copyResult(r)
		}
	}

	return &Checkpoint{
		ID:             uuid.New().String(),
		WorkflowID:     s.id,
		Status:         s.status,
		CompletedSteps: completed,
		Results:        results,
		Context:        s.context,
		CreatedAt:      s.createdAt,
		SnapshotAt:     time.Now(),
	}
}

// RollbackToCheckpoint discards all steps and results added since the
// checkpoint, restores its status, clears accumulated errors, and records a
// RollbackEntry. An empty reason falls back to a generic one.
func (s *State) RollbackToCheckpoint(cp *Checkpoint, reason string) {
	discarded := len(s.steps) - len(cp.CompletedSteps)
	if discarded < 0 {
		discarded = 0
	}
	if reason == "" {
		reason = defaultRollbackReason
	}

	s.steps = make([]*Step, 0, len(cp.CompletedSteps))
	s.results = make(map[string]*tools.Result, len(cp.Results))
	for _, step := range cp.CompletedSteps {
		s.steps = append(s.steps, copyStep(step))
	}
	for id, r := range cp.Results {
		s.results[id] = copyResult(r)
	}
	s.status = cp.Status
	s.errors = nil

	s.rollbacks = append(s.rollbacks, RollbackEntry{
		Timestamp:      time.Now(),
		Reason:         reason,
		StepsDiscarded: discarded,
		CheckpointID:   cp.ID,
	})
}

// FromCheckpoint reconstructs a workflow from a checkpoint.
func FromCheckpoint(cp *Checkpoint, wctx Context) *State {
	s := NewState(cp.WorkflowID, wctx)
	for _, step := range cp.CompletedSteps {
		s.steps = append(s.steps, copyStep(step))
	}
	for id, r := range cp.Results {
		s.results[id] = copyResult(r)
	}
	s.status = cp.Status
	s.createdAt = cp.CreatedAt
	return s
}

func copyStep(step *Step) *Step {
	dup := *step
	if step.Args != nil {
		dup.Args = make(map[string]any, len(step.Args))
		for k, v := range step.Args {
			dup.Args[k] = v
		}
	}
	if step.Result != nil {
		dup.Result = copyResult(step.Result)
	}
	return &dup
}

func copyResult(r *tools.Result) *tools.Result {
	if r == nil {
		return nil
	}
	dup := *r
	if r.Data != nil {
		dup.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			dup.Data[k] = v
		}
	}
	return &dup
}
