package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// Errors signaling caller-contract violations. These are never produced by
// well-behaved engine code and are raised synchronously to the caller.
var (
	ErrStepNotFound     = errors.New("step not found")
	ErrMaxDepthExceeded = errors.New("max workflow depth exceeded")
)

// State is the aggregate bookkeeping for one query. See the package comment
// for the ownership model.
type State struct {
	id              string
	status          Status
	steps           []*Step
	results         map[string]*tools.Result
	errors          []string
	createdAt       time.Time
	context         Context
	parent          *State
	children        []*State
	interruptReason string
	rollbacks       []RollbackEntry
}

// NewState creates a workflow in the initialized status.
func NewState(id string, wctx Context) *State {
	if id == "" {
		id = uuid.New().String()
	}
	wctx.WorkflowID = id
	return &State{
		id:        id,
		status:    StatusInitialized,
		results:   make(map[string]*tools.Result),
		createdAt: time.Now(),
		context:   wctx,
	}
}

// ID returns the workflow id.
func (s *State) ID() string { return s.id }

// Status returns the current aggregate status.
func (s *State) Status() Status { return s.status }

// Context returns a copy of the workflow context.
func (s *State) Context() Context { return s.context }

// CreatedAt returns the workflow creation time.
func (s *State) CreatedAt() time.Time { return s.createdAt }

// InterruptReason returns the reason passed to Interrupt, if any.
func (s *State) InterruptReason() string { return s.interruptReason }

// Steps returns the recorded steps in execution order.
func (s *State) Steps() []*Step { return s.steps }

// Errors returns the accumulated step error messages.
func (s *State) Errors() []string { return s.errors }

// Children returns the child workflows linked to this one.
func (s *State) Children() []*State { return s.children }

// RollbackHistory returns recorded rollback entries.
func (s *State) RollbackHistory() []RollbackEntry { return s.rollbacks }

// Result returns the stored result for a completed step.
func (s *State) Result(stepID string) (*tools.Result, bool) {
	r, ok := s.results[stepID]
	return r, ok
}

// StartStep appends a running step and returns its id. The tool name and
// args are not validated here; the registry validates at execution time.
func (s *State) StartStep(name, toolName string, args map[string]any) string {
	step := &Step{
		ID:        uuid.New().String(),
		Name:      name,
		ToolName:  toolName,
		Args:      args,
		Status:    StepRunning,
		StartedAt: time.Now(),
	}
	s.steps = append(s.steps, step)
	if s.status == StatusInitialized {
		s.status = StatusRunning
	}
	return step.ID
}

// CompleteStep marks the step completed and stores its result. Returns
// ErrStepNotFound without mutating anything when the id is unknown.
func (s *State) CompleteStep(stepID string, result *tools.Result) error {
	step := s.findStep(stepID)
	if step == nil {
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	step.Status = StepCompleted
	step.EndedAt = time.Now()
	step.Duration = step.EndedAt.Sub(step.StartedAt)
	step.Result = result
	s.results[stepID] = result

	s.reevaluateStatus()
	return nil
}

// FailStep marks the step failed, records the error on the workflow, and
// flips the workflow status to failed immediately.
func (s *State) FailStep(stepID string, stepErr error) error {
	step := s.findStep(stepID)
	if step == nil {
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	step.Status = StepFailed
	step.EndedAt = time.Now()
	step.Duration = step.EndedAt.Sub(step.StartedAt)
	if stepErr != nil {
		step.Error = stepErr.Error()
		s.errors = append(s.errors, stepErr.Error())
	}

	s.status = StatusFailed
	return nil
}

// Interrupt transitions the workflow to interrupted and stamps every
// currently running step. It does not abort in-flight calls; the engine
// checks for interruption between loop iterations.
func (s *State) Interrupt(reason string) {
	now := time.Now()
	for _, step := range s.steps {
		if step.Status == StepRunning {
			step.Status = StepInterrupted
			step.EndedAt = now
			step.Duration = now.Sub(step.StartedAt)
		}
	}
	s.status = StatusInterrupted
	s.interruptReason = reason
}

// CreateChildWorkflow links a new workflow one level deeper. Fails with
// ErrMaxDepthExceeded when the child would reach the depth limit; the
// failure is fatal to this call only, not to the parent workflow.
func (s *State) CreateChildWorkflow(id string) (*State, error) {
	childCtx := s.context.Child(id)
	if childCtx.Depth >= childCtx.MaxDepth {
		return nil, fmt.Errorf("%w: depth %d, max %d", ErrMaxDepthExceeded, childCtx.Depth, childCtx.MaxDepth)
	}

	child := NewState(id, childCtx)
	child.parent = s
	s.children = append(s.children, child)
	return child, nil
}

// MemoryUsage reports the workflow's in-memory footprint. EstimatedBytes is
// a coarse accounting of step metadata plus stored result payloads.
func (s *State) MemoryUsage() MemoryUsage {
	resultsSize := 0
	for _, r := range s.results {
		resultsSize += resultSize(r)
	}

	estimated := resultsSize
	for _, step := range s.steps {
		estimated += len(step.ID) + len(step.Name) + len(step.ToolName) + len(step.Error)
		for k := range step.Args {
			estimated += len(k) + 16
		}
	}

	return MemoryUsage{
		StepsCount:     len(s.steps),
		ResultsSize:    resultsSize,
		EstimatedBytes: estimated,
	}
}

// CleanupOldResults retains only the most recent keepCount steps' results by
// position, deleting the rest from the results map. Step records themselves
// are kept; only their stored payloads are dropped.
func (s *State) CleanupOldResults(keepCount int) {
	if keepCount < 0 {
		keepCount = 0
	}
	cutoff := len(s.steps) - keepCount
	for i, step := range s.steps {
		if i < cutoff {
			delete(s.results, step.ID)
			step.Result = nil
		}
	}
}

// reevaluateStatus derives the aggregate status after a step completion.
// Failed steps dominate; otherwise completed only when every step completed.
func (s *State) reevaluateStatus() {
	if s.status == StatusInterrupted {
		return
	}

	allCompleted := len(s.steps) > 0
	for _, step := range s.steps {
		switch step.Status {
		case StepFailed:
			s.status = StatusFailed
			return
		case StepCompleted:
		default:
			allCompleted = false
		}
	}

	if allCompleted {
		s.status = StatusCompleted
	} else {
		s.status = StatusRunning
	}
}

func (s *State) findStep(stepID string) *Step {
	for _, step := range s.steps {
		if step.ID == stepID {
			return step
		}
	}
	return nil
}

// resultSize is the coarse byte accounting used by MemoryUsage.
func resultSize(r *tools.Result) int {
	if r == nil {
		return 0
	}
	size := len(r.Error) + len(r.ToolName) + len(r.Namespace)
	for k, v := range r.Data {
		size += len(k)
		if s, ok := v.(string); ok {
			size += len(s)
		} else {
			size += 16
		}
	}
	return size
}
