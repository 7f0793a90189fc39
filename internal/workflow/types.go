// Package workflow tracks one query's tool invocations as a state machine
// with checkpoint/rollback and bounded-depth child workflows.
//
// A State instance is owned by the engine invocation that created it and is
// never shared across queries, so its methods take no locks. Callers that
// need cross-goroutine access must serialize it themselves.
package workflow

import (
	"time"

	"github.com/fyrsmithlabs/agentd/internal/security"
	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// Status is the aggregate state of a workflow.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// StepStatus is the state of one tool invocation.
type StepStatus string

const (
	StepRunning     StepStatus = "running"
	StepCompleted   StepStatus = "completed"
	StepFailed      StepStatus = "failed"
	StepInterrupted StepStatus = "interrupted"
)

// Step records one tool invocation. A step is mutated exactly once after
// creation, by CompleteStep, FailStep, or Interrupt.
type Step struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args,omitempty"`
	Status    StepStatus     `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Result    *tools.Result  `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Context is the immutable per-query environment. Child workflows receive a
// copy, never a shared pointer, so concurrent children cannot race on it.
type Context struct {
	WorkingDir string
	Policy     *security.Policy
	Registry   *tools.Registry
	Query      string
	RequestID  string
	WorkflowID string
	Depth      int
	MaxDepth   int
	ParentID   string
}

// Child derives the context for a child workflow one level deeper.
func (c Context) Child(workflowID string) Context {
	child := c
	child.WorkflowID = workflowID
	child.ParentID = c.WorkflowID
	child.Depth = c.Depth + 1
	return child
}

// RollbackEntry records one rollback for auditing.
type RollbackEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason"`
	StepsDiscarded int       `json:"steps_discarded"`
	CheckpointID   string    `json:"checkpoint_id"`
}

// MemoryUsage summarizes a workflow's in-memory footprint.
type MemoryUsage struct {
	StepsCount     int `json:"steps_count"`
	ResultsSize    int `json:"results_size"`
	EstimatedBytes int `json:"estimated_bytes"`
}
