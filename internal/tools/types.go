// Package tools provides the tool registry consumed by the orchestration
// engine, along with the built-in file, git, and shell tools. Tools report
// failure through the Result success flag; Execute never surfaces a tool
// failure as a Go error.
package tools

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/agentd/internal/security"
)

// Namespace for the built-in tools.
const NamespaceInternal = "internal"

// Result is the raw output of one tool execution.
type Result struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration"`
	ToolName  string         `json:"tool_name"`
	Namespace string         `json:"namespace"`
}

// Definition describes a tool to the LLM backend.
type Definition struct {
	Name        string         `json:"name"`
	Namespace   string         `json:"namespace"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// FullName returns the namespaced tool name, e.g. "internal:files".
func (d Definition) FullName() string {
	return d.Namespace + ":" + d.Name
}

// ExecContext carries the per-query environment a tool may consult. It is
// read-only from the tool's perspective.
type ExecContext struct {
	WorkingDir string
	Policy     *security.Policy
}

// Tool is one executable handler. Execute may return an error for handler
// failures; the registry converts those into failed Results.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any, ec ExecContext) (*Result, error)
}

// failure builds a failed Result for the given tool.
func failure(def Definition, err error) *Result {
	return &Result{
		Success:   false,
		Error:     err.Error(),
		ToolName:  def.Name,
		Namespace: def.Namespace,
	}
}

// success builds a successful Result carrying data.
func success(def Definition, data map[string]any) *Result {
	return &Result{
		Success:   true,
		Data:      data,
		ToolName:  def.Name,
		Namespace: def.Namespace,
	}
}

// stringArg extracts a string argument, returning "" when absent.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
