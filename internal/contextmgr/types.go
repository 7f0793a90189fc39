// Package contextmgr converts raw tool output into size-bounded structured
// results and maintains the budget-constrained conversation memory the
// engine feeds back into the LLM across loop iterations.
package contextmgr

import (
	"time"
)

// ResultType is the closed classification of a tool result. Every result
// maps to exactly one type; TypeAnalysis is the fallback for tools without
// a dedicated extraction strategy.
type ResultType string

const (
	TypeFileContent   ResultType = "file_content"
	TypeFileList      ResultType = "file_list"
	TypeSearchResults ResultType = "search_results"
	TypeError         ResultType = "error"
	TypeAnalysis      ResultType = "analysis"
)

// StructuredResult is the bounded, classified distillation of one raw tool
// result. It is never mutated after creation.
type StructuredResult struct {
	ToolName        string         `json:"tool_name"`
	Success         bool           `json:"success"`
	Duration        time.Duration  `json:"duration"`
	Type            ResultType     `json:"type"`
	Summary         string         `json:"summary"`
	KeyFindings     []string       `json:"key_findings,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	Truncated       bool           `json:"truncated,omitempty"`
	NextStepContext map[string]any `json:"next_step_context,omitempty"`
	FilePaths       []string       `json:"file_paths,omitempty"`
	MatchedPatterns []string       `json:"matched_patterns,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
	OriginalSize    int            `json:"original_size,omitempty"`
}

// ContextSize is the deterministic size function used for memory accounting.
// It counts the conversation-relevant parts only, never the raw payload.
func (r *StructuredResult) ContextSize() int {
	size := len(r.ToolName) + len(r.Summary)
	for _, f := range r.KeyFindings {
		size += len(f)
	}
	for _, e := range r.Errors {
		size += len(e)
	}
	for k := range r.NextStepContext {
		size += len(k) + 16
	}
	return size
}

// SizeConfig holds the context manager's budget knobs.
type SizeConfig struct {
	// MaxTotalSize caps the conversation memory's tracked bytes.
	MaxTotalSize int `koanf:"max_total_size"`

	// MaxResultSize caps one structured result's contribution.
	MaxResultSize int `koanf:"max_result_size"`

	// AlwaysPreserveSteps is how many recent results survive compression.
	AlwaysPreserveSteps int `koanf:"always_preserve_steps"`

	// CompressionThreshold triggers compression when the running total
	// crosses it.
	CompressionThreshold int `koanf:"compression_threshold"`

	// MinContextSize is the advisory floor below which compression should
	// not shrink the memory. It bounds future tuning, not a runtime check.
	MinContextSize int `koanf:"min_context_size"`
}

// DefaultSizeConfig returns the standard budget.
func DefaultSizeConfig() SizeConfig {
	return SizeConfig{
		MaxTotalSize:         8000,
		MaxResultSize:        2000,
		AlwaysPreserveSteps:  3,
		CompressionThreshold: 6000,
		MinContextSize:       1000,
	}
}

// Memory is the per-query accumulator. A Memory instance is owned by one
// engine invocation; it is mutated in place and never shared across queries.
type Memory struct {
	Query            string
	StepNumber       int
	MaxSteps         int
	PreviousResults  []*StructuredResult
	PatternFrequency map[string]int
	WorkingMemory    map[string]any
	TotalContextSize int

	config SizeConfig
}

// contribution is the budget charge for one structured result, clamped to
// the per-result cap so a single oversized result cannot exhaust the total
// budget by itself.
func (m *Memory) contribution(r *StructuredResult) int {
	size := r.ContextSize()
	if m.config.MaxResultSize > 0 && size > m.config.MaxResultSize {
		return m.config.MaxResultSize
	}
	return size
}
