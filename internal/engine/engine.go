// Package engine drives the query-processing loop: it asks the model to
// answer or request tools, executes requested tools under the security
// policy, folds results into the conversation memory, and terminates with a
// final answer or a bounded failure.
package engine

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/contextmgr"
	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/security"
	"github.com/fyrsmithlabs/agentd/internal/tools"
)

const instrumentationName = "github.com/fyrsmithlabs/agentd/internal/engine"

const (
	// maxQueryLength bounds incoming queries.
	maxQueryLength = 10000

	defaultMaxToolExecutions = 5
	defaultMaxWorkflowDepth  = 3
)

// Config holds the engine's knobs. Streaming affects the model call shape
// only, never loop logic; Debug affects logging only.
type Config struct {
	WorkingDir             string `koanf:"working_dir"`
	EnableWorkflowTracking bool   `koanf:"enable_workflow_tracking"`
	MaxWorkflowDepth       int    `koanf:"max_workflow_depth"`
	MaxToolExecutions      int    `koanf:"max_tool_executions"`
	Streaming              bool   `koanf:"streaming"`
	Debug                  bool   `koanf:"debug"`
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig(workingDir string) Config {
	return Config{
		WorkingDir:             workingDir,
		EnableWorkflowTracking: true,
		MaxWorkflowDepth:       defaultMaxWorkflowDepth,
		MaxToolExecutions:      defaultMaxToolExecutions,
	}
}

// Response is the engine's answer to one query. ProcessingTime is wall-clock
// from entry to exit, always present, even on validation failure. Complete is
// false only when no usable answer could be produced at all.
type Response struct {
	ResponseText   string          `json:"response_text"`
	ToolsExecuted  []string        `json:"tools_executed,omitempty"`
	ToolResults    []*tools.Result `json:"tool_results,omitempty"`
	ProcessingTime time.Duration   `json:"processing_time"`
	Complete       bool            `json:"complete"`
	Errors         []string        `json:"errors,omitempty"`
	WorkflowID     string          `json:"workflow_id,omitempty"`
}

// Engine owns the processing loop for queries. Safe for concurrent use:
// each ProcessQuery call builds its own workflow state and memory.
type Engine struct {
	config     Config
	registry   *tools.Registry
	client     llm.Client
	policy     *security.Policy
	contextMgr *contextmgr.Manager
	logger     *zap.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	queryCounter metric.Int64Counter
	toolCounter  metric.Int64Counter
	queryLatency metric.Float64Histogram
}

// New creates an engine. All collaborators are required except the logger,
// which falls back to a no-op.
func New(cfg Config, registry *tools.Registry, client llm.Client, policy *security.Policy, cm *contextmgr.Manager, logger *zap.Logger) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if policy == nil {
		return nil, fmt.Errorf("security policy is required")
	}
	if cm == nil {
		return nil, fmt.Errorf("context manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxToolExecutions <= 0 {
		cfg.MaxToolExecutions = defaultMaxToolExecutions
	}
	if cfg.MaxWorkflowDepth <= 0 {
		cfg.MaxWorkflowDepth = defaultMaxWorkflowDepth
	}

	e := &Engine{
		config:     cfg,
		registry:   registry,
		client:     client,
		policy:     policy,
		contextMgr: cm,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}
	e.initMetrics()

	return e, nil
}

func (e *Engine) initMetrics() {
	var err error

	e.queryCounter, err = e.meter.Int64Counter(
		"agentd.engine.queries_total",
		metric.WithDescription("Total queries processed"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		e.logger.Warn("failed to create query counter", zap.Error(err))
	}

	e.toolCounter, err = e.meter.Int64Counter(
		"agentd.engine.tool_executions_total",
		metric.WithDescription("Total tool executions across all queries"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		e.logger.Warn("failed to create tool counter", zap.Error(err))
	}

	e.queryLatency, err = e.meter.Float64Histogram(
		"agentd.engine.query_duration_seconds",
		metric.WithDescription("End-to-end query processing time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		e.logger.Warn("failed to create query latency histogram", zap.Error(err))
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.config
}
