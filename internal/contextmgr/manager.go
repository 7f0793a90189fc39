package contextmgr

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/secrets"
	"github.com/fyrsmithlabs/agentd/internal/tools"
)

const instrumentationName = "github.com/fyrsmithlabs/agentd/internal/contextmgr"

// Manager turns raw tool results into structured results and manages
// conversation memories. Immutable after construction and safe to share
// across queries; the Memory instances it creates are not.
type Manager struct {
	config   SizeConfig
	scrubber *secrets.Scrubber
	logger   *zap.Logger

	meter              metric.Meter
	structuredCounter  metric.Int64Counter
	compressionCounter metric.Int64Counter
	contextSizeHist    metric.Int64Histogram
}

// NewManager creates a context manager. The scrubber may be nil to disable
// output redaction.
func NewManager(cfg SizeConfig, scrubber *secrets.Scrubber, logger *zap.Logger) (*Manager, error) {
	if cfg.MaxTotalSize <= 0 || cfg.MaxResultSize <= 0 {
		return nil, fmt.Errorf("size limits must be positive")
	}
	if cfg.AlwaysPreserveSteps <= 0 {
		return nil, fmt.Errorf("always preserve steps must be positive")
	}
	if cfg.CompressionThreshold > cfg.MaxTotalSize {
		return nil, fmt.Errorf("compression threshold %d exceeds max total size %d",
			cfg.CompressionThreshold, cfg.MaxTotalSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config:   cfg,
		scrubber: scrubber,
		logger:   logger,
		meter:    otel.Meter(instrumentationName),
	}
	m.initMetrics()

	return m, nil
}

func (m *Manager) initMetrics() {
	var err error

	m.structuredCounter, err = m.meter.Int64Counter(
		"agentd.context.results_structured_total",
		metric.WithDescription("Total tool results converted to structured form"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		m.logger.Warn("failed to create structured counter", zap.Error(err))
	}

	m.compressionCounter, err = m.meter.Int64Counter(
		"agentd.context.compressions_total",
		metric.WithDescription("Total conversation memory compressions"),
		metric.WithUnit("{compression}"),
	)
	if err != nil {
		m.logger.Warn("failed to create compression counter", zap.Error(err))
	}

	m.contextSizeHist, err = m.meter.Int64Histogram(
		"agentd.context.memory_size_bytes",
		metric.WithDescription("Conversation memory size after each record"),
		metric.WithUnit("By"),
	)
	if err != nil {
		m.logger.Warn("failed to create context size histogram", zap.Error(err))
	}
}

// Config returns the manager's size configuration.
func (m *Manager) Config() SizeConfig {
	return m.config
}

// Structure classifies and summarizes a raw tool result.
func (m *Manager) Structure(ctx context.Context, result *tools.Result) *StructuredResult {
	resultType := Classify(result.ToolName, result)
	structured := m.summarize(result, resultType)

	if m.structuredCounter != nil {
		m.structuredCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("result_type", string(resultType)),
			attribute.Bool("success", result.Success),
		))
	}

	return structured
}

// NewMemory creates a zeroed accumulator for one query.
func (m *Manager) NewMemory(query string, maxSteps int) *Memory {
	if maxSteps <= 0 {
		maxSteps = 10
	}
	return &Memory{
		Query:            query,
		MaxSteps:         maxSteps,
		PatternFrequency: make(map[string]int),
		WorkingMemory:    make(map[string]any),
		config:           m.config,
	}
}

// Record folds a structured result into the memory: step increment, append,
// pattern frequency fold, working-memory merge, size accounting, and
// compression once the threshold is crossed.
func (m *Manager) Record(ctx context.Context, mem *Memory, result *StructuredResult) {
	mem.StepNumber++
	mem.PreviousResults = append(mem.PreviousResults, result)

	for _, p := range result.MatchedPatterns {
		mem.PatternFrequency[p]++
	}
	for k, v := range result.NextStepContext {
		mem.WorkingMemory[k] = v
	}

	mem.TotalContextSize += mem.contribution(result)

	if mem.TotalContextSize > mem.config.CompressionThreshold {
		m.compress(ctx, mem)
	}

	if m.contextSizeHist != nil {
		m.contextSizeHist.Record(ctx, int64(mem.TotalContextSize))
	}
}

// compress retains only the most recent AlwaysPreserveSteps results,
// archives each evicted result's key findings into working memory under a
// tool-derived key, and recomputes the running total from the survivors.
// Calling it again with nothing to evict is a no-op.
func (m *Manager) compress(ctx context.Context, mem *Memory) {
	keep := mem.config.AlwaysPreserveSteps
	if len(mem.PreviousResults) <= keep {
		return
	}

	evicted := mem.PreviousResults[:len(mem.PreviousResults)-keep]
	retained := mem.PreviousResults[len(mem.PreviousResults)-keep:]

	for _, r := range evicted {
		if len(r.KeyFindings) == 0 {
			continue
		}
		key := "archived:" + r.ToolName
		existing, _ := mem.WorkingMemory[key].([]string)
		mem.WorkingMemory[key] = append(existing, r.KeyFindings...)
	}

	mem.PreviousResults = append([]*StructuredResult(nil), retained...)

	total := 0
	for _, r := range mem.PreviousResults {
		total += mem.contribution(r)
	}
	mem.TotalContextSize = total

	if m.compressionCounter != nil {
		m.compressionCounter.Add(ctx, 1)
	}
	m.logger.Debug("compressed conversation memory",
		zap.Int("evicted", len(evicted)),
		zap.Int("retained", len(retained)),
		zap.Int("total_size", total),
	)
}
