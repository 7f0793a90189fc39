package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Errors for registry operations.
var (
	ErrToolNotFound   = errors.New("tool not found")
	ErrDuplicateTool  = errors.New("tool already registered")
	ErrInvalidName    = errors.New("invalid tool name")
	ErrRegistryClosed = errors.New("registry is closed")
)

// Registry maps namespaced tool names to handlers. Registration happens at
// startup; Execute and ListTools are safe for concurrent use afterwards.
type Registry struct {
	logger *zap.Logger

	mu     sync.RWMutex
	tools  map[string]Tool
	closed bool
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger: logger,
		tools:  make(map[string]Tool),
	}
}

// Register adds a tool under its namespaced name.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()
	if def.Name == "" || def.Namespace == "" {
		return ErrInvalidName
	}
	full := def.FullName()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.tools[full]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, full)
	}
	r.tools[full] = tool

	r.logger.Debug("registered tool", zap.String("tool", full))
	return nil
}

// Execute runs the named tool. Tool failures are reported through the
// Result's success flag, never as a returned error; the error return is
// reserved for registry misuse (unknown name, closed registry).
func (r *Registry) Execute(ctx context.Context, fullName string, args map[string]any, ec ExecContext) (*Result, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrRegistryClosed
	}
	tool, ok := r.tools[fullName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, fullName)
	}

	def := tool.Definition()
	start := time.Now()

	result, err := tool.Execute(ctx, args, ec)
	if err != nil {
		result = failure(def, err)
	}
	if result == nil {
		result = failure(def, errors.New("tool returned no result"))
	}
	result.Duration = time.Since(start)
	result.ToolName = def.Name
	result.Namespace = def.Namespace

	r.logger.Debug("executed tool",
		zap.String("tool", fullName),
		zap.Bool("success", result.Success),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

// ListTools returns the definitions of all registered tools, ordered by
// full name for a stable system prompt.
func (r *Registry) ListTools() ([]Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].FullName() < defs[j].FullName()
	})
	return defs, nil
}

// Has reports whether a tool is registered under the full name.
func (r *Registry) Has(fullName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[fullName]
	return ok
}

// Close marks the registry closed. Further calls fail with ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// SplitFullName splits "namespace:name" into its parts.
func SplitFullName(fullName string) (namespace, name string, err error) {
	parts := strings.SplitN(fullName, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidName, fullName)
	}
	return parts[0], parts[1], nil
}
