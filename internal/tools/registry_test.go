package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/agentd/internal/security"
)

// stubTool is a scriptable tool for registry tests.
type stubTool struct {
	name    string
	execute func(ctx context.Context, args map[string]any, ec ExecContext) (*Result, error)
}

func (s *stubTool) Definition() Definition {
	return Definition{
		Name:        s.name,
		Namespace:   NamespaceInternal,
		Description: "stub",
		Parameters:  map[string]any{"type": "object"},
	}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]any, ec ExecContext) (*Result, error) {
	if s.execute != nil {
		return s.execute(ctx, args, ec)
	}
	return success(s.Definition(), map[string]any{"ok": true}), nil
}

func testExecContext(t *testing.T) ExecContext {
	t.Helper()
	dir := t.TempDir()
	policy, err := security.NewPolicy(security.DefaultConfig(dir))
	require.NoError(t, err)
	return ExecContext{WorkingDir: dir, Policy: policy}
}

func TestRegistry_RegisterAndExecute(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&stubTool{name: "echo"}))

	res, err := r.Execute(context.Background(), "internal:echo", nil, testExecContext(t))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "echo", res.ToolName)
	assert.Equal(t, NamespaceInternal, res.Namespace)
	assert.GreaterOrEqual(t, res.Duration.Nanoseconds(), int64(0))
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&stubTool{name: "echo"}))

	err := r.Register(&stubTool{name: "echo"})
	assert.ErrorIs(t, err, ErrDuplicateTool)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Execute(context.Background(), "internal:missing", nil, testExecContext(t))
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_HandlerErrorBecomesFailedResult(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&stubTool{
		name: "boom",
		execute: func(context.Context, map[string]any, ExecContext) (*Result, error) {
			return nil, errors.New("handler exploded")
		},
	}))

	res, err := r.Execute(context.Background(), "internal:boom", nil, testExecContext(t))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "handler exploded")
}

func TestRegistry_ListToolsSorted(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&stubTool{name: "zeta"}))
	require.NoError(t, r.Register(&stubTool{name: "alpha"}))

	defs, err := r.ListTools()
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "internal:alpha", defs[0].FullName())
	assert.Equal(t, "internal:zeta", defs[1].FullName())
}

func TestRegistry_Closed(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.Register(&stubTool{name: "late"}), ErrRegistryClosed)
	_, err := r.ListTools()
	assert.ErrorIs(t, err, ErrRegistryClosed)
	_, err = r.Execute(context.Background(), "internal:late", nil, testExecContext(t))
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestSplitFullName(t *testing.T) {
	ns, name, err := SplitFullName("internal:files")
	require.NoError(t, err)
	assert.Equal(t, "internal", ns)
	assert.Equal(t, "files", name)

	_, _, err = SplitFullName("nocolon")
	assert.ErrorIs(t, err, ErrInvalidName)
}
