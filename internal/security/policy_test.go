package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	return p
}

func TestNewPolicy_RequiresConfig(t *testing.T) {
	_, err := NewPolicy(nil)
	require.Error(t, err)
}

func TestNewPolicy_RejectsInvalidPattern(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.AllowedCommands = append(cfg.AllowedCommands, Rule{Pattern: `([`})
	_, err := NewPolicy(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid allow pattern")
}

func TestResolvePath_RelativeInsideWorkspace(t *testing.T) {
	p := newTestPolicy(t)

	abs, err := p.ResolvePath("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.WorkspaceRoot(), "src", "main.go"), abs)
}

func TestResolvePath_TraversalRejected(t *testing.T) {
	p := newTestPolicy(t)

	_, err := p.ResolvePath("../outside.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathOutsideWorkspace)

	_, err = p.ResolvePath("src/../../etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathOutsideWorkspace)
}

func TestResolvePath_AbsoluteOutsideRejected(t *testing.T) {
	p := newTestPolicy(t)

	_, err := p.ResolvePath("/etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathOutsideWorkspace)
}

func TestResolvePath_EmptyAndNul(t *testing.T) {
	p := newTestPolicy(t)

	_, err := p.ResolvePath("")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = p.ResolvePath("a\x00b")
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestValidateCommand_AllowList(t *testing.T) {
	p := newTestPolicy(t)

	assert.NoError(t, p.ValidateCommand("ls -la"))
	assert.NoError(t, p.ValidateCommand("git status"))
	assert.NoError(t, p.ValidateCommand("grep -rn TODO ."))
}

func TestValidateCommand_DenyWinsOverAllow(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.AllowedCommands = append(cfg.AllowedCommands, Rule{Pattern: `^rm\s`})
	p, err := NewPolicy(cfg)
	require.NoError(t, err)

	err = p.ValidateCommand("rm -rf /")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandDenied)
}

func TestValidateCommand_NotAllowed(t *testing.T) {
	p := newTestPolicy(t)

	err := p.ValidateCommand("python3 -c 'print(1)'")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandNotAllowed)
}

func TestValidateCommand_Empty(t *testing.T) {
	p := newTestPolicy(t)
	assert.ErrorIs(t, p.ValidateCommand("   "), ErrEmptyCommand)
}
