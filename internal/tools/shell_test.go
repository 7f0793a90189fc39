package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellTool_AllowedCommand(t *testing.T) {
	ec := testExecContext(t)
	require.NoError(t, os.WriteFile(filepath.Join(ec.WorkingDir, "f.txt"), []byte("x"), 0o644))

	st := NewShellTool()
	res, err := st.Execute(context.Background(), map[string]any{"command": "ls"}, ec)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Data["stdout"], "f.txt")
	assert.Equal(t, 0, res.Data["exit_code"])
}

func TestShellTool_DeniedCommand(t *testing.T) {
	ec := testExecContext(t)

	st := NewShellTool()
	res, err := st.Execute(context.Background(), map[string]any{"command": "sudo ls"}, ec)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "denied")
}

func TestShellTool_NotAllowedCommand(t *testing.T) {
	ec := testExecContext(t)

	st := NewShellTool()
	res, err := st.Execute(context.Background(), map[string]any{"command": "python3 script.py"}, ec)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not in allow list")
}

func TestShellTool_NonZeroExit(t *testing.T) {
	ec := testExecContext(t)

	st := NewShellTool()
	res, err := st.Execute(context.Background(), map[string]any{"command": "cat missing-file.txt"}, ec)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEqual(t, 0, res.Data["exit_code"])
}
