package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gitExecContext initializes a repository with two commits in a temp dir.
func gitExecContext(t *testing.T) ExecContext {
	t.Helper()
	ec := testExecContext(t)

	repo, err := git.PlainInit(ec.WorkingDir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}

	require.NoError(t, os.WriteFile(filepath.Join(ec.WorkingDir, "readme.md"), []byte("v1\n"), 0o644))
	_, err = wt.Add("readme.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial commit", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(ec.WorkingDir, "readme.md"), []byte("v2\n"), 0o644))
	_, err = wt.Add("readme.md")
	require.NoError(t, err)
	_, err = wt.Commit("update readme", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	return ec
}

func TestGitTool_StatusClean(t *testing.T) {
	ec := gitExecContext(t)
	gt := NewGitTool()

	res, err := gt.Execute(context.Background(), map[string]any{"operation": "status"}, ec)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, true, res.Data["clean"])
	assert.Equal(t, 0, res.Data["count"])
}

func TestGitTool_StatusDirty(t *testing.T) {
	ec := gitExecContext(t)
	require.NoError(t, os.WriteFile(filepath.Join(ec.WorkingDir, "readme.md"), []byte("v3\n"), 0o644))

	gt := NewGitTool()
	res, err := gt.Execute(context.Background(), map[string]any{"operation": "status"}, ec)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, false, res.Data["clean"])
	assert.Equal(t, 1, res.Data["count"])
}

func TestGitTool_Log(t *testing.T) {
	ec := gitExecContext(t)
	gt := NewGitTool()

	res, err := gt.Execute(context.Background(), map[string]any{"operation": "log"}, ec)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Data["count"])

	commits, ok := res.Data["commits"].([]any)
	require.True(t, ok)
	require.Len(t, commits, 2)
	first := commits[0].(map[string]any)
	assert.Equal(t, "update readme", first["message"])
	assert.Equal(t, "test", first["author"])
}

func TestGitTool_Diff(t *testing.T) {
	ec := gitExecContext(t)
	gt := NewGitTool()

	res, err := gt.Execute(context.Background(), map[string]any{"operation": "diff"}, ec)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	content, _ := res.Data["content"].(string)
	assert.Contains(t, content, "readme.md")
	assert.Contains(t, content, "+v2")
}

func TestGitTool_NotARepository(t *testing.T) {
	ec := testExecContext(t)
	gt := NewGitTool()

	res, err := gt.Execute(context.Background(), map[string]any{"operation": "status"}, ec)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "opening repository")
}

func TestGitTool_UnknownOperation(t *testing.T) {
	ec := gitExecContext(t)
	gt := NewGitTool()

	res, err := gt.Execute(context.Background(), map[string]any{"operation": "push"}, ec)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown operation")
}
