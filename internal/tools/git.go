package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const maxLogEntries = 20

// GitTool provides read-only repository inspection backed by go-git.
type GitTool struct{}

// NewGitTool creates the git tool.
func NewGitTool() *GitTool {
	return &GitTool{}
}

// Definition describes the git tool.
func (t *GitTool) Definition() Definition {
	return Definition{
		Name:        "git",
		Namespace:   NamespaceInternal,
		Description: "Read-only git inspection: status, diff, log",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operation": map[string]any{
					"type": "string",
					"enum": []string{"status", "diff", "log"},
				},
			},
			"required": []string{"operation"},
		},
	}
}

// Execute dispatches on the operation argument.
func (t *GitTool) Execute(ctx context.Context, args map[string]any, ec ExecContext) (*Result, error) {
	def := t.Definition()

	repo, err := git.PlainOpen(ec.WorkingDir)
	if err != nil {
		return failure(def, fmt.Errorf("opening repository: %w", err)), nil
	}

	switch op := stringArg(args, "operation"); op {
	case "status":
		return t.status(repo, def)
	case "diff":
		return t.diff(ctx, repo, def)
	case "log":
		return t.log(repo, def)
	default:
		return failure(def, fmt.Errorf("unknown operation %q", op)), nil
	}
}

func (t *GitTool) status(repo *git.Repository, def Definition) (*Result, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return failure(def, err), nil
	}
	status, err := wt.Status()
	if err != nil {
		return failure(def, err), nil
	}

	var changed []any
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		changed = append(changed, map[string]any{
			"path":     path,
			"worktree": string(st.Worktree),
			"staging":  string(st.Staging),
		})
	}

	head := ""
	if ref, err := repo.Head(); err == nil {
		head = ref.Name().Short()
	}

	return success(def, map[string]any{
		"branch":  head,
		"clean":   status.IsClean(),
		"changes": changed,
		"count":   len(changed),
	}), nil
}

// diff renders the patch between HEAD and its first parent.
func (t *GitTool) diff(ctx context.Context, repo *git.Repository, def Definition) (*Result, error) {
	ref, err := repo.Head()
	if err != nil {
		return failure(def, err), nil
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return failure(def, err), nil
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return failure(def, fmt.Errorf("HEAD has no parent: %w", err)), nil
	}

	patch, err := parent.PatchContext(ctx, commit)
	if err != nil {
		return failure(def, err), nil
	}

	text := patch.String()
	if len(text) > maxReadSize {
		text = text[:maxReadSize]
	}

	return success(def, map[string]any{
		"from":    parent.Hash.String(),
		"to":      commit.Hash.String(),
		"content": text,
	}), nil
}

func (t *GitTool) log(repo *git.Repository, def Definition) (*Result, error) {
	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		return failure(def, err), nil
	}
	defer iter.Close()

	var commits []any
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= maxLogEntries {
			return storer.ErrStop
		}
		commits = append(commits, map[string]any{
			"hash":    c.Hash.String()[:12],
			"author":  c.Author.Name,
			"when":    c.Author.When,
			"message": strings.SplitN(c.Message, "\n", 2)[0],
		})
		return nil
	})
	if err != nil {
		return failure(def, err), nil
	}

	return success(def, map[string]any{
		"commits": commits,
		"count":   len(commits),
	}), nil
}

var _ Tool = (*GitTool)(nil)
