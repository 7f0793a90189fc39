package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// maxReadSize bounds file reads so a single tool call cannot blow up
	// the conversation.
	maxReadSize = 1 << 20 // 1MB

	// maxSearchMatches bounds search output.
	maxSearchMatches = 200
)

// FilesTool implements read/write/list/search over the workspace. Every path
// argument is resolved through the security policy before touching disk.
type FilesTool struct{}

// NewFilesTool creates the files tool.
func NewFilesTool() *FilesTool {
	return &FilesTool{}
}

// Definition describes the files tool.
func (t *FilesTool) Definition() Definition {
	return Definition{
		Name:        "files",
		Namespace:   NamespaceInternal,
		Description: "File operations within the workspace: read, write, list, search",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operation": map[string]any{
					"type": "string",
					"enum": []string{"read", "write", "list", "search"},
				},
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
				"query":   map[string]any{"type": "string"},
			},
			"required": []string{"operation"},
		},
	}
}

// Execute dispatches on the operation argument.
func (t *FilesTool) Execute(ctx context.Context, args map[string]any, ec ExecContext) (*Result, error) {
	def := t.Definition()

	op := stringArg(args, "operation")
	switch op {
	case "read":
		return t.read(args, ec, def)
	case "write":
		return t.write(args, ec, def)
	case "list":
		return t.list(args, ec, def)
	case "search":
		return t.search(ctx, args, ec, def)
	default:
		return failure(def, fmt.Errorf("unknown operation %q", op)), nil
	}
}

func (t *FilesTool) read(args map[string]any, ec ExecContext, def Definition) (*Result, error) {
	abs, err := ec.Policy.ResolvePath(stringArg(args, "path"))
	if err != nil {
		return failure(def, err), nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return failure(def, err), nil
	}
	if info.Size() > maxReadSize {
		return failure(def, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxReadSize)), nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return failure(def, err), nil
	}

	return success(def, map[string]any{
		"path":    stringArg(args, "path"),
		"content": string(content),
		"size":    len(content),
	}), nil
}

func (t *FilesTool) write(args map[string]any, ec ExecContext, def Definition) (*Result, error) {
	abs, err := ec.Policy.ResolvePath(stringArg(args, "path"))
	if err != nil {
		return failure(def, err), nil
	}

	content := stringArg(args, "content")
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return failure(def, err), nil
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return failure(def, err), nil
	}

	return success(def, map[string]any{
		"path":    stringArg(args, "path"),
		"written": len(content),
	}), nil
}

func (t *FilesTool) list(args map[string]any, ec ExecContext, def Definition) (*Result, error) {
	dir := stringArg(args, "path")
	if dir == "" {
		dir = "."
	}
	abs, err := ec.Policy.ResolvePath(dir)
	if err != nil {
		return failure(def, err), nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return failure(def, err), nil
	}

	files := make([]any, 0, len(entries))
	for _, e := range entries {
		files = append(files, map[string]any{
			"name": e.Name(),
			"dir":  e.IsDir(),
		})
	}

	return success(def, map[string]any{
		"directory": dir,
		"files":     files,
		"count":     len(files),
	}), nil
}

func (t *FilesTool) search(ctx context.Context, args map[string]any, ec ExecContext, def Definition) (*Result, error) {
	query := stringArg(args, "query")
	if query == "" {
		return failure(def, fmt.Errorf("search requires a query")), nil
	}

	dir := stringArg(args, "path")
	if dir == "" {
		dir = "."
	}
	abs, err := ec.Policy.ResolvePath(dir)
	if err != nil {
		return failure(def, err), nil
	}

	var matches []any
	err = filepath.WalkDir(abs, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= maxSearchMatches {
			return filepath.SkipAll
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxReadSize {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(ec.Policy.WorkspaceRoot(), path)
		for i, line := range strings.Split(string(content), "\n") {
			if strings.Contains(line, query) {
				matches = append(matches, map[string]any{
					"file": rel,
					"line": i + 1,
					"text": strings.TrimSpace(line),
				})
				if len(matches) >= maxSearchMatches {
					break
				}
			}
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		return failure(def, err), nil
	}

	fileSet := make(map[string]struct{})
	for _, m := range matches {
		if mm, ok := m.(map[string]any); ok {
			if f, ok := mm["file"].(string); ok {
				fileSet[f] = struct{}{}
			}
		}
	}
	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)

	return success(def, map[string]any{
		"query":      query,
		"matches":    matches,
		"file_count": len(files),
		"files":      files,
	}), nil
}

var _ Tool = (*FilesTool)(nil)
