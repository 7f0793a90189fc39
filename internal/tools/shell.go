package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

const (
	// defaultCommandTimeout bounds a single shell invocation.
	defaultCommandTimeout = 30 * time.Second

	// maxOutputSize bounds captured stdout/stderr.
	maxOutputSize = 256 << 10 // 256KB
)

// ShellTool executes commands permitted by the security policy. Commands run
// via "sh -c" inside the working directory with a hard timeout.
type ShellTool struct {
	timeout time.Duration
}

// NewShellTool creates the shell tool with the default timeout.
func NewShellTool() *ShellTool {
	return &ShellTool{timeout: defaultCommandTimeout}
}

// Definition describes the shell tool.
func (t *ShellTool) Definition() Definition {
	return Definition{
		Name:        "shell",
		Namespace:   NamespaceInternal,
		Description: "Execute an allow-listed shell command in the workspace",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{"type": "string"},
			},
			"required": []string{"command"},
		},
	}
}

// Execute validates the command against the policy, then runs it.
func (t *ShellTool) Execute(ctx context.Context, args map[string]any, ec ExecContext) (*Result, error) {
	def := t.Definition()

	command := stringArg(args, "command")
	if err := ec.Policy.ValidateCommand(command); err != nil {
		return failure(def, err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = ec.WorkingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if ctx.Err() == context.DeadlineExceeded {
			return failure(def, fmt.Errorf("command timed out after %s", t.timeout)), nil
		} else {
			return failure(def, runErr), nil
		}
	}

	out := stdout.String()
	if len(out) > maxOutputSize {
		out = out[:maxOutputSize]
	}
	errOut := stderr.String()
	if len(errOut) > maxOutputSize {
		errOut = errOut[:maxOutputSize]
	}

	data := map[string]any{
		"command":   command,
		"stdout":    out,
		"stderr":    errOut,
		"exit_code": exitCode,
	}

	if exitCode != 0 {
		res := failure(def, fmt.Errorf("command exited with code %d: %s", exitCode, firstLine(errOut)))
		res.Data = data
		return res, nil
	}
	return success(def, data), nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

var _ Tool = (*ShellTool)(nil)
