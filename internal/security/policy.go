// Package security provides the validators applied to tool inputs before
// execution: workspace path containment and command allow/deny matching.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Errors for policy violations.
var (
	ErrPathOutsideWorkspace = errors.New("path escapes the workspace")
	ErrPathTraversal        = errors.New("path traversal detected")
	ErrCommandDenied        = errors.New("command denied by policy")
	ErrCommandNotAllowed    = errors.New("command not in allow list")
	ErrEmptyCommand         = errors.New("empty command")
)

// Rule is a single command pattern. Patterns are matched against the full
// command line; an invalid regex invalidates the policy at construction time.
type Rule struct {
	Pattern string `koanf:"pattern"`
}

// Config configures a Policy.
type Config struct {
	// WorkspaceRoot is the directory all file operations must stay within.
	WorkspaceRoot string `koanf:"workspace_root"`

	// AllowedCommands are patterns for permitted shell commands. Empty
	// means no commands are permitted.
	AllowedCommands []Rule `koanf:"allowed_commands"`

	// DeniedCommands are patterns rejected regardless of the allow list.
	DeniedCommands []Rule `koanf:"denied_commands"`
}

// DefaultConfig returns a policy that permits read-oriented commands only.
func DefaultConfig(workspaceRoot string) *Config {
	return &Config{
		WorkspaceRoot: workspaceRoot,
		AllowedCommands: []Rule{
			{Pattern: `^ls(\s|$)`},
			{Pattern: `^cat\s`},
			{Pattern: `^grep\s`},
			{Pattern: `^find\s`},
			{Pattern: `^head\s`},
			{Pattern: `^tail\s`},
			{Pattern: `^wc(\s|$)`},
			{Pattern: `^git\s+(status|diff|log|show|branch)(\s|$)`},
			{Pattern: `^go\s+(build|test|vet|list)(\s|$)`},
		},
		DeniedCommands: []Rule{
			{Pattern: `\brm\s+-rf?\b`},
			{Pattern: `\bsudo\b`},
			{Pattern: `\bcurl\b|\bwget\b`},
			{Pattern: `>\s*/dev/`},
			{Pattern: `\bmkfs\b|\bdd\b`},
		},
	}
}

// Policy validates tool inputs against a fixed rule set. A Policy is
// immutable after construction and safe for concurrent use.
type Policy struct {
	workspaceRoot string
	allowed       []*regexp.Regexp
	denied        []*regexp.Regexp
}

// NewPolicy compiles the configured rules into a Policy.
func NewPolicy(cfg *Config) (*Policy, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	root, err := filepath.Abs(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	p := &Policy{workspaceRoot: root}

	for _, r := range cfg.AllowedCommands {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", r.Pattern, err)
		}
		p.allowed = append(p.allowed, re)
	}
	for _, r := range cfg.DeniedCommands {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", r.Pattern, err)
		}
		p.denied = append(p.denied, re)
	}

	return p, nil
}

// WorkspaceRoot returns the absolute workspace root.
func (p *Policy) WorkspaceRoot() string {
	return p.workspaceRoot
}

// ResolvePath validates that path stays inside the workspace and returns its
// absolute form. Relative paths are resolved against the workspace root.
func (p *Policy) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	if strings.ContainsRune(path, '\x00') {
		return "", ErrPathTraversal
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(p.workspaceRoot, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(p.workspaceRoot, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideWorkspace, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideWorkspace, path)
	}

	return abs, nil
}

// ValidateCommand checks a command line against the deny list first, then the
// allow list. Deny rules win over allow rules.
func (p *Policy) ValidateCommand(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return ErrEmptyCommand
	}

	for _, re := range p.denied {
		if re.MatchString(command) {
			return fmt.Errorf("%w: %s", ErrCommandDenied, command)
		}
	}
	for _, re := range p.allowed {
		if re.MatchString(command) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCommandNotAllowed, command)
}
