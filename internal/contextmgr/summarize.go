package contextmgr

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/agentd/internal/tools"
)

const (
	// maxKeyFindings caps findings per structured result across all strategies.
	maxKeyFindings = 10

	// maxFilePaths caps the referenced-path set on one structured result.
	maxFilePaths = 10

	// maxPreviewLen bounds the inline content preview in file summaries.
	maxPreviewLen = 100

	maxFileSummaryLen     = 250
	maxListSummaryLen     = 200
	maxSearchSummaryLen   = 200
	maxErrorSummaryLen    = 150
	maxAnalysisSummaryLen = 200
)

// declarationMarkers is the token vocabulary scanned for in file content and
// search hits. Order determines finding order for search occurrence counts.
var declarationMarkers = []string{
	"class ", "func ", "function ", "def ", "interface ", "type ",
	"export ", "struct ", "impl ",
}

// importantNames flags directory entries worth calling out in listings.
var importantNames = []string{"index", "main", "app", "server", "config"}

// manifestNames are dependency manifests recognized in listings.
var manifestNames = map[string]bool{
	"package.json":     true,
	"go.mod":           true,
	"cargo.toml":       true,
	"requirements.txt": true,
	"pyproject.toml":   true,
	"pom.xml":          true,
	"gemfile":          true,
}

// buildConfigNames are build system entry points recognized in listings.
var buildConfigNames = map[string]bool{
	"makefile":       true,
	"dockerfile":     true,
	"cmakelists.txt": true,
	"build.gradle":   true,
	"justfile":       true,
}

// summarize applies the per-type extraction policy. Every strategy is total
// over its payload shape; absent fields degrade to placeholders instead of
// failing.
func (m *Manager) summarize(result *tools.Result, resultType ResultType) *StructuredResult {
	s := &StructuredResult{
		ToolName: fullToolName(result),
		Success:  result.Success,
		Duration: result.Duration,
		Type:     resultType,
		Data:     result.Data,
	}

	if payload, err := json.Marshal(result.Data); err == nil {
		s.OriginalSize = len(payload)
	}

	switch resultType {
	case TypeFileContent:
		m.summarizeFileContent(s, result)
	case TypeFileList:
		m.summarizeFileList(s, result)
	case TypeSearchResults:
		m.summarizeSearchResults(s, result)
	case TypeError:
		m.summarizeError(s, result)
	default:
		m.summarizeAnalysis(s, result)
	}

	if len(s.KeyFindings) > maxKeyFindings {
		s.KeyFindings = s.KeyFindings[:maxKeyFindings]
		s.Truncated = true
	}
	if len(s.FilePaths) > maxFilePaths {
		s.FilePaths = s.FilePaths[:maxFilePaths]
	}

	return s
}

func (m *Manager) summarizeFileContent(s *StructuredResult, result *tools.Result) {
	path := stringField(result.Data, "path", "unknown")
	content, _ := result.Data["content"].(string)
	lines := strings.Split(content, "\n")

	preview := strings.Join(strings.Fields(content), " ")
	if len(preview) > maxPreviewLen {
		preview = preview[:maxPreviewLen]
		s.Truncated = true
	}
	s.Summary = truncate(fmt.Sprintf("%s (%d lines): %s", path, len(lines), preview), maxFileSummaryLen)

	// Declarations in document order, one finding per matching line.
	for _, line := range lines {
		if len(s.KeyFindings) >= maxKeyFindings {
			s.Truncated = true
			break
		}
		trimmed := strings.TrimSpace(line)
		for _, marker := range declarationMarkers {
			if strings.Contains(trimmed, marker) {
				s.KeyFindings = append(s.KeyFindings, truncate(trimmed, 120))
				break
			}
		}
	}

	hasClasses := strings.Contains(content, "class ") || strings.Contains(content, "struct ")
	hasFunctions := strings.Contains(content, "func ") ||
		strings.Contains(content, "function ") || strings.Contains(content, "def ")

	s.FilePaths = []string{path}
	s.NextStepContext = map[string]any{
		"path":          path,
		"language":      languageOf(path),
		"has_classes":   hasClasses,
		"has_functions": hasFunctions,
		"line_count":    len(lines),
	}
}

func (m *Manager) summarizeFileList(s *StructuredResult, result *tools.Result) {
	dir := stringField(result.Data, "directory", "unknown")
	entries, _ := result.Data["files"].([]any)
	count := intField(result.Data, "count", len(entries))

	s.Summary = truncate(fmt.Sprintf("%d entries in %s", count, dir), maxListSummaryLen)

	extCounts := make(map[string]int)
	var important []string
	hasManifest := false
	hasBuildConfig := false

	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(entry, "name", "")
		if name == "" {
			continue
		}
		if isDir, _ := entry["dir"].(bool); isDir {
			continue
		}

		lower := strings.ToLower(name)
		if manifestNames[lower] {
			hasManifest = true
		}
		if buildConfigNames[lower] {
			hasBuildConfig = true
		}
		if ext := filepath.Ext(name); ext != "" {
			extCounts[ext]++
		}

		base := strings.TrimSuffix(lower, filepath.Ext(lower))
		for _, pat := range importantNames {
			if strings.Contains(base, pat) {
				important = append(important, name)
				break
			}
		}
	}

	exts := make([]string, 0, len(extCounts))
	for ext := range extCounts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("%d %s files", extCounts[ext], ext))
	}
	for _, name := range important {
		s.KeyFindings = append(s.KeyFindings, "important file: "+name)
	}

	s.NextStepContext = map[string]any{
		"directory":        dir,
		"file_count":       count,
		"has_manifest":     hasManifest,
		"has_build_config": hasBuildConfig,
	}
}

func (m *Manager) summarizeSearchResults(s *StructuredResult, result *tools.Result) {
	query := stringField(result.Data, "query", "unknown")
	matches, _ := result.Data["matches"].([]any)
	files := stringSliceField(result.Data, "files")
	fileCount := intField(result.Data, "file_count", len(files))

	s.Summary = truncate(fmt.Sprintf("%q: %d matches across %d files", query, len(matches), fileCount), maxSearchSummaryLen)

	s.KeyFindings = append(s.KeyFindings,
		fmt.Sprintf("matches span %d distinct files", fileCount))

	// Occurrence counts of the declaration vocabulary across matched text.
	var matched strings.Builder
	for _, mv := range matches {
		if entry, ok := mv.(map[string]any); ok {
			matched.WriteString(stringField(entry, "text", ""))
			matched.WriteByte('\n')
		}
	}
	text := matched.String()

	s.MatchedPatterns = append(s.MatchedPatterns, query)
	for _, marker := range declarationMarkers {
		n := strings.Count(text, marker)
		if n == 0 {
			continue
		}
		term := strings.TrimSpace(marker)
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("%d occurrences of %q", n, term))
		s.MatchedPatterns = append(s.MatchedPatterns, term)
	}

	paths := files
	if len(paths) > maxFilePaths {
		paths = paths[:maxFilePaths]
		s.Truncated = true
	}
	s.FilePaths = append(s.FilePaths, paths...)

	s.NextStepContext = map[string]any{
		"query":       query,
		"match_count": len(matches),
		"file_count":  fileCount,
	}
}

func (m *Manager) summarizeError(s *StructuredResult, result *tools.Result) {
	msg := result.Error
	if msg == "" {
		msg = "unknown error"
	}

	// Every stored form of the message is bounded; the full text stays on the
	// raw tools.Result, not in the conversation memory.
	s.Summary = truncate(msg, maxErrorSummaryLen)
	s.KeyFindings = []string{truncate(msg, maxErrorSummaryLen)}
	s.Errors = []string{truncate(msg, maxErrorSummaryLen)}

	errType := msg
	if i := strings.Index(msg, ":"); i > 0 {
		errType = msg[:i]
	}
	s.NextStepContext = map[string]any{
		"error":      true,
		"error_type": truncate(strings.TrimSpace(errType), maxErrorSummaryLen),
	}
}

// summarizeAnalysis is the fallback strategy: keyword presence over the
// serialized payload. Tools wanting richer extraction get their own type.
func (m *Manager) summarizeAnalysis(s *StructuredResult, result *tools.Result) {
	payload, _ := json.Marshal(result.Data)
	text := strings.ToLower(string(payload))

	keys := make([]string, 0, len(result.Data))
	for k := range result.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.Summary = truncate(fmt.Sprintf("%s completed (%s)", s.ToolName, strings.Join(keys, ", ")), maxAnalysisSummaryLen)

	for _, kw := range []string{"error", "warning", "failed", "denied", "not found"} {
		if strings.Contains(text, kw) {
			s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("payload mentions %q", kw))
		}
	}

	s.NextStepContext = map[string]any{
		"tool": s.ToolName,
	}
}

func fullToolName(result *tools.Result) string {
	if result.Namespace == "" {
		return result.ToolName
	}
	return result.Namespace + ":" + result.ToolName
}

var extLanguages = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".sh":   "shell",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
}

func languageOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extLanguages[ext]; ok {
		return lang
	}
	if ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	return "unknown"
}

func stringField(data map[string]any, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func stringSliceField(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intField(data map[string]any, key string, fallback int) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
