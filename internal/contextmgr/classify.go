package contextmgr

import (
	"strings"

	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// fileOrientedTools are the tool names whose successful payloads are probed
// by shape. Results from any other tool fall through to TypeAnalysis.
var fileOrientedTools = map[string]bool{
	"files": true,
}

// Classify maps a raw tool result to exactly one ResultType. Failed results
// are always TypeError. Successful results from file-oriented tools are
// classified by payload shape: a content string means file content, a matches
// array means search results, a files array means a directory listing.
// Everything else falls back to TypeAnalysis, which is the extension point
// for tools without a dedicated extraction strategy, not an error condition.
func Classify(toolName string, result *tools.Result) ResultType {
	if result == nil || !result.Success {
		return TypeError
	}
	if !fileOrientedTools[bareToolName(toolName)] {
		return TypeAnalysis
	}
	if result.Data == nil {
		return TypeAnalysis
	}
	if _, ok := result.Data["content"].(string); ok {
		return TypeFileContent
	}
	if _, ok := result.Data["matches"].([]any); ok {
		return TypeSearchResults
	}
	if _, ok := result.Data["files"].([]any); ok {
		return TypeFileList
	}
	return TypeAnalysis
}

// bareToolName strips an optional namespace prefix from a tool name.
func bareToolName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}
