package contextmgr

import (
	"fmt"
	"strings"
)

// fullContentThreshold is the original-payload size above which file content
// renders as summary plus findings instead of the raw file.
const fullContentThreshold = 1024

// Render produces the conversation-visible text block for a structured
// result. The memory argument may be nil; when present it signals that the
// caller is operating under a context budget, which switches large file
// content from raw rendering to the compact form. File lists and search
// results never render their raw payload.
func (m *Manager) Render(r *StructuredResult, mem *Memory) string {
	var text string

	switch {
	case !r.Success || r.Type == TypeError:
		text = fmt.Sprintf("ERROR [%s]: %s", r.ToolName, r.Summary)

	case r.Type == TypeFileContent:
		if r.OriginalSize > fullContentThreshold && mem != nil {
			text = compactBlock(r)
		} else if content, ok := r.Data["content"].(string); ok {
			text = fmt.Sprintf("[%s] %s\n%s", r.ToolName, r.Summary, content)
		} else {
			text = compactBlock(r)
		}

	case r.Type == TypeFileList, r.Type == TypeSearchResults:
		text = compactBlock(r)

	default:
		text = compactBlock(r)
	}

	if m.scrubber != nil && m.scrubber.Enabled() {
		text = m.scrubber.Scrub(text).Scrubbed
	}
	return text
}

func compactBlock(r *StructuredResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.ToolName, r.Summary)
	for _, f := range r.KeyFindings {
		b.WriteString("\n- ")
		b.WriteString(f)
	}
	if r.Truncated {
		b.WriteString("\n(truncated)")
	}
	return b.String()
}
