package summarize

import (
	"fmt"
	"strings"
)

// RenderMarkdown formats a Result as the human-readable summary.md companion
// written next to the highlights snapshot.
func RenderMarkdown(result Result, generatedAt string) string {
	var sb strings.Builder
	sb.WriteString("# Bid Package Summary\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", generatedAt)
	sb.WriteString(result.Overview)
	sb.WriteString("\n")

	if len(result.Highlights) > 0 {
		sb.WriteString("\n## Highlights\n\n")
		for _, h := range result.Highlights {
			fmt.Fprintf(&sb, "%d. **%s** (score %.2f): %s\n", h.Rank, h.RelPath, h.Score, h.Snippet)
		}
	}

	fmt.Fprintf(&sb, "\n---\n%d documents · %d words\n", result.DocumentCount, result.WordCount)
	return sb.String()
}
