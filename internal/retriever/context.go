package retriever

import (
	"fmt"
	"strings"

	"github.com/lmsbridge/kbindex/internal/knowledge"
)

// ContextOptions controls context assembly.
type ContextOptions struct {
	MaxChars        int  // Budget for the assembled text; 0 selects DefaultMaxChars
	IncludeMetadata bool // Prepend a metadata header to each block
}

// DefaultMaxChars is the assembly budget used when none is configured.
const DefaultMaxChars = 8000

// blockSeparator joins rendered result blocks.
const blockSeparator = "\n\n---\n\n"

// GenerateContext renders ranked results into one budget-constrained text
// block for downstream consumption. Results are walked in score order. If
// the very first block alone exceeds the budget it is truncated to fit;
// after that, assembly stops before any block that would overflow, so no
// later block is ever partially included.
func GenerateContext(results []Result, opts ContextOptions) string {
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var sb strings.Builder
	for i, res := range results {
		block := renderBlock(res, i+1, opts.IncludeMetadata)

		if sb.Len() == 0 {
			if len(block) > maxChars {
				return truncate(block, maxChars)
			}
			sb.WriteString(block)
			continue
		}

		if sb.Len()+len(blockSeparator)+len(block) > maxChars {
			break
		}
		sb.WriteString(blockSeparator)
		sb.WriteString(block)
	}
	return sb.String()
}

// renderBlock formats one result as a context block.
func renderBlock(res Result, position int, includeMetadata bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s (score: %.2f)\n", position, res.ID, res.Score)

	if includeMetadata {
		var fields []string
		if v := res.Metadata[knowledge.MetaSystem]; v != "" {
			fields = append(fields, "system: "+v)
		}
		if v := res.Metadata[knowledge.MetaCategory]; v != "" {
			fields = append(fields, "category: "+v)
		}
		if v := res.Metadata[knowledge.MetaUpdatedAt]; v != "" {
			fields = append(fields, "updated: "+v)
		}
		if len(fields) > 0 {
			sb.WriteString(strings.Join(fields, " | "))
			sb.WriteByte('\n')
		}
	}

	sb.WriteByte('\n')
	sb.WriteString(res.Content)
	return sb.String()
}

// truncate cuts s to at most maxChars bytes without splitting a rune.
func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut]
}
