// Package chunker splits knowledge documents into bounded, overlapping
// passages for embedding and retrieval.
package chunker

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"

	"github.com/lmsbridge/kbindex/internal/tokens"
)

// Chunk is one bounded passage of a document.
type Chunk struct {
	Text       string // Verbatim slice of the source, plus any overlap prefix
	HeaderPath string // Section hierarchy: "# Doc Title > ## Section Name"
	Ordinal    int    // 1-based position within the document
}

// Chunker splits a document at structural boundaries while keeping each
// chunk within a token budget. Splitting is fully deterministic: identical
// input and parameters always produce the identical chunk sequence.
type Chunker struct {
	estimator tokens.Estimator
	parser    goldmark.Markdown
}

var headingLine = regexp.MustCompile(`(?m)^#{1,6} `)

// New creates a Chunker using the given token estimator.
func New(estimator tokens.Estimator) *Chunker {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Chunker{
		estimator: estimator,
		parser:    md,
	}
}

// Chunk splits text into an ordered sequence of chunk texts.
//
// The document is first split at heading boundaries into sections, each
// kept as one unit including its heading. Sections that alone exceed
// maxTokens are further split into blank-line-delimited paragraphs. Units
// are then packed greedily: when the next unit would push the buffer past
// maxTokens the buffer is emitted and the next buffer is seeded with an
// overlap suffix of the emitted chunk. A single indivisible unit larger
// than maxTokens is emitted whole; it is never sliced mid-unit.
func (c *Chunker) Chunk(text string, maxTokens, overlapTokens int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var units []string
	for _, section := range c.splitSections(text) {
		if c.estimator.Estimate(section) > maxTokens {
			units = append(units, splitParagraphs(section)...)
		} else {
			units = append(units, section)
		}
	}

	var chunks []string
	var buffer strings.Builder
	bufTokens := 0

	for _, unit := range units {
		unitTokens := c.estimator.Estimate(unit)

		if buffer.Len() > 0 && bufTokens+unitTokens > maxTokens {
			emitted := buffer.String()
			chunks = append(chunks, emitted)

			overlap := overlapSuffix(emitted, overlapTokens)
			buffer.Reset()
			buffer.WriteString(overlap)
			buffer.WriteString(unit)
			bufTokens = c.estimator.Estimate(overlap) + unitTokens
			continue
		}

		buffer.WriteString(unit)
		bufTokens += unitTokens
	}

	if buffer.Len() > 0 {
		chunks = append(chunks, buffer.String())
	}
	return chunks
}

// ChunkDocument splits text like Chunk and annotates every chunk with its
// 1-based ordinal and the header hierarchy of the first heading it contains.
func (c *Chunker) ChunkDocument(text string, maxTokens, overlapTokens int) []Chunk {
	texts := c.Chunk(text, maxTokens, overlapTokens)
	if len(texts) == 0 {
		return nil
	}

	paths := c.headerPaths(text)

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{
			Text:       t,
			HeaderPath: firstHeaderPath(t, paths),
			Ordinal:    i + 1,
		}
	}
	return chunks
}

// splitSections splits text at heading boundaries. Every section keeps its
// heading, and concatenating the sections in order reproduces text exactly.
func (c *Chunker) splitSections(source string) []string {
	src := []byte(source)
	reader := text.NewReader(src)
	doc := c.parser.Parser().Parse(reader)

	var offsets []int
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading && n.Lines().Len() > 0 {
			off := n.Lines().At(0).Start
			// Segments start at the heading text; back up to the line start
			// so the "#" markers stay with the section.
			for off > 0 && src[off-1] != '\n' {
				off--
			}
			offsets = append(offsets, off)
		}
		return ast.WalkContinue, nil
	})

	if len(offsets) == 0 {
		return []string{source}
	}

	var sections []string
	if offsets[0] > 0 {
		sections = append(sections, source[:offsets[0]])
	}
	for i, off := range offsets {
		end := len(source)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		sections = append(sections, source[off:end])
	}
	return sections
}

// splitParagraphs splits a section into blank-line-delimited blocks. Blank
// lines stay attached to the preceding block so concatenating the blocks
// reproduces the section exactly.
func splitParagraphs(section string) []string {
	lines := strings.SplitAfter(section, "\n")

	var blocks []string
	var current strings.Builder
	prevBlank := false

	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if !blank && prevBlank && current.Len() > 0 {
			blocks = append(blocks, current.String())
			current.Reset()
		}
		current.WriteString(line)
		prevBlank = blank
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

// overlapSuffix returns the tail of chunk carried into the next chunk.
// The window is approximated by word count to reach overlapTokens. If a
// heading boundary falls inside the window, the overlap restarts exactly
// at that heading instead of mid-paragraph.
func overlapSuffix(chunk string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}

	targetWords := int(float64(overlapTokens) / tokens.WordTokenRatio)
	if targetWords < 1 {
		targetWords = 1
	}

	suffix := tailWords(chunk, targetWords)

	if loc := headingLine.FindStringIndex(suffix); loc != nil {
		return suffix[loc[0]:]
	}
	return suffix
}

// tailWords returns the verbatim suffix of s containing the last n words.
func tailWords(s string, n int) string {
	words := 0
	inWord := false
	for i := len(s) - 1; i >= 0; i-- {
		isSpace := s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r'
		if !isSpace && !inWord {
			inWord = true
		} else if isSpace && inWord {
			words++
			if words >= n {
				return s[i+1:]
			}
			inWord = false
		}
	}
	return s
}

// headerPaths builds a heading title -> hierarchy path lookup from the
// document outline.
func (c *Chunker) headerPaths(source string) map[string]string {
	src := []byte(source)
	reader := text.NewReader(src)
	doc := c.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, src,
		toc.MinDepth(1),
		toc.MaxDepth(6),
		toc.Compact(true),
	)
	if err != nil {
		return nil
	}

	paths := make(map[string]string)
	collectPaths(tree.Items, nil, paths)
	return paths
}

func collectPaths(items toc.Items, ancestors []string, paths map[string]string) {
	for _, item := range items {
		current := append(ancestors, string(item.Title))
		if _, seen := paths[string(item.Title)]; !seen {
			paths[string(item.Title)] = formatHeaderPath(current)
		}
		collectPaths(item.Items, current, paths)
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + segment
	}
	return strings.Join(parts, " > ")
}

// firstHeaderPath returns the hierarchy path of the first heading found in
// the chunk text, or "" when the chunk carries no heading.
func firstHeaderPath(chunk string, paths map[string]string) string {
	if len(paths) == 0 {
		return ""
	}
	loc := headingLine.FindStringIndex(chunk)
	if loc == nil {
		return ""
	}
	rest := chunk[loc[1]:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	title := strings.TrimSpace(rest)
	return paths[title]
}
