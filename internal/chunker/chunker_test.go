package chunker

import (
	"strings"
	"testing"

	"github.com/lmsbridge/kbindex/internal/tokens"
)

func newTestChunker() *Chunker {
	// Word-count estimation keeps the tests independent of encoding data.
	return New(tokens.WordCountEstimator{})
}

// sectionDoc builds a document with a short intro and n uniform sections,
// each around 63 words.
func sectionDoc(n int) string {
	var sb strings.Builder
	sb.WriteString("# Guide\n\nShort intro text here.\n\n")
	for i := 0; i < n; i++ {
		sb.WriteString("## Section ")
		sb.WriteByte(byte('A' + i))
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(strings.Repeat("alpha beta gamma delta epsilon ", 12)))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func TestChunkDocument_SingleChunk(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.
`

	chunks := newTestChunker().ChunkDocument(input, 1500, 200)

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Ordinal != 1 {
		t.Errorf("Ordinal: expected 1, got %d", chunks[0].Ordinal)
	}
	if chunks[0].Text != input {
		t.Errorf("Single chunk should carry the whole document verbatim")
	}
	if chunks[0].HeaderPath != "# Getting Started" {
		t.Errorf("HeaderPath: expected '# Getting Started', got %q", chunks[0].HeaderPath)
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := newTestChunker()
	if got := c.Chunk("", 1500, 200); got != nil {
		t.Errorf("empty input: expected nil, got %v", got)
	}
	if got := c.Chunk("   \n\t  ", 1500, 200); got != nil {
		t.Errorf("whitespace input: expected nil, got %v", got)
	}
}

func TestChunk_SplitsLongDocument(t *testing.T) {
	input := sectionDoc(3)

	chunks := newTestChunker().Chunk(input, 100, 20)

	if len(chunks) < 3 {
		t.Fatalf("Expected at least 3 chunks, got %d", len(chunks))
	}

	// The second chunk starts with an overlap carried from the first:
	// everything before its own section heading must be a suffix of the
	// previous chunk.
	idx := strings.Index(chunks[1], "## Section B")
	if idx <= 0 {
		t.Fatalf("Chunk 1 should carry an overlap prefix before its heading, got %q", chunks[1][:min(80, len(chunks[1]))])
	}
	if !strings.HasSuffix(chunks[0], chunks[1][:idx]) {
		t.Errorf("Overlap prefix of chunk 1 is not a suffix of chunk 0")
	}
}

func TestChunk_DefaultParameters(t *testing.T) {
	// A document around 4000 estimated tokens chunked with the production
	// defaults (1500 max, 200 overlap) must split into several chunks that
	// each carry overlap from their predecessor.
	var sb strings.Builder
	sb.WriteString("# Manual\n\n")
	for i := 0; i < 10; i++ {
		sb.WriteString("## Chapter\n\n")
		sb.WriteString(strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet consectetur ", 50)))
		sb.WriteString("\n\n")
	}
	input := sb.String()

	est := tokens.WordCountEstimator{}
	if total := est.Estimate(input); total < 3500 {
		t.Fatalf("fixture too small: %d tokens", total)
	}

	chunks := newTestChunker().Chunk(input, 1500, 200)

	if len(chunks) < 3 {
		t.Fatalf("Expected at least 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		overlap := 0
		for n := 1; n <= len(chunks[i]); n++ {
			if strings.HasSuffix(chunks[i-1], chunks[i][:n]) {
				overlap = n
			}
		}
		if overlap == 0 {
			t.Errorf("Chunk %d carries no overlap from chunk %d", i, i-1)
		}
	}
}

func TestChunk_LosslessWithoutOverlap(t *testing.T) {
	input := sectionDoc(4)

	chunks := newTestChunker().Chunk(input, 100, 0)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != input {
		t.Errorf("Concatenated chunks do not reproduce the source document")
	}
}

func TestChunk_RespectsBudget(t *testing.T) {
	input := sectionDoc(5)
	est := tokens.WordCountEstimator{}

	chunks := newTestChunker().Chunk(input, 100, 0)

	for i, chunk := range chunks {
		if got := est.Estimate(chunk); got > 100 {
			t.Errorf("Chunk %d estimated at %d tokens, budget is 100", i, got)
		}
	}
}

func TestChunk_ParagraphSubSplit(t *testing.T) {
	para := strings.TrimSpace(strings.Repeat("word ", 20))
	input := para + "\n\n" + para + "\n\n" + para + "\n"

	chunks := newTestChunker().Chunk(input, 30, 0)

	// One heading-less section over budget: each paragraph becomes a chunk.
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != input {
		t.Errorf("Paragraph split lost content")
	}
}

func TestChunk_OversizedUnitKeptWhole(t *testing.T) {
	input := strings.TrimSpace(strings.Repeat("dense ", 50)) + "\n"

	chunks := newTestChunker().Chunk(input, 10, 0)

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk for an indivisible oversized unit, got %d", len(chunks))
	}
	if chunks[0] != input {
		t.Errorf("Oversized unit was sliced")
	}
}

func TestChunk_Deterministic(t *testing.T) {
	input := sectionDoc(4)
	c := newTestChunker()

	first := c.Chunk(input, 100, 20)
	second := c.Chunk(input, 100, 20)

	if len(first) != len(second) {
		t.Fatalf("Chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Chunk %d differs between runs", i)
		}
	}
}

func TestChunkDocument_HeaderPaths(t *testing.T) {
	body := strings.TrimSpace(strings.Repeat("one two three four five ", 10))
	input := "# Title\n\nIntro.\n\n" +
		"## Alpha\n\n" + body + "\n\n" +
		"## Beta\n\n" + body + "\n"

	chunks := newTestChunker().ChunkDocument(input, 80, 0)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].HeaderPath != "# Title" {
		t.Errorf("Chunk 0 HeaderPath: expected '# Title', got %q", chunks[0].HeaderPath)
	}
	expected := "# Title > ## Beta"
	if chunks[1].HeaderPath != expected {
		t.Errorf("Chunk 1 HeaderPath: expected %q, got %q", expected, chunks[1].HeaderPath)
	}
	if chunks[0].Ordinal != 1 || chunks[1].Ordinal != 2 {
		t.Errorf("Ordinals: expected 1, 2; got %d, %d", chunks[0].Ordinal, chunks[1].Ordinal)
	}
}

func TestOverlapSuffix_RestartsAtHeading(t *testing.T) {
	chunk := strings.Repeat("pad ", 30) + "\n## Target\ntail words here\n"

	got := overlapSuffix(chunk, 26) // ~20 word window, covers the heading

	if !strings.HasPrefix(got, "## Target") {
		t.Errorf("Overlap should restart at the heading, got %q", got)
	}
}

func TestOverlapSuffix_ZeroTokens(t *testing.T) {
	if got := overlapSuffix("some chunk text", 0); got != "" {
		t.Errorf("Expected empty overlap for zero tokens, got %q", got)
	}
}

func TestTailWords(t *testing.T) {
	if got := tailWords("one two three four", 2); got != "three four" {
		t.Errorf("tailWords = %q, want %q", got, "three four")
	}
	if got := tailWords("short", 10); got != "short" {
		t.Errorf("tailWords on short input = %q, want whole string", got)
	}
}
