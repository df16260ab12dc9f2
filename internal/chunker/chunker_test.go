package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		if c.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, c.chunkSize)
		}
		if c.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, c.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		c := New(WithChunkSize(256), WithOverlap(32))
		if c.chunkSize != 256 {
			t.Errorf("expected chunkSize 256, got %d", c.chunkSize)
		}
		if c.overlap != 32 {
			t.Errorf("expected overlap 32, got %d", c.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := New(WithChunkSize(100), WithOverlap(150))
		if c.overlap >= c.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		c := New(WithChunkSize(0), WithOverlap(-1))
		if c.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", c.chunkSize)
		}
		if c.overlap != DefaultOverlap {
			t.Errorf("expected default overlap, got %d", c.overlap)
		}
	})
}

func TestChunk_MalformedInput(t *testing.T) {
	c := New()

	t.Run("nil document", func(t *testing.T) {
		_, err := c.Chunk(nil)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("missing sections", func(t *testing.T) {
		_, err := c.Chunk(&domain.LegalDocument{ID: "doc-1"})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestChunk_ShortSectionsStayIntact(t *testing.T) {
	// Two 300-char articles with chunkSize 512: each is below 1.5x the
	// target, so the document yields exactly 2 chunks.
	c := New(WithChunkSize(512), WithOverlap(50))
	article := strings.Repeat("De werkgever is verplicht de schade te vergoeden. ", 6)[:300]
	doc := &domain.LegalDocument{
		ID: "bw-7-658",
		Sections: []domain.Section{
			{ID: "art-1", Text: article},
			{ID: "art-2", Text: article},
		},
	}

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Position != i {
			t.Errorf("expected position %d, got %d", i, chunk.Position)
		}
		if chunk.SectionID != doc.Sections[i].ID {
			t.Errorf("expected section %s, got %s", doc.Sections[i].ID, chunk.SectionID)
		}
		if chunk.Length != len(chunk.Content) {
			t.Errorf("length %d does not match content length %d", chunk.Length, len(chunk.Content))
		}
	}
}

func TestChunk_LargeSectionSplitsAtSentences(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))
	sentence := "Dit artikel regelt de aansprakelijkheid van de werkgever."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 10))
	doc := &domain.LegalDocument{
		ID:       "doc-1",
		Sections: []domain.Section{{ID: "s1", Text: text}},
	}

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Every chunk after the first carries the tail of the previous body.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		tail := prev[len(prev)-c.overlap:]
		if !strings.HasPrefix(chunks[i].Content, tail) {
			t.Errorf("chunk %d missing overlap prefix %q", i, tail)
		}
	}

	// Chunks break at sentence boundaries: each body ends with terminal
	// punctuation.
	for i, chunk := range chunks {
		if !strings.HasSuffix(chunk.Content, ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, chunk.Content)
		}
	}
}

func TestChunk_NoPunctuationSingleSentence(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(10))
	text := strings.Repeat("x", 200) // no terminal punctuation, above 1.5x
	doc := &domain.LegalDocument{
		ID:       "doc-1",
		Sections: []domain.Section{{ID: "s1", Text: text}},
	}

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for punctuation-free text, got %d", len(chunks))
	}
	if chunks[0].Content != text {
		t.Error("expected whole section as single sentence chunk")
	}
}

func TestChunk_EmptySectionsSkipped(t *testing.T) {
	c := New()
	doc := &domain.LegalDocument{
		ID: "doc-1",
		Sections: []domain.Section{
			{ID: "s1", Text: "   "},
			{ID: "s2", Text: "Geldig artikel."},
			{ID: "s3", Text: ""},
		},
	}

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].SectionID != "s2" {
		t.Errorf("expected chunk from s2, got %s", chunks[0].SectionID)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))
	sentence := "De rechter wijst de vordering toe. "
	doc := &domain.LegalDocument{
		ID: "doc-1",
		Sections: []domain.Section{
			{ID: "s1", Text: strings.TrimSpace(strings.Repeat(sentence, 12))},
		},
	}

	first, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d: IDs differ: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d: contents differ", i)
		}
	}

	// IDs are unique within a run.
	seen := make(map[string]bool)
	for _, chunk := range first {
		if seen[chunk.ID] {
			t.Errorf("duplicate chunk ID: %s", chunk.ID)
		}
		seen[chunk.ID] = true
	}
}
