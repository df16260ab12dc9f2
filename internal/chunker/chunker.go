// Package chunker splits legal documents into overlapping, sentence-aware
// text windows suitable for embedding.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// DefaultChunkSize is the default target number of characters per chunk.
const DefaultChunkSize = 512

// DefaultOverlap is the default number of overlapping characters carried
// from one chunk into the next.
const DefaultOverlap = 50

// intactFactor keeps sections up to 1.5x the target size as a single
// chunk, preserving legal-article boundaries.
const intactFactor = 1.5

// sentenceRe matches sentences terminated by . ! or ? including runs of
// terminal punctuation. Text after the last terminator is handled as a
// trailing sentence.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// chunkNamespace is the UUID namespace for deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lexrag/chunk"))

// Chunker splits document sections into overlapping chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the configured target chunk size.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap size.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Chunk splits a document into chunks. The operation is deterministic:
// the same document and configuration always produce identical chunk IDs
// and boundaries. Empty sections are skipped; a document with a missing
// section list is malformed.
func (c *Chunker) Chunk(doc *domain.LegalDocument) ([]domain.Chunk, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("chunk document: %w", domain.ErrInvalidInput)
	}
	if doc.Sections == nil {
		return nil, fmt.Errorf("chunk document %s: missing sections: %w", doc.ID, domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	position := 0

	for _, sec := range doc.Sections {
		text := strings.TrimSpace(sec.Text)
		if text == "" {
			continue
		}

		// Short sections stay intact as one chunk.
		if float64(len(text)) <= float64(c.chunkSize)*intactFactor {
			chunks = append(chunks, c.newChunk(doc.ID, sec.ID, text, position, 0))
			position++
			continue
		}

		chunks = c.splitSection(chunks, doc.ID, sec.ID, text, &position)
	}

	return chunks, nil
}

// splitSection packs sentences greedily up to the target size, prefixing
// each chunk after the first with the tail of the previous chunk's body.
func (c *Chunker) splitSection(
	chunks []domain.Chunk,
	docID, sectionID, text string,
	position *int,
) []domain.Chunk {
	sentences := splitSentences(text)

	var cur []string
	curLen := 0
	offset := 0
	prevTail := ""

	emit := func() {
		body := strings.Join(cur, " ")
		content := prevTail + body

		chunks = append(chunks, c.newChunk(docID, sectionID, content, *position, offset))
		*position = *position + 1

		if c.overlap > 0 {
			if len(body) > c.overlap {
				prevTail = body[len(body)-c.overlap:]
			} else {
				prevTail = body
			}
		}
		offset += len(body) + 1
		cur = cur[:0]
		curLen = 0
	}

	for _, sentence := range sentences {
		add := len(sentence)
		if curLen > 0 {
			add++ // joining space
		}
		if curLen > 0 && curLen+add > c.chunkSize {
			emit()
			add = len(sentence)
		}
		cur = append(cur, sentence)
		curLen += add
	}
	if curLen > 0 {
		emit()
	}

	return chunks
}

// newChunk builds a chunk with a deterministic ID derived from the
// document ID, section ID and section offset.
func (c *Chunker) newChunk(docID, sectionID, content string, position, offset int) domain.Chunk {
	name := fmt.Sprintf("%s/%s/%d", docID, sectionID, offset)
	return domain.Chunk{
		ID:         uuid.NewSHA1(chunkNamespace, []byte(name)).String(),
		DocumentID: docID,
		SectionID:  sectionID,
		Content:    content,
		Position:   position,
		Offset:     offset,
		Length:     len(content),
	}
}

// splitSentences splits text on terminal punctuation. Text without any
// terminator is treated as a single sentence.
func splitSentences(text string) []string {
	matches := sentenceRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{strings.TrimSpace(text)}
	}

	sentences := make([]string, 0, len(matches)+1)
	last := 0
	for _, m := range matches {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = m[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
