// Package loader turns raw document files into legal documents ready
// for ingestion. It handles plain text and Markdown; structured input
// arrives as JSON and is decoded by the caller directly.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Load reads a file and converts it into a legal document. The document
// ID is derived from the file name so that loading the same file again
// produces a re-ingestion of the same document rather than a duplicate.
func Load(path string) (*domain.LegalDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	content := string(data)
	now := time.Now()

	doc := &domain.LegalDocument{
		ID:        slugify(baseName(path)),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: map[string]any{
			"source_path": path,
		},
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		doc.Title = markdownTitle(content, path)
		doc.Sections = markdownSections(content)
		doc.Metadata["format"] = "markdown"
	case ".txt", "":
		doc.Title = titleFromFilename(path)
		doc.Sections = plaintextSections(content)
		doc.Metadata["format"] = "plaintext"
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidInput, filepath.Ext(path))
	}

	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("%w: %s has no content", domain.ErrInvalidInput, path)
	}
	return doc, nil
}

// plaintextSections splits text into one section per paragraph,
// where paragraphs are separated by blank lines.
func plaintextSections(content string) []domain.Section {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	paragraphs := regexp.MustCompile(`\n{2,}`).Split(content, -1)

	var sections []domain.Section
	for _, p := range paragraphs {
		text := strings.TrimSpace(p)
		if text == "" {
			continue
		}
		sections = append(sections, domain.Section{
			ID:   fmt.Sprintf("s%d", len(sections)+1),
			Text: text,
		})
	}
	return sections
}

var headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+`)

// markdownSections splits a Markdown document on its headings, one
// section per heading plus one for any preamble before the first
// heading. Section IDs come from heading text so they are stable
// across re-ingestions as long as the headings do not change.
func markdownSections(content string) []domain.Section {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")

	var sections []domain.Section
	var current []string
	currentID := ""

	flush := func() {
		text := stripMarkdown(strings.Join(current, "\n"))
		if text == "" {
			current = nil
			return
		}
		id := currentID
		if id == "" {
			id = fmt.Sprintf("s%d", len(sections)+1)
		}
		sections = append(sections, domain.Section{ID: id, Text: text})
		current = nil
	}

	for _, line := range lines {
		if headingPattern.MatchString(line) {
			flush()
			heading := strings.TrimSpace(strings.TrimLeft(line, "# "))
			currentID = slugify(heading)
		}
		current = append(current, line)
	}
	flush()
	return sections
}

// markdownTitle takes the first H1 heading, falling back to the
// file name.
func markdownTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return titleFromFilename(path)
}

func titleFromFilename(path string) string {
	name := baseName(path)
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

var (
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	blockquotePattern = regexp.MustCompile(`(?m)^>\s*`)
	listPattern       = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	rulePattern       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	newlinePattern    = regexp.MustCompile(`\n{3,}`)
	slugPattern       = regexp.MustCompile(`[^a-z0-9]+`)
)

// stripMarkdown reduces Markdown formatting to plain text so that
// chunk content reads naturally in search results.
func stripMarkdown(content string) string {
	content = headingPattern.ReplaceAllString(content, "")
	content = linkPattern.ReplaceAllString(content, "$1")
	content = blockquotePattern.ReplaceAllString(content, "")
	content = rulePattern.ReplaceAllString(content, "")
	content = listPattern.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = newlinePattern.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
