package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Plaintext(t *testing.T) {
	path := writeFile(t, "huurrecht_opzegtermijn.txt",
		"Article 1. The notice period is one month.\n\nArticle 2. The landlord may extend it.\n")

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "huurrecht-opzegtermijn", doc.ID)
	assert.Equal(t, "huurrecht opzegtermijn", doc.Title)
	assert.Equal(t, "plaintext", doc.Metadata["format"])
	assert.Equal(t, path, doc.Metadata["source_path"])

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "s1", doc.Sections[0].ID)
	assert.Equal(t, "Article 1. The notice period is one month.", doc.Sections[0].Text)
	assert.Equal(t, "s2", doc.Sections[1].ID)
}

func TestLoad_Markdown(t *testing.T) {
	content := `# Wet op de huurbescherming

Preamble text before the first article.

## Artikel 1

The **tenant** enjoys protection as described in [the statute](https://example.org).

## Artikel 2

> The landlord must give notice.

- one month for short leases
- three months otherwise
`
	path := writeFile(t, "huurbescherming.md", content)

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Wet op de huurbescherming", doc.Title)
	assert.Equal(t, "markdown", doc.Metadata["format"])

	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "wet-op-de-huurbescherming", doc.Sections[0].ID)
	assert.Equal(t, "artikel-1", doc.Sections[1].ID)
	assert.Equal(t, "artikel-2", doc.Sections[2].ID)

	// Formatting is stripped from section text.
	assert.Contains(t, doc.Sections[1].Text, "The tenant enjoys protection as described in the statute.")
	assert.NotContains(t, doc.Sections[1].Text, "**")
	assert.NotContains(t, doc.Sections[1].Text, "](")
	assert.Contains(t, doc.Sections[2].Text, "The landlord must give notice.")
	assert.NotContains(t, doc.Sections[2].Text, ">")
	assert.NotContains(t, doc.Sections[2].Text, "- one")
}

func TestLoad_StableIDAcrossReloads(t *testing.T) {
	path := writeFile(t, "Burgerlijk Wetboek.txt", "One short section.")

	first, err := Load(path)
	require.NoError(t, err)
	second, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "burgerlijk-wetboek", first.ID)
}

func TestLoad_MarkdownTitleFallsBackToFilename(t *testing.T) {
	path := writeFile(t, "zaak-2024-117.md", "No headings here, just a ruling summary.")

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "zaak 2024 117", doc.Title)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "s1", doc.Sections[0].ID)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "scan.pdf", "%PDF-1.4")

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", "   \n\n  ")

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
