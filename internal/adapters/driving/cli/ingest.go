package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/loader"
)

var (
	ingestArea      string
	ingestType      string
	ingestHierarchy string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest legal documents",
	Long: `Ingests documents from one or more files. JSON files hold either a
single document or an array of documents; plain text and Markdown
files are converted into a single document each, with sections split
on paragraphs or headings. Every document is chunked, embedded with
the active provider and stored with its lineage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestArea, "area", "", "legal area for text and Markdown files")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "document type for text and Markdown files")
	ingestCmd.Flags().StringVar(&ingestHierarchy, "hierarchy", "", "hierarchy level for text and Markdown files")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	var docs []*domain.LegalDocument
	for _, path := range args {
		loaded, err := loadPath(path)
		if err != nil {
			return err
		}
		docs = append(docs, loaded...)
	}

	cmd.Printf("Ingesting %d document(s)...\n", len(docs))

	// Render progress while the run executes.
	ch, unsubscribe := eventBus.Subscribe()
	defer unsubscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			progress, ok := ev.(domain.ProgressEvent)
			if !ok || progress.Stage != domain.StageDocumentComplete {
				continue
			}
			cmd.Printf("  [%3d%%] %s\n", progress.Progress, progress.DocumentID)
		}
	}()

	result, err := ingestService.IngestAll(cmd.Context(), docs)
	unsubscribe()
	<-done
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Done: %d succeeded, %d failed.\n", result.SuccessCount, result.FailureCount)
	for _, itemErr := range result.Errors {
		cmd.Printf("  %s: %v\n", itemErr.ItemID, itemErr.Err)
	}
	return nil
}

// loadPath reads documents from a file, dispatching on its extension.
func loadPath(path string) ([]*domain.LegalDocument, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadJSONDocuments(path)
	}

	doc, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	doc.LegalArea = ingestArea
	doc.DocumentType = ingestType
	doc.Hierarchy = ingestHierarchy
	return []*domain.LegalDocument{doc}, nil
}

// loadJSONDocuments reads one document or an array of documents from a
// JSON file.
func loadJSONDocuments(path string) ([]*domain.LegalDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var docs []*domain.LegalDocument
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}

	var single domain.LegalDocument
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return []*domain.LegalDocument{&single}, nil
}
