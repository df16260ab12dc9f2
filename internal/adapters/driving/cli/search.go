package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var (
	searchTopK          int
	searchThreshold     float64
	searchArea          string
	searchType          string
	searchHierarchy     string
	searchMinConfidence float64
	searchJSON          bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored documents by similarity",
	Long: `Embeds the query with the active provider and ranks all stored
chunks by cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", domain.DefaultScoreThreshold, "minimum similarity score")
	searchCmd.Flags().StringVar(&searchArea, "area", "", "filter by legal area")
	searchCmd.Flags().StringVar(&searchType, "type", "", "filter by document type")
	searchCmd.Flags().StringVar(&searchHierarchy, "hierarchy", "", "filter by hierarchy")
	searchCmd.Flags().Float64Var(&searchMinConfidence, "min-confidence", 0, "minimum document confidence")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts := domain.SearchOptions{
		TopK:           searchTopK,
		ScoreThreshold: searchThreshold,
		MinConfidence:  searchMinConfidence,
	}
	if searchArea != "" || searchType != "" || searchHierarchy != "" {
		opts.Filter = &domain.MetadataFilter{
			LegalArea:    searchArea,
			DocumentType: searchType,
			Hierarchy:    searchHierarchy,
		}
	}

	results, err := searchService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, results[i].Chunk.DocumentID, results[i].Score)
		if results[i].LegalArea != "" {
			cmd.Printf("      Area: %s\n", results[i].LegalArea)
		}
		snippet := results[i].Chunk.Content
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		cmd.Printf("      %s\n", snippet)
		cmd.Println()
	}
	return nil
}
