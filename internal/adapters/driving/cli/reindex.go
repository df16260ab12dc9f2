package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex [document-id...]",
	Short: "Re-chunk and re-embed stored documents",
	Long: `Regenerates chunks and embeddings for documents already in the
store, replacing the previous ones and advancing the lineage version.
Useful after switching the embedding provider or changing chunking
settings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := ingestService.Reindex(cmd.Context(), id); err != nil {
				return fmt.Errorf("reindexing %s: %w", id, err)
			}
			cmd.Printf("Reindexed %s.\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
