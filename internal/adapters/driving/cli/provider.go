package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage the embedding provider",
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		active := embeddingSvc.ActiveProvider()
		for _, id := range embeddingSvc.ListProviders() {
			marker := " "
			if id == active {
				marker = "*"
			}
			cmd.Printf("%s %s\n", marker, id)
		}
		return nil
	},
}

var providerTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the active provider with a sample embedding",
	RunE: func(cmd *cobra.Command, _ []string) error {
		result := embeddingSvc.TestProvider(cmd.Context(), "")
		if !result.Success {
			cmd.Printf("Provider %s failed: %s\n", embeddingSvc.ActiveProvider(), result.Error)
			return fmt.Errorf("provider test failed")
		}
		cmd.Printf("Provider %s OK: %d dimensions in %dms\n",
			embeddingSvc.ActiveProvider(), result.Dimensions, result.LatencyMs)
		return nil
	},
}

var providerSwitchCmd = &cobra.Command{
	Use:   "switch [provider]",
	Short: "Switch the active embedding provider",
	Long: `Activates a different embedding provider. The replacement is
validated with a ping before it becomes active; on failure the current
provider stays in place. The choice is persisted to the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := embeddingSvc.SwitchProvider(cmd.Context(), id); err != nil {
			return fmt.Errorf("switching provider: %w", err)
		}

		if err := configStore.Update(func(c *file.Config) {
			c.Embedding.Provider = id
		}); err != nil {
			return fmt.Errorf("persisting provider choice: %w", err)
		}

		cmd.Printf("Active provider is now %s.\n", id)
		return nil
	},
}

func init() {
	providerCmd.AddCommand(providerListCmd)
	providerCmd.AddCommand(providerTestCmd)
	providerCmd.AddCommand(providerSwitchCmd)
	rootCmd.AddCommand(providerCmd)
}
