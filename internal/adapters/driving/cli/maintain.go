package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/logger"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run background maintenance until interrupted",
	Long: `Runs the maintenance scheduler: periodic cache sweeps and document
refresh checks. The config file is watched while running, so editing
the embedding provider there hot-swaps it without a restart.`,
	RunE: runMaintain,
}

func init() {
	rootCmd.AddCommand(maintainCmd)
}

func runMaintain(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hot-swap the provider when the config file changes externally.
	go func() {
		err := configStore.Watch(ctx, func(cfg file.Config) {
			id := cfg.Embedding.Provider
			if id == "" || id == embeddingSvc.ActiveProvider() {
				return
			}
			if err := embeddingSvc.SwitchProvider(ctx, id); err != nil {
				logger.Warn("config change: provider switch to %s failed: %v", id, err)
			}
		})
		if err != nil && !isContextEnd(err) {
			logger.Warn("config watcher stopped: %v", err)
		}
	}()

	cmd.Println("Maintenance running; press Ctrl-C to stop.")
	if err := maintenanceSvc.Start(ctx); err != nil && !isContextEnd(err) {
		return err
	}
	return nil
}

// isContextEnd reports whether err is plain cancellation.
func isContextEnd(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
