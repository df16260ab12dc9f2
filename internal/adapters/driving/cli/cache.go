package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size per partition",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stats, err := cacheManager.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}

		cmd.Printf("Entries: %d\n", stats.Entries)
		cmd.Printf("Total:   %d bytes\n", stats.TotalBytes)

		names := make([]string, 0, len(stats.Partitions))
		for name := range stats.Partitions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("  %-20s %d bytes\n", name, stats.Partitions[name])
		}
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired entries and enforce the quota",
	RunE: func(cmd *cobra.Command, _ []string) error {
		removed, err := cacheManager.ClearExpired(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweeping cache: %w", err)
		}
		if err := cacheManager.EnforceQuota(cmd.Context()); err != nil {
			return fmt.Errorf("enforcing quota: %w", err)
		}
		cmd.Printf("Removed %d expired entries.\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}
