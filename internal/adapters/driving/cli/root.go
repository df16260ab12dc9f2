// Package cli wires the application services behind a cobra command
// tree. Commands stay thin; all behaviour lives in the core packages.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/embedding"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/mock"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexrag/internal/cache"
	"github.com/custodia-labs/lexrag/internal/chunker"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/services"
	"github.com/custodia-labs/lexrag/internal/events"
	"github.com/custodia-labs/lexrag/internal/logger"
)

var (
	verbose   bool
	configDir string
)

// Wired services, initialised by initServices.
var (
	configStore    *file.Store
	store          *sqlite.Store
	cacheStore     *bolt.CacheStore
	cacheManager   *cache.Manager
	embeddingSvc   *services.EmbeddingService
	ingestService  *services.IngestService
	searchService  *services.SearchService
	maintenanceSvc *services.Scheduler
	eventBus       *events.Bus
)

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Local retrieval store for legal documents",
	Long: `lexrag ingests legal documents into a local store, generates
embeddings with a switchable provider and serves similarity search
over the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initServices(cmd.Context())
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.lexrag)")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// initServices builds the full service graph from configuration.
func initServices(ctx context.Context) error {
	var err error

	configStore, err = file.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	cfg := configStore.Config()

	store, err = sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	cacheStore, err = bolt.NewCacheStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	cacheManager = cache.New(cacheStore, cacheOptions(cfg)...)

	eventBus = events.NewBus()

	provider, err := embedding.NewValidatedProvider(ctx, providerSettings(cfg, cfg.Embedding.Provider))
	if err != nil {
		// Degrade to the deterministic provider so read paths keep
		// working when the configured provider is unreachable.
		logger.Warn("provider %s unavailable (%v), using mock embeddings", cfg.Embedding.Provider, err)
		provider = mock.New(cfg.Embedding.Dimensions)
	}

	factory := func(ctx context.Context, id string) (driven.EmbeddingProvider, error) {
		return embedding.NewValidatedProvider(ctx, providerSettings(configStore.Config(), id))
	}

	embeddingSvc = services.NewEmbeddingService(
		provider,
		factory,
		embedding.SupportedProviders(),
		chunker.New(chunkerOptions(cfg)...),
		eventBus,
	)
	if cfg.Embedding.BatchSize > 0 {
		embeddingSvc.SetBatchSize(cfg.Embedding.BatchSize)
	}

	ingestService = services.NewIngestService(embeddingSvc, store.VectorStore(), store.LineageStore())
	searchService = services.NewSearchService(embeddingSvc, store.VectorStore(), store.LineageStore(), cacheManager)

	maintenanceSvc = services.NewScheduler(
		cfg.SchedulerDomainConfig(), store.SchedulerStore(), cacheManager, store.LineageStore())
	if cfg.Scheduler.StaleDays > 0 {
		maintenanceSvc.SetStaleDays(cfg.Scheduler.StaleDays)
	}

	return nil
}

// closeServices releases everything initServices opened.
func closeServices() {
	if embeddingSvc != nil {
		if err := embeddingSvc.Close(); err != nil {
			logger.Debug("closing embedding service: %v", err)
		}
	}
	if cacheStore != nil {
		if err := cacheStore.Close(); err != nil {
			logger.Debug("closing cache store: %v", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Debug("closing store: %v", err)
		}
	}
}

// providerSettings maps the config file section onto factory settings.
func providerSettings(cfg file.Config, id string) embedding.Settings {
	return embedding.Settings{
		Provider:   id,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	}
}

// chunkerOptions maps the config file section onto chunker options.
func chunkerOptions(cfg file.Config) []chunker.Option {
	var opts []chunker.Option
	if cfg.Chunking.ChunkSize > 0 {
		opts = append(opts, chunker.WithChunkSize(cfg.Chunking.ChunkSize))
	}
	if cfg.Chunking.Overlap > 0 {
		opts = append(opts, chunker.WithOverlap(cfg.Chunking.Overlap))
	}
	return opts
}

// cacheOptions maps the config file section onto cache options.
func cacheOptions(cfg file.Config) []cache.Option {
	var opts []cache.Option
	if cfg.Cache.MaxBytes > 0 {
		opts = append(opts, cache.WithMaxBytes(cfg.Cache.MaxBytes))
	}
	if cfg.Cache.CompressionThreshold > 0 {
		opts = append(opts, cache.WithCompressionThreshold(cfg.Cache.CompressionThreshold))
	}
	if cfg.Cache.TTLHours > 0 {
		opts = append(opts, cache.WithTTL(time.Duration(cfg.Cache.TTLHours)*time.Hour))
	}
	return opts
}
