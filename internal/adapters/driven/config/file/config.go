// Package file provides the TOML configuration store and a watcher
// that reports external edits so the application can hot-swap the
// embedding provider.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Config is the typed application configuration.
type Config struct {
	DataDir   string          `toml:"data_dir"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Cache     CacheConfig     `toml:"cache"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

// ChunkingConfig controls the document chunker.
type ChunkingConfig struct {
	ChunkSize int `toml:"chunk_size"`
	Overlap   int `toml:"overlap"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	BatchSize  int    `toml:"batch_size"`
}

// CacheConfig controls the expiring cache.
type CacheConfig struct {
	TTLHours             int   `toml:"ttl_hours"`
	MaxBytes             int64 `toml:"max_bytes"`
	CompressionThreshold int   `toml:"compression_threshold"`
}

// SchedulerConfig controls background maintenance.
type SchedulerConfig struct {
	Enabled             bool `toml:"enabled"`
	CacheSweepMinutes   int  `toml:"cache_sweep_minutes"`
	RefreshCheckMinutes int  `toml:"refresh_check_minutes"`
	StaleDays           int  `toml:"stale_days"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Embedding: EmbeddingConfig{
			Provider: "ollama",
		},
		Cache: CacheConfig{
			TTLHours:             int(domain.DefaultCacheTTL.Hours()),
			MaxBytes:             domain.DefaultCacheMaxBytes,
			CompressionThreshold: domain.DefaultCompressionThreshold,
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			CacheSweepMinutes:   10,
			RefreshCheckMinutes: 60,
			StaleDays:           30,
		},
	}
}

// SchedulerDomainConfig translates the file section into the domain
// scheduler configuration.
func (c Config) SchedulerDomainConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = c.Scheduler.Enabled
	if c.Scheduler.CacheSweepMinutes > 0 {
		cfg.TaskConfigs[domain.TaskIDCacheSweep] = domain.TaskConfig{
			Enabled:  true,
			Interval: time.Duration(c.Scheduler.CacheSweepMinutes) * time.Minute,
		}
	}
	if c.Scheduler.RefreshCheckMinutes > 0 {
		cfg.TaskConfigs[domain.TaskIDRefreshCheck] = domain.TaskConfig{
			Enabled:  true,
			Interval: time.Duration(c.Scheduler.RefreshCheckMinutes) * time.Minute,
		}
	}
	return cfg
}

// Store loads and persists the configuration file.
type Store struct {
	mu       sync.RWMutex
	filePath string
	config   Config
}

// NewStore creates a TOML config store. If configDir is empty,
// defaults to ~/.lexrag/config.toml. A missing file yields defaults.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".lexrag")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(configDir, "config.toml"),
		config:   Default(),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Update applies fn to the configuration and persists the result.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.config)
	return s.save()
}

// Save persists the current configuration to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *Store) save() error {
	data, err := toml.Marshal(s.config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	// Write with restricted permissions, the file may hold an API key
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file. A missing file resets
// to defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.config = Default()
			return nil
		}
		return err
	}

	config := Default()
	if err := toml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	s.config = config
	return nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}
