// Package config provides environment-driven application configuration.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, so DATA_DIR is read from
// GITSCOUT_DATA_DIR.
const EnvPrefix = "gitscout"

// Config holds all environment-based configuration.
type Config struct {
	// DataDir is the root directory for per-repository indexes and blob
	// stores. Env: GITSCOUT_DATA_DIR (default: ~/.gitscout)
	DataDir string `envconfig:"DATA_DIR"`

	// LogLevel is the slog verbosity: debug, info, warn, or error.
	// Env: GITSCOUT_LOG_LEVEL (default: info)
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// EmbeddingProvider forces a provider (openai, jina, local). Empty
	// auto-detects from available API keys.
	// Env: GITSCOUT_EMBEDDING_PROVIDER
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`

	// RankStrategy selects result ranking: step, expdecay, or none.
	// Env: GITSCOUT_RANK_STRATEGY (default: step)
	RankStrategy string `envconfig:"RANK_STRATEGY" default:"step"`

	// RecencyCutoffDays is the age beyond which the step strategy demotes
	// results. Env: GITSCOUT_RECENCY_CUTOFF_DAYS (default: 90)
	RecencyCutoffDays int `envconfig:"RECENCY_CUTOFF_DAYS" default:"90"`

	// StaleMultiplier is the step strategy's demotion factor.
	// Env: GITSCOUT_STALE_MULTIPLIER (default: 0.75)
	StaleMultiplier float64 `envconfig:"STALE_MULTIPLIER" default:"0.75"`

	// HalfLifeDays is the expdecay strategy's half life.
	// Env: GITSCOUT_HALF_LIFE_DAYS (default: 180)
	HalfLifeDays int `envconfig:"HALF_LIFE_DAYS" default:"180"`

	// Workers is the chunking worker pool size. Zero uses NumCPU.
	// Env: GITSCOUT_WORKERS
	Workers int `envconfig:"WORKERS"`

	// ChunkMaxTokens is the per-chunk token budget. Zero uses the chunker
	// default. Env: GITSCOUT_CHUNK_MAX_TOKENS
	ChunkMaxTokens int `envconfig:"CHUNK_MAX_TOKENS"`

	// ChunkOverlapTokens is the window repeated between adjacent chunks.
	// Env: GITSCOUT_CHUNK_OVERLAP_TOKENS
	ChunkOverlapTokens int `envconfig:"CHUNK_OVERLAP_TOKENS"`

	// EmbedBatchSize is the number of texts per upstream embedding call.
	// Env: GITSCOUT_EMBED_BATCH_SIZE
	EmbedBatchSize int `envconfig:"EMBED_BATCH_SIZE"`

	// EmbedRequestsPerMinute caps upstream embedding calls.
	// Env: GITSCOUT_EMBED_REQUESTS_PER_MINUTE
	EmbedRequestsPerMinute int `envconfig:"EMBED_REQUESTS_PER_MINUTE"`
}

// Load reads configuration from the environment and fills in the data
// directory default.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".gitscout")
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info for unknown
// values.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RepoDir returns the per-repository data directory, keyed by a hash of the
// absolute repository path so unrelated checkouts never share state.
func (c Config) RepoDir(repoPath string) string {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		abs = repoPath
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(c.DataDir, "repos", hex.EncodeToString(sum[:6]))
}

// IndexPath returns the SQLite index file for a repository.
func (c Config) IndexPath(repoPath string) string {
	return filepath.Join(c.RepoDir(repoPath), "index.db")
}

// BlobDir returns the blob store directory for a repository.
func (c Config) BlobDir(repoPath string) string {
	return filepath.Join(c.RepoDir(repoPath), "blobs")
}
