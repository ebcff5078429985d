package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ShardMode selects how job ownership is decided across processes.
type ShardMode string

const (
	// ShardModeLocal owns every job; shard count is cosmetic.
	ShardModeLocal ShardMode = "local"
	// ShardModeDistributed owns a job iff its hash maps to this shard id.
	ShardModeDistributed ShardMode = "distributed"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Shard     ShardConfig     `toml:"shard"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Jobs      JobsConfig      `toml:"jobs"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// DatabaseConfig identifies the SQLite database backing the job store.
// URL accepts "sqlite://<path>", a bare file path, or "sqlite://:memory:".
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// ShardConfig controls which jobs this process owns.
// In distributed mode every process in the fleet must agree on
// total_shards and carry a distinct shard_id; ownership is derived from a
// stable hash, never leased or negotiated.
type ShardConfig struct {
	Mode        ShardMode `toml:"mode"`         // "local" (default) or "distributed"
	ShardID     int       `toml:"shard_id"`     // this process's shard, 0-based
	TotalShards int       `toml:"total_shards"` // fleet size, >= 1
}

// SchedulerConfig carries engine-level tuning.
type SchedulerConfig struct {
	// TickIntervalSecs is reserved for dense-tick engine variants; the
	// per-job loops are event-driven and do not consume it.
	TickIntervalSecs int `toml:"tick_interval_secs"`
	// HeartbeatSecs is how often the engine logs its active loop count.
	HeartbeatSecs int `toml:"heartbeat_secs"`
}

// JobsConfig contains configuration for seed job definitions
type JobsConfig struct {
	DefinitionsDir string `toml:"definitions_dir"` // Directory containing job definition files (TOML)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in horarium.toml; technical
// parameters are hardcoded for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Database: DatabaseConfig{
			URL: "sqlite://jobs.db",
		},
		Shard: ShardConfig{
			Mode:        ShardModeLocal,
			ShardID:     0,
			TotalShards: 1,
		},
		Scheduler: SchedulerConfig{
			TickIntervalSecs: 1,
			HeartbeatSecs:    60,
		},
		Jobs: JobsConfig{
			DefinitionsDir: "./job-definitions",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override
// earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// A .env file in the working directory supplies environment variables
	// without overwriting ones already set.
	_ = godotenv.Load()

	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// The sharding and database variables use their contract names (no prefix)
// so a fleet can be configured identically regardless of binary; ambient
// settings use the HORARIUM_ prefix.
func applyEnvOverrides(config *Config) {
	// Sharding configuration
	if mode := os.Getenv("SHARD_MODE"); mode != "" {
		config.Shard.Mode = ShardMode(strings.ToLower(strings.TrimSpace(mode)))
	}
	if shardID := os.Getenv("SHARD_ID"); shardID != "" {
		if id, err := strconv.Atoi(shardID); err == nil {
			config.Shard.ShardID = id
		}
	}
	if totalShards := os.Getenv("TOTAL_SHARDS"); totalShards != "" {
		if n, err := strconv.Atoi(totalShards); err == nil {
			config.Shard.TotalShards = n
		}
	}

	// Database configuration
	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}

	// Scheduler configuration
	if tick := os.Getenv("TICK_INTERVAL_SECS"); tick != "" {
		if t, err := strconv.Atoi(tick); err == nil && t > 0 {
			config.Scheduler.TickIntervalSecs = t
		}
	}

	// Server configuration
	if port := os.Getenv("HORARIUM_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HORARIUM_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Jobs configuration
	if dir := os.Getenv("HORARIUM_JOBS_DEFINITIONS_DIR"); dir != "" {
		config.Jobs.DefinitionsDir = dir
	}

	// Logging configuration
	if level := os.Getenv("HORARIUM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HORARIUM_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string, logLevel string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// Validate checks the configuration for fatal startup errors.
func (c *Config) Validate() error {
	switch c.Shard.Mode {
	case ShardModeLocal, ShardModeDistributed:
	default:
		return fmt.Errorf("invalid shard mode %q: must be %q or %q", c.Shard.Mode, ShardModeLocal, ShardModeDistributed)
	}

	if c.Shard.TotalShards < 1 {
		return fmt.Errorf("total_shards must be positive, got %d", c.Shard.TotalShards)
	}

	if c.Shard.Mode == ShardModeDistributed {
		if c.Shard.ShardID < 0 || c.Shard.ShardID >= c.Shard.TotalShards {
			return fmt.Errorf("shard_id must be in [0, %d), got %d", c.Shard.TotalShards, c.Shard.ShardID)
		}
	}

	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("database url must not be empty")
	}

	return nil
}
