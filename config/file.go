package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the entire config structure of the geokeys service.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Index    IndexConfig    `toml:"index"`
	Encoding EncodingScheme `toml:"encoding"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig has inspection server options.
type ServerConfig struct {
	Port         string `toml:"port"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
	JobWorkers   int    `toml:"job_workers"` // Concurrent background jobs
}

// IndexConfig holds index cache options.
type IndexConfig struct {
	ID         string `toml:"id"`
	ShardLevel int    `toml:"shard_level"`
	DataDir    string `toml:"data_dir"`
}

// LogConfig holds logger options.
type LogConfig struct {
	Level     string `toml:"level"`
	Timestamp bool   `toml:"timestamp"`
	Caller    bool   `toml:"caller"`
}

// DefaultConfig returns the builtin defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			MaxBodyBytes: 10 << 20,
			JobWorkers:   2,
		},
		Index: IndexConfig{
			ID:         "places",
			ShardLevel: 1,
			DataDir:    "./geokeys_data",
		},
		Encoding: DefaultScheme(),
		Log: LogConfig{
			Level:     "info",
			Timestamp: true,
		},
	}
}

// LoadConfig reads a TOML file on top of the builtin defaults. Missing keys
// keep their default value.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's --config flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero values left by a partial config file.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	if c.Server.JobWorkers <= 0 {
		c.Server.JobWorkers = defaults.Server.JobWorkers
	}
	if c.Index.ID == "" {
		c.Index.ID = defaults.Index.ID
	}
	if c.Index.ShardLevel < 0 {
		c.Index.ShardLevel = defaults.Index.ShardLevel
	}
	if c.Index.DataDir == "" {
		c.Index.DataDir = defaults.Index.DataDir
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	c.Encoding.ApplyDefaults()
}

// Validate returns every conflict found in the config.
func (c *Config) Validate() []string {
	var conflicts []string
	if c.Index.ShardLevel > 7 {
		conflicts = append(conflicts, fmt.Sprintf("Invalid shard_level %d (must be between 0 and 7)", c.Index.ShardLevel))
	}
	conflicts = append(conflicts, c.Encoding.Validate()...)
	return conflicts
}
