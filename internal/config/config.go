// Package config provides server settings loaded from an optional YAML file
// and environment variables. Precedence is flags > environment > file >
// defaults; flags are applied by the command layer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/finsearch/supersearch-mcp/internal/cache"
	"github.com/finsearch/supersearch-mcp/internal/retrieval"
	"github.com/finsearch/supersearch-mcp/internal/search"
)

// Config holds all server settings.
type Config struct {
	TranscriptsDir     string `yaml:"transcripts_dir"`
	CacheFile          string `yaml:"cache_file"`
	SafeResultLimit    int    `yaml:"safe_result_limit"`
	PreviewCharLimit   int    `yaml:"preview_char_limit"`
	TokenWarnThreshold int    `yaml:"token_warn_threshold"`
	Watch              bool   `yaml:"watch"`
	WatchDebounceMs    int    `yaml:"watch_debounce_ms"`
}

// WatchDebounce returns the watch debounce interval.
func (c Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		CacheFile:          cache.DefaultCacheFile,
		SafeResultLimit:    search.DefaultSafeLimit,
		PreviewCharLimit:   retrieval.DefaultPreviewCharLimit,
		TokenWarnThreshold: retrieval.DefaultTokenWarnThreshold,
		WatchDebounceMs:    500,
	}
}

// Load builds a Config from defaults, an optional YAML file, and environment
// variables. envFile, when non-empty, is loaded into the environment first;
// otherwise a .env in the working directory is loaded if present.
func Load(configFile, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	if v := os.Getenv("SUPERSEARCH_DIR"); v != "" {
		cfg.TranscriptsDir = v
	}
	if v := os.Getenv("SUPERSEARCH_CACHE_FILE"); v != "" {
		cfg.CacheFile = v
	}
	var err error
	if cfg.SafeResultLimit, err = intEnv("SUPERSEARCH_SAFE_LIMIT", cfg.SafeResultLimit); err != nil {
		return Config{}, err
	}
	if cfg.PreviewCharLimit, err = intEnv("SUPERSEARCH_PREVIEW_LIMIT", cfg.PreviewCharLimit); err != nil {
		return Config{}, err
	}
	if cfg.TokenWarnThreshold, err = intEnv("SUPERSEARCH_TOKEN_WARN", cfg.TokenWarnThreshold); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("SUPERSEARCH_WATCH"); v != "" {
		cfg.Watch = v == "true" || v == "1"
	}

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return n, nil
}
