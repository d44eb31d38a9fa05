package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for murmur.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Discord  DiscordConfig  `json:"discord"`
	Provider ProviderConfig `json:"provider"`
	Storage  StorageConfig  `json:"storage"`
	Memory   MemoryConfig   `json:"memory"`
	Feeds    FeedsConfig    `json:"feeds"`
	Caps     CapsConfig     `json:"capabilities"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel    string  `json:"logLevel"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxChunkLen int     `json:"maxChunkLen"`
}

type DiscordConfig struct {
	Token             string `json:"token"`
	AdminUserID       string `json:"adminUserId"`
	ResponseChannelID string `json:"responseChannelId"`
}

type ProviderConfig struct {
	APIBase    string `json:"apiBase"`
	EmbedModel string `json:"embedModel"`
}

// StorageConfig selects the persistence backend. "sqlite" uses a local
// database file; "redis" uses the configured key-value store.
type StorageConfig struct {
	Backend   string `json:"backend"` // "sqlite" | "redis"
	DBPath    string `json:"dbPath"`
	RedisHost string `json:"redisHost"`
	RedisPort int    `json:"redisPort"`
}

type MemoryConfig struct {
	HistoryLimit int `json:"historyLimit"` // entries kept per chat
	RecallLimit  int `json:"recallLimit"`  // history entries loaded per turn
	SnippetTopK  int `json:"snippetTopK"`
	MinEmbedLen  int `json:"minEmbedLen"`
}

type FeedsConfig struct {
	Enabled             bool `json:"enabled"`
	PollIntervalMinutes int  `json:"pollIntervalMinutes"`
}

// CapsConfig points at the external capability providers. Empty values fall
// back to per-package defaults.
type CapsConfig struct {
	ImageAPIBase string `json:"imageApiBase"` // SD-WebUI style txt2img endpoint
	CacheAPIBase string `json:"cacheApiBase"`
	CacheAPIKey  string `json:"cacheApiKey"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// DefaultConfigDir returns the default config directory (~/.murmur).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".murmur"
	}
	return filepath.Join(home, ".murmur")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the config file at path, expanding ${VAR} references and
// overlaying well-known environment variables on top of the file values.
func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	ApplyEnv(cfg)
	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// ApplyEnv overlays plain environment variables onto cfg. These take
// precedence over file values so the bot can run from environment alone.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("ADMIN_USER_ID"); v != "" {
		cfg.Discord.AdminUserID = v
	}
	if v := os.Getenv("RESPONSE_CHANNEL_ID"); v != "" {
		cfg.Discord.ResponseChannelID = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.General.Model = strings.TrimSpace(v)
	}
	if v := os.Getenv("OLLAMA_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.General.Temperature = f
		}
	}
	if v := os.Getenv("MAX_RESPONSE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.General.MaxChunkLen = n
		}
	}
	if v := os.Getenv("IMAGE_API_BASE"); v != "" {
		cfg.Caps.ImageAPIBase = v
	}
	if v := os.Getenv("CACHE_API_KEY"); v != "" {
		cfg.Caps.CacheAPIKey = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Storage.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Storage.RedisPort = n
		}
	}
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.Model == "" {
		errs = append(errs, "general.model must not be empty")
	}
	if cfg.General.Temperature < 0 || cfg.General.Temperature > 2 {
		errs = append(errs, "general.temperature must be between 0 and 2")
	}
	if cfg.General.MaxChunkLen < 1 {
		errs = append(errs, "general.maxChunkLen must be >= 1")
	}

	switch cfg.Storage.Backend {
	case "sqlite", "redis":
		// valid
	default:
		errs = append(errs, "storage.backend must be one of: sqlite, redis")
	}
	if cfg.Storage.Backend == "redis" {
		if cfg.Storage.RedisPort < 1 || cfg.Storage.RedisPort > 65535 {
			errs = append(errs, "storage.redisPort must be between 1 and 65535")
		}
	}

	if cfg.Memory.HistoryLimit < 1 {
		errs = append(errs, "memory.historyLimit must be >= 1")
	}
	if cfg.Memory.RecallLimit < 1 {
		errs = append(errs, "memory.recallLimit must be >= 1")
	}
	if cfg.Memory.SnippetTopK < 0 {
		errs = append(errs, "memory.snippetTopK must be >= 0")
	}
	if cfg.Memory.MinEmbedLen < 0 {
		errs = append(errs, "memory.minEmbedLen must be >= 0")
	}

	if cfg.Feeds.Enabled && cfg.Feeds.PollIntervalMinutes < 1 {
		errs = append(errs, "feeds.pollIntervalMinutes must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
