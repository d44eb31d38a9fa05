package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("MURMUR_TEST_VAR", "hello")
	defer os.Unsetenv("MURMUR_TEST_VAR")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set variable", "${MURMUR_TEST_VAR}", "hello"},
		{"set with default", "${MURMUR_TEST_VAR:-fallback}", "hello"},
		{"unset with default", "${MURMUR_TEST_UNSET:-fallback}", "fallback"},
		{"unset without default", "${MURMUR_TEST_UNSET}", "${MURMUR_TEST_UNSET}"},
		{"embedded", "prefix-${MURMUR_TEST_VAR}-suffix", "prefix-hello-suffix"},
		{"no reference", "plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnvVars(tt.input); got != tt.want {
				t.Fatalf("ExpandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.General.Model = "" }},
		{"negative temperature", func(c *Config) { c.General.Temperature = -1 }},
		{"zero chunk length", func(c *Config) { c.General.MaxChunkLen = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "leveldb" }},
		{"bad redis port", func(c *Config) { c.Storage.Backend = "redis"; c.Storage.RedisPort = 0 }},
		{"zero history limit", func(c *Config) { c.Memory.HistoryLimit = 0 }},
		{"zero poll interval", func(c *Config) { c.Feeds.Enabled = true; c.Feeds.PollIntervalMinutes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadAppliesEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
		"general": {"model": "${MURMUR_TEST_MODEL:-llama3.2}"},
		"discord": {"token": "file-token"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	os.Setenv("DISCORD_TOKEN", "env-token")
	os.Setenv("OLLAMA_TEMPERATURE", "0.9")
	defer os.Unsetenv("DISCORD_TOKEN")
	defer os.Unsetenv("OLLAMA_TEMPERATURE")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.General.Model != "llama3.2" {
		t.Fatalf("expected expanded default model, got %q", cfg.General.Model)
	}
	if cfg.Discord.Token != "env-token" {
		t.Fatalf("env must override file token, got %q", cfg.Discord.Token)
	}
	if cfg.General.Temperature != 0.9 {
		t.Fatalf("expected env temperature 0.9, got %v", cfg.General.Temperature)
	}
	// Untouched sections keep defaults.
	if cfg.Memory.HistoryLimit != 20 {
		t.Fatalf("expected default history limit, got %d", cfg.Memory.HistoryLimit)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Defaults()
	cfg.Discord.ResponseChannelID = "12345"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Discord.ResponseChannelID != "12345" {
		t.Fatalf("round trip lost value, got %q", loaded.Discord.ResponseChannelID)
	}
}
