package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:    "info",
			Model:       "llama3.2",
			Temperature: 0.6,
			MaxChunkLen: 1500,
		},
		Discord: DiscordConfig{},
		Provider: ProviderConfig{
			APIBase:    "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			Backend:   "sqlite",
			DBPath:    "~/.murmur/murmur.db",
			RedisHost: "127.0.0.1",
			RedisPort: 6379,
		},
		Memory: MemoryConfig{
			HistoryLimit: 20,
			RecallLimit:  10,
			SnippetTopK:  3,
			MinEmbedLen:  30,
		},
		Feeds: FeedsConfig{
			Enabled:             true,
			PollIntervalMinutes: 10,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9097",
		},
	}
}
