package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"murmur/internal/bus"
	"murmur/internal/capability"
	"murmur/internal/cachelookup"
	"murmur/internal/channel"
	"murmur/internal/config"
	"murmur/internal/dispatch"
	"murmur/internal/domain"
	"murmur/internal/feed"
	"murmur/internal/imagegen"
	"murmur/internal/memory"
	"murmur/internal/metrics"
	"murmur/internal/provider"
	"murmur/internal/summarize"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	// A .env next to the binary covers the environment-only deployment
	// style; missing file is fine.
	_ = godotenv.Load()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "murmur",
		Short:   "Murmur: intent-dispatching chat assistant",
		Long:    "Murmur is a Discord assistant that routes messages to summarization, image generation, cache lookup, and feed watching tools, with short-term and semantic memory.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.murmur/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(flushCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// store is the persistence surface the commands need; both backends satisfy it.
type store interface {
	domain.ConversationStore
	domain.SemanticMemory
	domain.FeedStore
	Flush(ctx context.Context) error
	Close() error
}

func openStore(cfg *config.Config) (store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return memory.NewRedisStore(memory.RedisConfig{
			Host:         cfg.Storage.RedisHost,
			Port:         cfg.Storage.RedisPort,
			HistoryLimit: cfg.Memory.HistoryLimit,
			Logger:       logger,
		}), nil
	default:
		return memory.NewSQLiteStore(memory.SQLiteConfig{
			Path:         cfg.Storage.DBPath,
			HistoryLimit: cfg.Memory.HistoryLimit,
			Logger:       logger,
		})
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Connect to Discord and run the dispatch engine",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setLogLevel(cfg.General.LogLevel)

	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord.token is not set (config file or DISCORD_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)

	memStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer memStore.Close()

	prov := provider.NewOllama(provider.OllamaConfig{
		APIBase:      cfg.Provider.APIBase,
		DefaultModel: cfg.General.Model,
		EmbedModel:   cfg.Provider.EmbedModel,
		Logger:       logger,
	})
	if err := prov.Healthy(ctx); err != nil {
		logger.Warn("model backend unhealthy at startup", "err", err)
	} else {
		logger.Info("model backend healthy", "provider", prov.Name(), "model", cfg.General.Model)
	}

	feedManager, err := feed.NewManager(ctx, memStore, logger)
	if err != nil {
		return fmt.Errorf("feed manager: %w", err)
	}

	videos := summarize.NewYouTube(summarize.YouTubeConfig{
		Provider: prov,
		Model:    cfg.General.Model,
		Logger:   logger,
	})
	pages := summarize.NewWeb(summarize.WebConfig{
		Provider: prov,
		Model:    cfg.General.Model,
		Logger:   logger,
	})
	images := imagegen.New(imagegen.Config{
		APIBase: cfg.Caps.ImageAPIBase,
		Logger:  logger,
	})
	cache := cachelookup.New(cachelookup.Config{
		APIBase:  cfg.Caps.CacheAPIBase,
		APIKey:   cfg.Caps.CacheAPIKey,
		Bus:      messageBus,
		ChunkLen: cfg.General.MaxChunkLen,
		Logger:   logger,
	})

	registry := capability.NewRegistry(logger)
	registry.Register(capability.NewYouTubeSummary(videos, messageBus, cfg.General.MaxChunkLen))
	registry.Register(capability.NewWebSummary(pages, messageBus, cfg.General.MaxChunkLen))
	registry.Register(capability.NewDrawPicture(images, messageBus))
	registry.Register(capability.NewCacheDownload(cache))
	registry.Register(capability.NewCacheTorrent(cache))
	registry.Register(capability.NewWatchFeed(feedManager))
	registry.Register(capability.NewUnwatchFeed(feedManager))
	registry.Register(capability.NewListFeeds(feedManager))

	engine := dispatch.NewEngine(dispatch.Config{
		Provider:          prov,
		Bus:               messageBus,
		Conversations:     memStore,
		Memory:            memStore,
		Registry:          registry,
		Logger:            logger,
		Model:             cfg.General.Model,
		Temperature:       cfg.General.Temperature,
		ChunkLen:          cfg.General.MaxChunkLen,
		AdminUserID:       cfg.Discord.AdminUserID,
		ResponseChannelID: cfg.Discord.ResponseChannelID,
		HistoryLimit:      cfg.Memory.RecallLimit,
		SnippetTopK:       cfg.Memory.SnippetTopK,
		MinEmbedLen:       cfg.Memory.MinEmbedLen,
	})
	go engine.Run(ctx)

	if cfg.Feeds.Enabled {
		if cfg.Discord.ResponseChannelID == "" {
			logger.Warn("feeds enabled but discord.responseChannelId is empty, announcements have nowhere to go")
		}
		poller := feed.NewPoller(feed.PollerConfig{
			Manager:  feedManager,
			Bus:      messageBus,
			Pages:    pages,
			Channel:  "discord",
			ChatID:   cfg.Discord.ResponseChannelID,
			ChunkLen: cfg.General.MaxChunkLen,
			Interval: time.Duration(cfg.Feeds.PollIntervalMinutes) * time.Minute,
			Logger:   logger,
		})
		if err := poller.Start(ctx); err != nil {
			return fmt.Errorf("feed poller: %w", err)
		}
		logger.Info("feed poller started", "interval_minutes", cfg.Feeds.PollIntervalMinutes)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr)
	}

	discord := channel.NewDiscord(channel.DiscordConfig{
		Token:  cfg.Discord.Token,
		Status: "Ask me anything!",
		Logger: logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- discord.Start(ctx, messageBus)
	}()

	logger.Info("gateway started, press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("discord channel: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		// Let the channel close its session before the bus goes away.
		select {
		case <-errCh:
		case <-time.After(10 * time.Second):
			logger.Warn("shutdown timed out")
		}
	}

	messageBus.Close()
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Collector.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "err", err)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and backend health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false, "err", err)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			prov := provider.NewOllama(provider.OllamaConfig{
				APIBase:      cfg.Provider.APIBase,
				DefaultModel: cfg.General.Model,
				EmbedModel:   cfg.Provider.EmbedModel,
				Logger:       logger,
			})
			if err := prov.Healthy(ctx); err != nil {
				logger.Info("provider", "name", prov.Name(), "healthy", false, "err", err)
			} else {
				logger.Info("provider", "name", prov.Name(), "healthy", true)
			}

			memStore, err := openStore(cfg)
			if err != nil {
				logger.Info("storage", "backend", cfg.Storage.Backend, "ok", false, "err", err)
				return nil
			}
			defer memStore.Close()
			if _, err := memStore.ListFeeds(ctx); err != nil {
				logger.Info("storage", "backend", cfg.Storage.Backend, "ok", false, "err", err)
			} else {
				logger.Info("storage", "backend", cfg.Storage.Backend, "ok", true)
			}
			return nil
		},
	}
}

func flushCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Delete all stored history, embeddings, and feed subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to flush without --yes")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			memStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer memStore.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := memStore.Flush(ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			logger.Info("store flushed", "backend", cfg.Storage.Backend)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the flush")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration (token redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			redacted := *cfg
			if redacted.Discord.Token != "" {
				redacted.Discord.Token = "<redacted>"
			}
			if redacted.Caps.CacheAPIKey != "" {
				redacted.Caps.CacheAPIKey = "<redacted>"
			}
			data, _ := json.MarshalIndent(redacted, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the config file for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			logger.Info("config ok", "path", resolveConfigPath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func setLogLevel(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
}
