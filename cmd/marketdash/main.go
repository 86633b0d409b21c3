package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/config"
	"github.com/shitalnb11/indian-market-dashboard/internal/logger"
	"github.com/shitalnb11/indian-market-dashboard/internal/poller"
	"github.com/shitalnb11/indian-market-dashboard/internal/source"
	"github.com/shitalnb11/indian-market-dashboard/internal/storage"
	"github.com/shitalnb11/indian-market-dashboard/internal/telegram"
	"github.com/shitalnb11/indian-market-dashboard/internal/web"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	if cfg.Signal.ShortWindow >= cfg.Signal.LongWindow {
		logger.Warn("signal.short_window (%d) is not below signal.long_window (%d); crossovers will rarely resolve",
			cfg.Signal.ShortWindow, cfg.Signal.LongWindow)
	}

	var store *storage.Storage
	if cfg.Cache.Enabled {
		store, err = storage.New(cfg.Cache.DBPath, cfg.Cache.RetentionDays)
		if err != nil {
			logger.Fatal("Failed to initialize bar cache: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close bar cache: %v", err)
			}
		}()
	} else {
		logger.Debug("Bar cache disabled")
	}

	var provider source.Provider
	switch cfg.Market.Provider {
	case "stub":
		provider = source.NewStubProvider()
		logger.Info("Using deterministic stub price provider")
	default:
		provider = source.NewYahooProvider()
	}
	if store != nil {
		provider = source.NewCachedProvider(provider, store, cfg.Cache.ServeStale)
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	var webServer *web.Server
	if cfg.Web.Enabled {
		webServer = web.NewServer(cfg.Web.ListenAddr)
	} else {
		logger.Debug("Web dashboard disabled")
	}

	p := poller.New(cfg, provider, store, telegramClient, webServer)

	if telegramClient != nil {
		telegramClient.SetSummaryProvider(p.LatestSummary)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	if webServer != nil {
		go func() {
			if err := webServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Dashboard server failed: %v", err)
			}
		}()
	}

	if err := config.Watch(*configPath, p.Reconfigure); err != nil {
		logger.Warn("Config reloading unavailable: %v", err)
	}

	logger.Info("Starting market dashboard (interval: %v, symbols: %d, windows: %d/%d)",
		cfg.Market.PollInterval,
		len(cfg.Watchlist.Symbols),
		cfg.Signal.ShortWindow,
		cfg.Signal.LongWindow,
	)

	p.Run(ctx)

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Dashboard shutdown failed: %v", err)
		}
	}

	logger.Info("Service stopped")
}
