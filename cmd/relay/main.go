package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"rss_relay/internal/config"
	"rss_relay/internal/dedup"
	"rss_relay/internal/delivery"
	"rss_relay/internal/fetcher"
	"rss_relay/internal/filter"
	"rss_relay/internal/httpclient"
	"rss_relay/internal/metrics"
	"rss_relay/internal/scheduler"
	"rss_relay/internal/shortener"
	"rss_relay/internal/storage"
	"rss_relay/internal/telegram"
	"rss_relay/internal/transform"
	"rss_relay/internal/webhook"
)

const (
	sendPace        = time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rules, err := filter.Compile(cfg.FilterKeywords)
	if err != nil {
		log.Error("compile filter keywords", "error", err)
		os.Exit(1)
	}

	client, err := httpclient.New(cfg.Proxy, cfg.RequestTimeout)
	if err != nil {
		log.Error("create http client", "error", err)
		os.Exit(1)
	}

	var (
		sentItems dedup.Backend
		mappings  shortener.Store
	)
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Error("create data directory", "path", dir, "error", err)
				os.Exit(1)
			}
		}
		store, err := storage.NewSQLite(cfg.DatabasePath)
		if err != nil {
			log.Error("open database", "path", cfg.DatabasePath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
		sentItems, mappings = store, store

		switch last, err := store.LastUpdated(ctx); {
		case err != nil:
			log.Warn("read last sent items update", "error", err)
		case last != nil:
			log.Info("sent items last updated", "at", last.Format(time.RFC3339))
		}
	default:
		sentItems = dedup.NewJSONFile(cfg.SentItemsPath)
		mappings = shortener.NewJSONFile(cfg.URLMappingsPath)
	}

	m := metrics.New()

	var (
		sh  transform.Shortener
		srv *shortener.Server
	)
	if cfg.Shortener.Enabled {
		svc := shortener.New(ctx, mappings, m, log)
		srv = shortener.NewServer(cfg.Shortener.Addr(), svc, m, log)
		if err := srv.Start(); err != nil {
			log.Error("start shortener server", "error", err)
			os.Exit(1)
		}
		sh = svc
	}

	var sender delivery.Sender
	switch cfg.DeliveryTarget {
	case config.TargetTelegram:
		tg, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Error("create telegram sender", "error", err)
			os.Exit(1)
		}
		sender = tg
	default:
		sender = webhook.New(client, cfg.WebhookURL, cfg.SenderName)
	}

	tracker := dedup.New(ctx, sentItems, log)
	poller := scheduler.New(scheduler.Config{
		FeedURL:    cfg.FeedURL,
		Interval:   cfg.CheckInterval,
		MaxRetries: cfg.MaxRetries,
		Rules:      rules,
	},
		fetcher.New(client),
		tracker,
		transform.New(sh, cfg.Shortener.Domain, log),
		delivery.NewDownloader(delivery.AttachmentClient(client), log),
		delivery.NewEngine(sender, sendPace, m, log),
		m,
		log,
	)

	logStartup(log, cfg, tracker.Len())

	poller.Run(ctx)

	if srv != nil {
		stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Stop(stopCtx); err != nil {
			log.Error("stop shortener server", "error", err)
		}
	}

	log.Info("relay stopped")
}

func logStartup(log *slog.Logger, cfg *config.Config, seen int) {
	log.Info("starting relay",
		"feed", cfg.FeedURL,
		"target", cfg.DeliveryTarget,
		"interval", cfg.CheckInterval,
		"storage", cfg.StorageBackend,
		"sent_items", seen)

	if len(cfg.FilterKeywords) > 0 {
		log.Info("keyword filter enabled", "keywords", strings.Join(cfg.FilterKeywords, ", "))
	} else {
		log.Info("keyword filter disabled")
	}

	if cfg.Proxy.Enabled {
		log.Info("proxy enabled",
			"http", httpclient.Mask(cfg.Proxy.HTTP),
			"https", httpclient.Mask(cfg.Proxy.HTTPS),
			"auth", cfg.Proxy.Username != "")
	} else {
		log.Info("proxy disabled")
	}

	if cfg.Shortener.Enabled {
		log.Info("url shortener enabled", "addr", cfg.Shortener.Addr(), "domain", cfg.Shortener.Domain)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
