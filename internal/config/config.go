// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rss_relay/internal/filter"
)

// Delivery targets.
const (
	TargetWebhook  = "webhook"
	TargetTelegram = "telegram"
)

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// MaxRetriesLimit is the largest accepted MAX_RETRIES value.
const MaxRetriesLimit = 10

// Config holds the application configuration.
type Config struct {
	FeedURL        string
	DeliveryTarget string
	WebhookURL     string
	SenderName     string
	TelegramToken  string
	TelegramChatID int64

	CheckInterval  time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
	FilterKeywords []string
	LogLevel       string

	StorageBackend  string
	SentItemsPath   string
	URLMappingsPath string
	DatabasePath    string

	Proxy     Proxy
	Shortener Shortener
}

// Proxy describes the optional outbound HTTP proxy.
type Proxy struct {
	Enabled  bool
	HTTP     string
	HTTPS    string
	Username string
	Password string
}

// Shortener describes the in-process URL shortener.
type Shortener struct {
	Enabled bool
	Host    string
	Port    int
	Domain  string
}

// Addr returns the listen address of the shortener server.
func (s Shortener) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		FeedURL:         os.Getenv("FEED_URL"),
		DeliveryTarget:  envOrDefault("DELIVERY_TARGET", TargetWebhook),
		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		SenderName:      envOrDefault("SENDER_NAME", "ZaihuaNews"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		StorageBackend:  envOrDefault("STORAGE_BACKEND", BackendJSON),
		SentItemsPath:   envOrDefault("SENT_ITEMS_PATH", "./data/sent_items.json"),
		URLMappingsPath: envOrDefault("URL_MAPPINGS_PATH", "./data/url_mappings.json"),
		DatabasePath:    envOrDefault("DATABASE_PATH", "./data/relay.db"),
	}

	if cfg.FeedURL == "" {
		return nil, fmt.Errorf("FEED_URL is required")
	}

	switch cfg.DeliveryTarget {
	case TargetWebhook:
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required")
		}
	case TargetTelegram:
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		raw := os.Getenv("TELEGRAM_CHAT_ID")
		if raw == "" {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required")
		}
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	default:
		return nil, fmt.Errorf("unknown DELIVERY_TARGET %q", cfg.DeliveryTarget)
	}

	switch cfg.StorageBackend {
	case BackendJSON, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	interval, err := positiveInt("CHECK_INTERVAL_SECONDS", 600)
	if err != nil {
		return nil, err
	}
	cfg.CheckInterval = time.Duration(interval) * time.Second

	timeout, err := positiveInt("REQUEST_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = time.Duration(timeout) * time.Second

	if cfg.MaxRetries, err = positiveInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.MaxRetries > MaxRetriesLimit {
		return nil, fmt.Errorf("MAX_RETRIES %d exceeds %d", cfg.MaxRetries, MaxRetriesLimit)
	}

	cfg.FilterKeywords = splitList(os.Getenv("FILTER_KEYWORDS"))
	if _, err := filter.Compile(cfg.FilterKeywords); err != nil {
		return nil, fmt.Errorf("invalid FILTER_KEYWORDS: %w", err)
	}

	if cfg.Proxy, err = loadProxy(); err != nil {
		return nil, err
	}
	if cfg.Shortener, err = loadShortener(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadProxy() (Proxy, error) {
	enabled, err := boolEnv("PROXY_ENABLED")
	if err != nil || !enabled {
		return Proxy{}, err
	}
	p := Proxy{
		Enabled:  true,
		HTTP:     os.Getenv("PROXY_HTTP"),
		HTTPS:    os.Getenv("PROXY_HTTPS"),
		Username: os.Getenv("PROXY_USERNAME"),
		Password: os.Getenv("PROXY_PASSWORD"),
	}
	if p.HTTP == "" && p.HTTPS == "" {
		return Proxy{}, fmt.Errorf("PROXY_ENABLED requires PROXY_HTTP or PROXY_HTTPS")
	}
	return p, nil
}

func loadShortener() (Shortener, error) {
	enabled, err := boolEnv("SHORTENER_ENABLED")
	if err != nil {
		return Shortener{}, err
	}
	port, err := positiveInt("SHORTENER_PORT", 8080)
	if err != nil {
		return Shortener{}, err
	}
	if port > 65535 {
		return Shortener{}, fmt.Errorf("SHORTENER_PORT %d out of range", port)
	}
	return Shortener{
		Enabled: enabled,
		Host:    envOrDefault("SHORTENER_HOST", "localhost"),
		Port:    port,
		Domain:  envOrDefault("SHORTENER_DOMAIN", "http://localhost:"+strconv.Itoa(port)),
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func boolEnv(key string) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
