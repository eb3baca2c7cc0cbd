package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"rss_relay/internal/metrics"
	"rss_relay/internal/shortener"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := newLogger(os.Getenv("LOG_LEVEL"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], log, nil); err != nil {
		log.Error("shortener", "error", err)
		os.Exit(1)
	}
}

// run serves the shortener until ctx is cancelled. ready, when set, is
// called with the bound address once the server accepts connections.
func run(ctx context.Context, args []string, log *slog.Logger, ready func(net.Addr)) error {
	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)
	host := fs.String("host", "localhost", "listen host")
	port := fs.Int("port", 8080, "listen port")
	mappings := fs.String("mappings", envOrDefault("URL_MAPPINGS_PATH", "./data/url_mappings.json"), "path to the url mappings file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *port < 0 || *port > 65535 {
		return fmt.Errorf("port %d out of range", *port)
	}

	m := metrics.New()
	svc := shortener.New(ctx, shortener.NewJSONFile(*mappings), m, log)
	srv := shortener.NewServer(net.JoinHostPort(*host, strconv.Itoa(*port)), svc, m, log)
	if err := srv.Start(); err != nil {
		return err
	}
	if ready != nil {
		ready(srv.Addr())
	}

	<-ctx.Done()

	stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return srv.Stop(stopCtx)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
