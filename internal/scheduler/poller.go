// Package scheduler runs the feed polling cycle on a timer.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rss_relay/internal/chunk"
	"rss_relay/internal/dedup"
	"rss_relay/internal/fetcher"
	"rss_relay/internal/filter"
	"rss_relay/internal/metrics"
	"rss_relay/internal/model"
)

// Fetcher downloads the feed entries.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]model.Entry, error)
}

// Transformer converts an entry body into message content.
type Transformer interface {
	Transform(body string) model.Content
}

// Downloader fetches the media attached to an entry.
type Downloader interface {
	Download(ctx context.Context, urls []string) []model.Attachment
}

// Deliverer sends the chunks of one entry.
type Deliverer interface {
	Deliver(ctx context.Context, chunks []string, atts []model.Attachment) bool
}

// Config holds the polling parameters.
type Config struct {
	FeedURL    string
	Interval   time.Duration
	MaxRetries int
	Rules      []filter.Rule
}

// Poller checks the feed and delivers unseen entries.
type Poller struct {
	cfg         Config
	fetcher     Fetcher
	tracker     *dedup.Tracker
	transformer Transformer
	downloader  Downloader
	deliverer   Deliverer
	metrics     *metrics.Metrics
	log         *slog.Logger

	// sleep waits for d and reports false if ctx ended first.
	sleep func(ctx context.Context, d time.Duration) bool

	runMu sync.Mutex
}

// New creates a Poller.
func New(cfg Config, f Fetcher, tracker *dedup.Tracker, tr Transformer, dl Downloader, d Deliverer, m *metrics.Metrics, log *slog.Logger) *Poller {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Poller{
		cfg:         cfg,
		fetcher:     f,
		tracker:     tracker,
		transformer: tr,
		downloader:  dl,
		deliverer:   d,
		metrics:     m,
		log:         log,
		sleep:       sleepCtx,
	}
}

// Run checks the feed immediately and then every interval until ctx is
// cancelled. A cycle in progress when ctx is cancelled runs to completion.
func (p *Poller) Run(ctx context.Context) {
	p.CheckAndSend(context.WithoutCancel(ctx))

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CheckAndSend(context.WithoutCancel(ctx))
		}
	}
}

// CheckAndSend runs one polling cycle and returns the number of delivered
// entries. Cycles never overlap.
func (p *Poller) CheckAndSend(ctx context.Context) int {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.log.Info("checking feed", "url", p.cfg.FeedURL)

	entries, err := p.fetcher.Fetch(ctx, p.cfg.FeedURL)
	if err != nil {
		p.metrics.FeedFetch(metrics.StatusError)
		p.log.Error("fetch feed", "url", p.cfg.FeedURL, "error", err)
		return 0
	}
	p.metrics.FeedFetch(metrics.StatusOK)

	if len(entries) == 0 {
		p.log.Info("feed has no entries")
		return 0
	}

	delivered, added := 0, false
	for _, entry := range entries {
		id := fetcher.ItemID(entry)
		if p.tracker.Seen(id) {
			continue
		}

		if rule, ok := filter.Match(entry, p.cfg.Rules); ok {
			p.log.Info("filtered entry", "title", entry.Title, "keyword", rule.Keyword)
			p.metrics.Entry(metrics.ResultFiltered)
			p.tracker.Record(id)
			added = true
			continue
		}

		if !p.process(ctx, entry) {
			p.metrics.Entry(metrics.ResultFailed)
			p.log.Error("deliver entry", "title", entry.Title, "attempts", p.cfg.MaxRetries)
			continue
		}
		p.metrics.Entry(metrics.ResultDelivered)
		p.log.Info("delivered entry", "title", entry.Title)
		p.tracker.Record(id)
		added = true
		delivered++
	}

	if added {
		if err := p.tracker.Flush(ctx); err != nil {
			p.log.Error("save sent items", "error", err)
		}
	}

	if delivered > 0 {
		p.log.Info("cycle complete", "delivered", delivered)
	} else {
		p.log.Info("no new entries to deliver")
	}
	return delivered
}

// process transforms, chunks and delivers one entry, retrying with
// exponential backoff.
func (p *Poller) process(ctx context.Context, entry model.Entry) bool {
	content := p.transformer.Transform(entry.Summary)
	chunks := chunk.Split(content.Text)
	atts := p.downloader.Download(ctx, content.MediaURLs)

	for attempt := range p.cfg.MaxRetries {
		if p.deliverer.Deliver(ctx, chunks, atts) {
			return true
		}
		if attempt == p.cfg.MaxRetries-1 {
			break
		}
		delay := backoff(attempt)
		p.log.Warn("delivery failed, retrying",
			"title", entry.Title,
			"attempt", attempt+1,
			"max_retries", p.cfg.MaxRetries,
			"delay", delay)
		if !p.sleep(ctx, delay) {
			return false
		}
	}
	return false
}

// maxBackoffExp bounds the retry delay at 2^maxBackoffExp seconds.
const maxBackoffExp = 10

// backoff returns the delay after the given failed attempt: 2^attempt
// seconds, capped.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<min(attempt, maxBackoffExp)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
