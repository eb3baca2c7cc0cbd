// Package delivery sends chunked messages with their attachments to the
// configured chat endpoint.
package delivery

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"rss_relay/internal/metrics"
	"rss_relay/internal/model"
)

// Sender posts a single message to the chat endpoint.
type Sender interface {
	Send(ctx context.Context, post model.Post) error
}

// Engine delivers the chunks of an entry in order, pacing consecutive
// sends to respect the endpoint's rate limits.
type Engine struct {
	sender  Sender
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewEngine creates an Engine allowing one send per pace. A zero pace
// disables pacing.
func NewEngine(sender Sender, pace time.Duration, m *metrics.Metrics, log *slog.Logger) *Engine {
	return &Engine{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Every(pace), 1),
		metrics: m,
		log:     log,
	}
}

// Deliver sends every chunk, attaching atts to the first one only. A failed
// chunk does not stop the remaining ones. It reports whether all chunks
// were accepted.
func (e *Engine) Deliver(ctx context.Context, chunks []string, atts []model.Attachment) bool {
	ok := true
	for i, text := range chunks {
		if err := e.limiter.Wait(ctx); err != nil {
			e.log.Warn("delivery interrupted", "chunk", i+1, "total", len(chunks), "error", err)
			return false
		}

		post := model.Post{Text: text}
		if i == 0 {
			post.Attachments = atts
		}

		if err := e.sender.Send(ctx, post); err != nil {
			ok = false
			e.metrics.ChunkSend(metrics.StatusError)
			e.log.Error("send chunk", "chunk", i+1, "total", len(chunks), "error", err)
			e.log.Debug("failed chunk", "chunk", i+1, "text", text)
			continue
		}
		e.metrics.ChunkSend(metrics.StatusOK)
		e.log.Info("sent chunk", "chunk", i+1, "total", len(chunks), "attachments", len(post.Attachments))
	}
	return ok
}
