package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"rss_relay/internal/model"
)

const (
	// MaxAttachments is the number of media files attached to an entry.
	MaxAttachments = 5

	downloadTimeout    = 10 * time.Second
	maxAttachmentBytes = 25 * 1024 * 1024
)

var allowedExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"mp4": true, "mov": true, "avi": true,
}

// Extension returns the lowercased extension of a media URL's path and
// whether it is one the chat endpoint accepts as an attachment.
func Extension(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	return ext, allowedExtensions[ext]
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AttachmentClient returns a copy of base that keeps its transport but uses
// the fixed attachment download timeout instead of base's own.
func AttachmentClient(base *http.Client) *http.Client {
	c := *base
	c.Timeout = downloadTimeout
	return &c
}

// Downloader fetches media files for attachment.
type Downloader struct {
	client HTTPClient
	log    *slog.Logger
}

// NewDownloader creates a Downloader with the given HTTP client.
func NewDownloader(client HTTPClient, log *slog.Logger) *Downloader {
	return &Downloader{client: client, log: log}
}

// Download fetches the first MaxAttachments media URLs with an allowed
// extension. Files that fail to download are skipped.
func (d *Downloader) Download(ctx context.Context, urls []string) []model.Attachment {
	var atts []model.Attachment
	n := 0
	for _, u := range urls {
		ext, ok := Extension(u)
		if !ok {
			d.log.Debug("skip media", "url", u, "reason", "extension")
			continue
		}
		n++
		if n > MaxAttachments {
			break
		}

		data, err := d.fetch(ctx, u)
		if err != nil {
			d.log.Warn("download media", "url", u, "error", err)
			continue
		}
		name := fmt.Sprintf("media_%d.%s", n, ext)
		atts = append(atts, model.Attachment{Filename: name, Data: data})
		d.log.Info("prepared attachment", "file", name, "bytes", len(data))
	}
	return atts
}

func (d *Downloader) fetch(ctx context.Context, u string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
