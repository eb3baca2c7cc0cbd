// Package webhook posts messages to a Discord-style webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"rss_relay/internal/model"
)

// PlaceholderURL is the sample value shipped in configuration templates.
const PlaceholderURL = "YOUR_DISCORD_WEBHOOK_URL_HERE"

const maxErrorBody = 512

// ErrNotConfigured is returned when the webhook URL is empty or still the
// placeholder.
var ErrNotConfigured = errors.New("webhook url not configured")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type payload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

// Client sends posts to a single webhook.
type Client struct {
	client   HTTPClient
	url      string
	username string
}

// New creates a Client posting to url as username.
func New(client HTTPClient, url, username string) *Client {
	return &Client{client: client, url: url, username: username}
}

// Send posts the message. Posts without attachments are sent as JSON,
// posts with attachments as multipart form data with one file part each.
func (c *Client) Send(ctx context.Context, post model.Post) error {
	if c.url == "" || c.url == PlaceholderURL {
		return ErrNotConfigured
	}

	var (
		body        bytes.Buffer
		contentType string
	)
	if len(post.Attachments) == 0 {
		if err := json.NewEncoder(&body).Encode(payload{Content: post.Text, Username: c.username}); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		contentType = "application/json"
	} else {
		ct, err := c.writeMultipart(&body, post)
		if err != nil {
			return fmt.Errorf("encode multipart: %w", err)
		}
		contentType = ct
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, excerpt)
	}
	return nil
}

func (c *Client) writeMultipart(w io.Writer, post model.Post) (string, error) {
	mw := multipart.NewWriter(w)
	if err := mw.WriteField("content", post.Text); err != nil {
		return "", err
	}
	if err := mw.WriteField("username", c.username); err != nil {
		return "", err
	}
	for _, a := range post.Attachments {
		part, err := mw.CreateFormFile("file", a.Filename)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}
