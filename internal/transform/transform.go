// Package transform turns an entry's HTML body into chat message text.
package transform

import (
	"log/slog"
	"regexp"
	"strings"

	"rss_relay/internal/model"
)

// Marker is prepended to every message.
const Marker = "📰 "

// Shortener allocates short codes for long URLs.
type Shortener interface {
	Shorten(longURL string) (string, error)
}

var urlRe = regexp.MustCompile(`https?://[^\s)\]}>]+`)

// trailingPunct is sentence punctuation that is not treated as part of a URL.
const trailingPunct = ".,;:!?'\""

// Transformer converts entry bodies into delivery content.
type Transformer struct {
	shortener Shortener
	domain    string
	log       *slog.Logger
}

// New creates a Transformer. Link shortening is disabled when shortener is nil.
func New(shortener Shortener, domain string, log *slog.Logger) *Transformer {
	return &Transformer{
		shortener: shortener,
		domain:    strings.TrimRight(domain, "/"),
		log:       log,
	}
}

// Transform extracts media from body, converts its markup and rewrites the
// links of the resulting text into short links.
func (t *Transformer) Transform(body string) model.Content {
	var media []string
	text := Marker
	if body != "" {
		media = ExtractMedia(body)
		text += ToMarkdown(body)
	}
	return model.Content{
		Text:      t.ShortenLinks(text),
		MediaURLs: media,
	}
}

// ShortenLinks replaces every absolute http(s) URL in text with its short
// form. URLs that fail to shorten are kept as they are.
func (t *Transformer) ShortenLinks(text string) string {
	if t.shortener == nil {
		return text
	}
	return urlRe.ReplaceAllStringFunc(text, func(match string) string {
		u := strings.TrimRight(match, trailingPunct)
		tail := match[len(u):]
		if t.domain != "" && strings.HasPrefix(u, t.domain+"/") {
			return match
		}
		code, err := t.shortener.Shorten(u)
		if err != nil {
			t.log.Warn("shorten link", "url", u, "error", err)
			return match
		}
		short := t.domain + "/" + code
		t.log.Debug("shortened link", "url", u, "short", short)
		return short + tail
	})
}
