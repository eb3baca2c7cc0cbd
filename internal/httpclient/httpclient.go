// Package httpclient builds the outbound HTTP client shared by the feed
// fetcher, the attachment downloader and the webhook sender.
package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"rss_relay/internal/config"
)

// New returns a client with the given timeout that routes requests through
// the configured proxy when it is enabled.
func New(proxy config.Proxy, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	if proxy.Enabled {
		httpProxy, err := proxyURL(proxy.HTTP, proxy.Username, proxy.Password)
		if err != nil {
			return nil, fmt.Errorf("http proxy: %w", err)
		}
		httpsProxy, err := proxyURL(proxy.HTTPS, proxy.Username, proxy.Password)
		if err != nil {
			return nil, fmt.Errorf("https proxy: %w", err)
		}
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" {
				return httpsProxy, nil
			}
			return httpProxy, nil
		}
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// proxyURL parses raw and injects the credentials into it. An empty raw
// value yields a nil URL, meaning no proxy for that scheme.
func proxyURL(raw, username, password string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", Mask(raw), err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse %q: missing scheme or host", Mask(raw))
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}
	return u, nil
}

// Mask hides the password of a proxy URL so it can be logged.
func Mask(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
