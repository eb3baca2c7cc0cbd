// Package shortener maps long URLs to short codes and serves the redirects.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"math/rand/v2"
	"sync"

	"rss_relay/internal/metrics"
)

const (
	// CodeLength is the number of characters in a short code.
	CodeLength = 4

	alphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxAttempts = 10000
)

var (
	// ErrCodeSpaceExhausted is returned when no free code was found.
	ErrCodeSpaceExhausted = errors.New("no free short code")
	// ErrEmptyURL is returned when shortening an empty URL.
	ErrEmptyURL = errors.New("empty url")
)

// Store persists the code to URL table.
type Store interface {
	LoadMappings(ctx context.Context) (map[string]string, error)
	SaveMappings(ctx context.Context, mappings map[string]string) error
}

// Service owns the bidirectional code table. Allocations are serialized;
// lookups only take a read lock and never wait on persistence.
type Service struct {
	store    Store
	metrics  *metrics.Metrics
	log      *slog.Logger
	generate func() string

	allocMu sync.Mutex

	mu    sync.RWMutex
	codes map[string]string // code -> long URL
	urls  map[string]string // long URL -> code
}

// New loads the persisted table from store. A missing or unreadable store
// starts the service empty.
func New(ctx context.Context, store Store, m *metrics.Metrics, log *slog.Logger) *Service {
	s := &Service{
		store:    store,
		metrics:  m,
		log:      log,
		generate: randomCode,
		codes:    make(map[string]string),
		urls:     make(map[string]string),
	}

	mappings, err := store.LoadMappings(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("no url mappings yet, starting empty")
	case err != nil:
		log.Warn("load url mappings, starting empty", "error", err)
	default:
		for code, u := range mappings {
			s.codes[code] = u
			s.urls[u] = code
		}
		log.Info("loaded url mappings", "count", len(s.codes))
	}
	return s
}

// Shorten returns the code for longURL, allocating one on first use.
func (s *Service) Shorten(longURL string) (string, error) {
	if longURL == "" {
		return "", ErrEmptyURL
	}
	if code, ok := s.lookupURL(longURL); ok {
		return code, nil
	}

	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	// Another caller may have allocated it while we waited.
	if code, ok := s.lookupURL(longURL); ok {
		return code, nil
	}

	code, err := s.freeCode()
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	snapshot := maps.Clone(s.codes)
	s.mu.RUnlock()
	snapshot[code] = longURL

	if err := s.store.SaveMappings(context.Background(), snapshot); err != nil {
		s.log.Error("save url mappings", "error", err)
	}

	s.mu.Lock()
	s.codes[code] = longURL
	s.urls[longURL] = code
	s.mu.Unlock()

	s.metrics.ShortLinkCreated()
	s.log.Debug("created short link", "code", code, "url", longURL)
	return code, nil
}

// Resolve returns the long URL for code.
func (s *Service) Resolve(code string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.codes[code]
	return u, ok
}

// Len returns the number of mappings.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

func (s *Service) lookupURL(longURL string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.urls[longURL]
	return code, ok
}

// freeCode must be called with allocMu held.
func (s *Service) freeCode() (string, error) {
	for range maxAttempts {
		code := s.generate()
		if _, taken := s.Resolve(code); !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", maxAttempts, ErrCodeSpaceExhausted)
}

func randomCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
