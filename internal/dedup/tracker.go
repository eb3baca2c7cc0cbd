// Package dedup tracks which feed entries have already been delivered.
package dedup

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Backend persists the set of delivered item identifiers.
type Backend interface {
	LoadSentItems(ctx context.Context) ([]string, error)
	SaveSentItems(ctx context.Context, ids []string, updated time.Time) error
}

// Tracker is the in-memory set of delivered identifiers mirrored to a Backend.
// Identifiers are never removed.
type Tracker struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time

	mu  sync.Mutex
	ids map[string]struct{}
}

// New loads the persisted set from backend. A missing or unreadable store
// starts the tracker empty.
func New(ctx context.Context, backend Backend, log *slog.Logger) *Tracker {
	t := &Tracker{
		backend: backend,
		log:     log,
		now:     time.Now,
		ids:     make(map[string]struct{}),
	}

	ids, err := backend.LoadSentItems(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("no sent items yet, starting empty")
	case err != nil:
		log.Warn("load sent items, starting empty", "error", err)
	default:
		for _, id := range ids {
			t.ids[id] = struct{}{}
		}
		log.Debug("loaded sent items", "count", len(t.ids))
	}
	return t
}

// Seen reports whether id has been recorded.
func (t *Tracker) Seen(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// Record marks id as delivered. Recording an id twice is a no-op.
func (t *Tracker) Record(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids[id] = struct{}{}
}

// Len returns the number of recorded identifiers.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// Flush persists the full set with the current timestamp.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	ids := make([]string, 0, len(t.ids))
	for id := range t.ids {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	slices.Sort(ids)
	return t.backend.SaveSentItems(ctx, ids, t.now())
}
