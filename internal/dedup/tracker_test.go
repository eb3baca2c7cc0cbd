package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrackerRecordAndSeen(t *testing.T) {
	ctx := context.Background()
	tr := New(ctx, NewJSONFile(filepath.Join(t.TempDir(), "sent.json")), discardLogger())

	if tr.Seen("a") {
		t.Fatal("empty tracker must not report ids as seen")
	}
	tr.Record("a")
	tr.Record("a")
	tr.Record("b")

	for _, id := range []string{"a", "b"} {
		if !tr.Seen(id) {
			t.Errorf("expected %q to be seen", id)
		}
	}
	if diff := cmp.Diff(2, tr.Len()); diff != "" {
		t.Errorf("Len() mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackerSurvivesReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sent.json")

	tr := New(ctx, NewJSONFile(path), discardLogger())
	tr.Record("aHR0cHM6Ly9leGFtcGxlLmNvbS8x")
	tr.Record("aHR0cHM6Ly9leGFtcGxlLmNvbS8y")
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	reloaded := New(ctx, NewJSONFile(path), discardLogger())
	for _, id := range []string{"aHR0cHM6Ly9leGFtcGxlLmNvbS8x", "aHR0cHM6Ly9leGFtcGxlLmNvbS8y"} {
		if !reloaded.Seen(id) {
			t.Errorf("expected %q to be seen after reload", id)
		}
	}
}

func TestFlushFileFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sent.json")

	tr := New(ctx, NewJSONFile(path), discardLogger())
	tr.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	tr.Record("b")
	tr.Record("a")
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"sent_items":   []any{"a", "b"},
		"last_updated": "2024-05-01T12:30:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("file content mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackerToleratesBadFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
	}{
		{name: "missing file"},
		{name: "malformed json", content: ptr("{{{")},
		{name: "wrong shape", content: ptr(`{"sent_items": "nope"}`)},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o600); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
			tr := New(ctx, NewJSONFile(path), discardLogger())
			if diff := cmp.Diff(0, tr.Len()); diff != "" {
				t.Errorf("case %d: expected empty tracker (-want +got):\n%s", i, diff)
			}
			tr.Record("x")
			if err := tr.Flush(ctx); err != nil {
				t.Fatalf("flush after bad load: %v", err)
			}
		})
	}
}

type failingBackend struct{}

func (failingBackend) LoadSentItems(context.Context) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func (failingBackend) SaveSentItems(context.Context, []string, time.Time) error {
	return errors.New("disk on fire")
}

func TestFlushReportsBackendError(t *testing.T) {
	ctx := context.Background()
	tr := New(ctx, failingBackend{}, discardLogger())
	tr.Record("a")
	if err := tr.Flush(ctx); err == nil {
		t.Fatal("expected flush error, got nil")
	}
	if !tr.Seen("a") {
		t.Error("in-memory state must stay authoritative after a failed flush")
	}
}

func ptr(s string) *string { return &s }
