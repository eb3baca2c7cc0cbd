package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"

	"rss_relay/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	gotUA      string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.gotUA = req.Header.Get("User-Agent")
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestFetch(t *testing.T) {
	xml := loadFixture(t, "testdata/sample.xml")

	tests := []struct {
		name       string
		transport  *mockTransport
		wantTitles []string
		wantErr    bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantTitles: []string{
				"Kubernetes 1.32 Released",
				"Sponsored: Cloud Credits",
				"Notes without a link",
			},
		},
		{
			name:       "empty channel",
			transport:  &mockTransport{body: "<rss><channel></channel></rss>", statusCode: 200},
			wantTitles: nil,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			entries, err := f.Fetch(context.Background(), "https://example.com/rss")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var gotTitles []string
			for _, e := range entries {
				gotTitles = append(gotTitles, e.Title)
			}
			if diff := cmp.Diff(tt.wantTitles, gotTitles); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(userAgent, tt.transport.gotUA); diff != "" {
				t.Errorf("user agent mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchEntryFields(t *testing.T) {
	f := New(&mockTransport{body: loadFixture(t, "testdata/sample.xml"), statusCode: 200})
	entries, err := f.Fetch(context.Background(), "https://example.com/rss")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := model.Entry{
		Title:   "Kubernetes 1.32 Released",
		Link:    "https://news.example.com/posts/k8s-132",
		Summary: `<p>The <b>new</b> release is out.</p><img src="https://cdn.example.com/k8s.png">`,
	}
	if diff := cmp.Diff(want, entries[0]); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
	if entries[2].Link != "" {
		t.Errorf("expected linkless entry, got link %q", entries[2].Link)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
		want model.Entry
	}{
		{
			name: "description preferred",
			item: &gofeed.Item{Title: " T ", Link: "https://a", Description: "desc", Content: "content"},
			want: model.Entry{Title: "T", Link: "https://a", Summary: "desc"},
		},
		{
			name: "content fallback",
			item: &gofeed.Item{Title: "T", Content: "content"},
			want: model.Entry{Title: "T", Summary: "content"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Normalize(tt.item)); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestItemID(t *testing.T) {
	tests := []struct {
		name  string
		entry model.Entry
		want  string
	}{
		{
			name:  "link encoded",
			entry: model.Entry{Title: "ignored", Link: "https://example.com/post-1"},
			want:  "aHR0cHM6Ly9leGFtcGxlLmNvbS9wb3N0LTE=",
		},
		{
			name:  "title fallback",
			entry: model.Entry{Title: "Hello"},
			want:  "SGVsbG8=",
		},
		{
			name:  "same link same id regardless of title",
			entry: model.Entry{Title: "other", Link: "https://example.com/post-1"},
			want:  "aHR0cHM6Ly9leGFtcGxlLmNvbS9wb3N0LTE=",
		},
		{
			name:  "empty entry",
			entry: model.Entry{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ItemID(tt.entry)); diff != "" {
				t.Errorf("ItemID() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
