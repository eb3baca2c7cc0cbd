package dedup

import (
	"context"
	"time"

	"rss_relay/internal/keystore"
)

type sentItems struct {
	SentItems   []string `json:"sent_items"`
	LastUpdated string   `json:"last_updated"`
}

// JSONFile stores the sent items as {"sent_items": [...], "last_updated": "..."}.
type JSONFile struct {
	file *keystore.File[sentItems]
}

// NewJSONFile returns a Backend stored at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{file: keystore.New[sentItems](path)}
}

// LoadSentItems reads the identifiers from disk.
func (j *JSONFile) LoadSentItems(_ context.Context) ([]string, error) {
	doc, err := j.file.Load()
	if err != nil {
		return nil, err
	}
	return doc.SentItems, nil
}

// SaveSentItems rewrites the file with ids and the update time.
func (j *JSONFile) SaveSentItems(_ context.Context, ids []string, updated time.Time) error {
	if ids == nil {
		ids = []string{}
	}
	return j.file.Save(sentItems{
		SentItems:   ids,
		LastUpdated: updated.Format(time.RFC3339),
	})
}

var _ Backend = (*JSONFile)(nil)
