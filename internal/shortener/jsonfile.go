package shortener

import (
	"context"

	"rss_relay/internal/keystore"
)

// JSONFile stores the mappings as a {code: url} JSON object.
type JSONFile struct {
	file *keystore.File[map[string]string]
}

// NewJSONFile returns a Store backed by the file at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{file: keystore.New[map[string]string](path)}
}

// LoadMappings reads the table from disk.
func (j *JSONFile) LoadMappings(_ context.Context) (map[string]string, error) {
	return j.file.Load()
}

// SaveMappings rewrites the file with mappings.
func (j *JSONFile) SaveMappings(_ context.Context, mappings map[string]string) error {
	return j.file.Save(mappings)
}

var _ Store = (*JSONFile)(nil)
