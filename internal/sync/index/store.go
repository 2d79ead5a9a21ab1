package index

import (
	"context"
	"path/filepath"
	"strings"
)

// Store persists an Index between runs.
type Store interface {
	// Load returns the stored index, or an empty one when nothing was saved yet.
	Load(ctx context.Context) (*Index, error)
	Save(ctx context.Context, idx *Index) error
	Close() error
	Location() string
}

// OpenStore picks a backend from the file extension: .db/.sqlite/.sqlite3
// use SQLite, anything else the XML file format.
func OpenStore(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return Open(path)
	default:
		return NewFileStore(path), nil
	}
}
