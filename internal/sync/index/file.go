package index

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the index in a human-readable XML file:
//
//	<index>
//	  <entry path="a/b/report.txt" lastModified="1700000000000"/>
//	</index>
type FileStore struct {
	path string
}

type xmlIndex struct {
	XMLName xml.Name   `xml:"index"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlEntry struct {
	Path         string `xml:"path,attr"`
	LastModified int64  `xml:"lastModified,attr"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Location() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var doc xmlIndex
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse index file %s: %w", s.path, err)
	}

	idx := New()
	for _, e := range doc.Entries {
		idx.Put(e.Path, e.LastModified)
	}
	return idx, nil
}

// Save writes the index atomically: a temp file in the same directory is
// renamed over the target.
func (s *FileStore) Save(ctx context.Context, idx *Index) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := xmlIndex{}
	for _, e := range idx.Entries() {
		doc.Entries = append(doc.Entries, xmlEntry{Path: e.Path, LastModified: e.LastModified})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write index file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
