package mocks

import (
	"context"

	"github.com/dl-alexandre/zsync/internal/sync/index"
)

// MockStore keeps the index in memory. Saved is a copy, so later changes to
// the run's index do not leak into it.
type MockStore struct {
	Saved   *index.Index
	Saves   int
	LoadErr error
	SaveErr error
}

// NewMockStore creates a store holding idx as if a previous run had saved it.
func NewMockStore(idx *index.Index) *MockStore {
	return &MockStore{Saved: copyIndex(idx)}
}

func copyIndex(idx *index.Index) *index.Index {
	out := index.New()
	if idx != nil {
		for _, e := range idx.Entries() {
			out.Put(e.Path, e.LastModified)
		}
	}
	return out
}

func (s *MockStore) Load(ctx context.Context) (*index.Index, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return copyIndex(s.Saved), nil
}

func (s *MockStore) Save(ctx context.Context, idx *index.Index) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Saves++
	s.Saved = copyIndex(idx)
	return nil
}

func (s *MockStore) Close() error     { return nil }
func (s *MockStore) Location() string { return "memory" }
