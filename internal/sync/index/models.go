package index

import "sort"

// Entry is the last synchronized state of one file. LastModified is in
// milliseconds since the Unix epoch.
type Entry struct {
	Path         string
	LastModified int64
}

// Index maps relative slash-separated paths to their last synchronized
// state. It is mutated by a single writer during a run and is not safe for
// concurrent mutation.
type Index struct {
	entries map[string]Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Get returns the entry for path, if any.
func (i *Index) Get(path string) (Entry, bool) {
	entry, ok := i.entries[path]
	return entry, ok
}

// Put inserts or replaces the entry for path.
func (i *Index) Put(path string, lastModified int64) {
	i.entries[path] = Entry{Path: path, LastModified: lastModified}
}

// Remove deletes the entry for path.
func (i *Index) Remove(path string) {
	delete(i.entries, path)
}

func (i *Index) Len() int {
	return len(i.entries)
}

// Paths returns every indexed path in sorted order.
func (i *Index) Paths() []string {
	paths := make([]string, 0, len(i.entries))
	for p := range i.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns every entry sorted by path.
func (i *Index) Entries() []Entry {
	entries := make([]Entry, 0, len(i.entries))
	for _, p := range i.Paths() {
		entries = append(entries, i.entries[p])
	}
	return entries
}
