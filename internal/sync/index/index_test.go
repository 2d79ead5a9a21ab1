package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIndex_PutGetRemove(t *testing.T) {
	idx := New()
	idx.Put("a/b.txt", 100)
	idx.Put("c.txt", 200)
	idx.Put("a/b.txt", 300)

	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", idx.Len())
	}
	entry, ok := idx.Get("a/b.txt")
	if !ok || entry.LastModified != 300 || entry.Path != "a/b.txt" {
		t.Errorf("Get(a/b.txt) = %+v, %v", entry, ok)
	}

	idx.Remove("a/b.txt")
	if _, ok := idx.Get("a/b.txt"); ok {
		t.Error("entry still present after Remove")
	}
	idx.Remove("missing")
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
}

func TestIndex_PathsSorted(t *testing.T) {
	idx := New()
	for _, p := range []string{"z", "a/b", "m", "a"} {
		idx.Put(p, 1)
	}
	got := strings.Join(idx.Paths(), ",")
	if got != "a,a/b,m,z" {
		t.Errorf("Paths() = %s", got)
	}
	entries := idx.Entries()
	if entries[0].Path != "a" || entries[3].Path != "z" {
		t.Errorf("Entries() not sorted: %+v", entries)
	}
}

func TestFileStore_LoadMissingIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "zsync.xml"))
	idx, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, want 0", idx.Len())
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "zsync.xml")
	store := NewFileStore(path)
	ctx := context.Background()

	idx := New()
	idx.Put("a/b/report.txt", 1700000000123)
	idx.Put("onlyfile.dat", 42)
	if err := store.Save(ctx, idx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `<entry path="a/b/report.txt" lastModified="1700000000123"></entry>`) {
		t.Errorf("unexpected XML:\n%s", data)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", loaded.Len())
	}
	if e, _ := loaded.Get("a/b/report.txt"); e.LastModified != 1700000000123 {
		t.Errorf("LastModified = %d", e.LastModified)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zsync.xml")
	if err := os.WriteFile(path, []byte("<index><entry"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}

func TestDB_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	empty, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("fresh DB Len() = %d", empty.Len())
	}

	idx := New()
	idx.Put("a.txt", 1)
	idx.Put("b/c.txt", 2)
	if err := db.Save(ctx, idx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	idx.Remove("a.txt")
	idx.Put("b/c.txt", 3)
	if err := db.Save(ctx, idx); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", loaded.Len())
	}
	if e, _ := loaded.Get("b/c.txt"); e.LastModified != 3 {
		t.Errorf("LastModified = %d, want 3", e.LastModified)
	}
}

func TestOpenStore_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	xmlStore, err := OpenStore(filepath.Join(dir, "zsync.xml"))
	if err != nil {
		t.Fatalf("OpenStore(xml) error = %v", err)
	}
	if _, ok := xmlStore.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", xmlStore)
	}

	dbStore, err := OpenStore(filepath.Join(dir, "zsync.db"))
	if err != nil {
		t.Fatalf("OpenStore(db) error = %v", err)
	}
	t.Cleanup(func() { dbStore.Close() })
	if _, ok := dbStore.(*DB); !ok {
		t.Errorf("expected *DB, got %T", dbStore)
	}
}
