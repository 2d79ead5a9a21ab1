package index

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is a SQLite-backed Store.
type DB struct {
	db   *sql.DB
	path string
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db, path: path}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (d *DB) Location() string {
	return d.path
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS index_entries (
	path TEXT PRIMARY KEY,
	last_modified INTEGER NOT NULL
);
`

func (d *DB) Load(ctx context.Context) (idx *Index, err error) {
	rows, err := d.db.QueryContext(ctx, `SELECT path, last_modified FROM index_entries`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	idx = New()
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Path, &entry.LastModified); err != nil {
			return nil, err
		}
		idx.Put(entry.Path, entry.LastModified)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Save replaces the stored entries with idx in a single transaction.
func (d *DB) Save(ctx context.Context, idx *Index) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM index_entries`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO index_entries (path, last_modified) VALUES (?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, entry := range idx.Entries() {
		if _, err := stmt.ExecContext(ctx, entry.Path, entry.LastModified); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
