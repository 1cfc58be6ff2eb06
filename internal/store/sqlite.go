package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the profile record store.
const schema = `
CREATE TABLE IF NOT EXISTS records (
    context     TEXT NOT NULL,
    identity    TEXT NOT NULL,
    kind        TEXT NOT NULL,
    payload     BLOB NOT NULL,
    tag         BLOB NOT NULL,
    created_ns  INTEGER NOT NULL,
    updated_ns  INTEGER NOT NULL,
    PRIMARY KEY (context, identity, kind)
);

CREATE INDEX IF NOT EXISTS idx_records_identity ON records(context, identity);
`

// SQLiteBackend stores records in a local SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path with secure file
// permissions and applies the schema.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Get returns the record for key, or (nil, nil) when absent.
func (b *SQLiteBackend) Get(key Key) (*Record, error) {
	rec := &Record{Key: key}
	err := b.db.QueryRow(`
		SELECT payload, tag, created_ns, updated_ns
		FROM records WHERE context = ? AND identity = ? AND kind = ?`,
		key.Context, key.Identity, string(key.Kind),
	).Scan(&rec.Payload, &rec.Tag, &rec.CreatedAtNs, &rec.UpdatedAtNs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Put stores or replaces the record. The single upsert statement is
// atomic under SQLite's WAL journal: a crash mid-write leaves the
// previous row intact. The original creation timestamp survives
// replacement.
func (b *SQLiteBackend) Put(rec *Record) error {
	if !rec.Key.Valid() {
		return ErrIncompleteKey
	}
	now := time.Now().UnixNano()
	_, err := b.db.Exec(`
		INSERT INTO records (context, identity, kind, payload, tag, created_ns, updated_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(context, identity, kind) DO UPDATE SET
			payload = excluded.payload,
			tag = excluded.tag,
			updated_ns = excluded.updated_ns`,
		rec.Key.Context, rec.Key.Identity, string(rec.Key.Kind), rec.Payload, rec.Tag, now, now,
	)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Delete removes one record.
func (b *SQLiteBackend) Delete(key Key) error {
	_, err := b.db.Exec(`DELETE FROM records WHERE context = ? AND identity = ? AND kind = ?`,
		key.Context, key.Identity, string(key.Kind))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// DeleteScope removes every record in the scope: one identity, a whole
// context, or everything.
func (b *SQLiteBackend) DeleteScope(scope Scope) error {
	var err error
	switch {
	case scope.Context == "" && scope.Identity == "":
		_, err = b.db.Exec(`DELETE FROM records`)
	case scope.Identity == "":
		_, err = b.db.Exec(`DELETE FROM records WHERE context = ?`, scope.Context)
	default:
		_, err = b.db.Exec(`DELETE FROM records WHERE context = ? AND identity = ?`,
			scope.Context, scope.Identity)
	}
	if err != nil {
		return fmt.Errorf("delete scope: %w", err)
	}
	return nil
}
