package core

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackingStore is a durable BackingStore over a single
// (cid TEXT PRIMARY KEY, bytes BLOB) table. It is a durable cache, not a
// transaction log: there is no rollback or compare-and-swap API.
type SQLiteBackingStore struct {
	db *sql.DB
}

// OpenSQLiteBackingStore opens (creating if absent) a SQLite database at
// path, applies WAL pragmas, and ensures the backing table exists. The
// connection pool is capped to a single writer, since SQLite itself only
// supports one writer at a time.
func OpenSQLiteBackingStore(path string) (*SQLiteBackingStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite backing store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite backing store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyBackingPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applyBackingSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteBackingStore{db: db}, nil
}

func applyBackingPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	return nil
}

func applyBackingSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS content (
	cid   TEXT PRIMARY KEY,
	bytes BLOB NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply backing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (b *SQLiteBackingStore) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns the bytes stored for cid, or found=false if absent. I/O
// errors surface through err rather than panicking, so the caller can log
// and treat the value as absent.
func (b *SQLiteBackingStore) Get(c CID) (data []byte, found bool, err error) {
	row := b.db.QueryRow(`SELECT bytes FROM content WHERE cid = ?`, string(c))
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query backing store: %w", err)
	}
	return data, true, nil
}

// Put writes cid/data, replacing any prior value for the same CID (which,
// by the content-address invariant, would be identical bytes).
func (b *SQLiteBackingStore) Put(c CID, data []byte) error {
	_, err := b.db.Exec(`INSERT OR REPLACE INTO content (cid, bytes) VALUES (?, ?)`, string(c), data)
	if err != nil {
		return fmt.Errorf("write backing store: %w", err)
	}
	return nil
}

// Keys returns every CID resident in the backing table.
func (b *SQLiteBackingStore) Keys() ([]CID, error) {
	rows, err := b.db.Query(`SELECT cid FROM content`)
	if err != nil {
		return nil, fmt.Errorf("query backing store keys: %w", err)
	}
	defer rows.Close()

	var keys []CID
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan backing store key: %w", err)
		}
		keys = append(keys, CID(k))
	}
	return keys, rows.Err()
}
