// Package index owns the hybrid search index: the SQLite schema, its
// connection lifecycle, and the indexer that projects notes onto it.
package index

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB holds the two handles on the index database: one writable connection
// used by the indexer and link synchronizer, and one read-only connection
// used by the search engine. Reads through the read handle never block on
// an in-flight write thanks to WAL mode plus the busy timeout.
type DB struct {
	writer *sql.DB
	reader *sql.DB
}

const readBusyTimeoutMs = 5000

// Open opens or creates the index database at path and applies the schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	// file: URI form handles paths with spaces and query params.
	escaped := strings.ReplaceAll(path, " ", "%20")
	writer, err := sql.Open("sqlite",
		"file:"+escaped+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// A single writer owns the file; extra writable connections would only
	// trade SQLITE_BUSY errors back and forth.
	writer.SetMaxOpenConns(1)

	if _, err := writer.Exec(schemaSQL); err != nil {
		writer.Close()
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}

	reader, err := sql.Open("sqlite",
		fmt.Sprintf("file:%s?mode=ro&_pragma=foreign_keys(on)&_pragma=busy_timeout(%d)", escaped, readBusyTimeoutMs))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open index read handle: %w", err)
	}

	return &DB{writer: writer, reader: reader}, nil
}

// OpenMemory opens an in-memory index for tests. Both handles share one
// connection, so reads observe writes immediately.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(on)")
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}
	return &DB{writer: conn, reader: conn}, nil
}

// Writer returns the writable connection.
func (db *DB) Writer() *sql.DB { return db.writer }

// Reader returns the read-only connection.
func (db *DB) Reader() *sql.DB { return db.reader }

// Close releases both connections.
func (db *DB) Close() error {
	var first error
	if db.reader != db.writer {
		if err := db.reader.Close(); err != nil {
			first = err
		}
	}
	if err := db.writer.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
