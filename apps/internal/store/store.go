// Package store persists generated numbers in a sqlite database shared by
// the sample applications.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoRows reports that a dataset holds no values yet.
var ErrNoRows = errors.New("store: dataset is empty")

const schema = `
CREATE TABLE IF NOT EXISTS numbers (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset    TEXT NOT NULL,
	value      INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS numbers_dataset ON numbers(dataset, id);
`

// Store is a sqlite-backed number store. It is safe for concurrent use;
// sqlx's connection pool serializes access.
type Store struct {
	db *sqlx.DB
}

// Open connects to the sqlite database at path, creating it and the
// schema if needed.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Save appends value to the named dataset.
func (s *Store) Save(dataset string, value int) error {
	_, err := s.db.Exec(
		`INSERT INTO numbers (dataset, value, created_at) VALUES (?, ?, ?)`,
		dataset, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving to dataset %q: %w", dataset, err)
	}
	return nil
}

// Latest returns the most recently saved value in the named dataset.
func (s *Store) Latest(dataset string) (int, error) {
	var value int
	err := s.db.Get(&value,
		`SELECT value FROM numbers WHERE dataset = ? ORDER BY id DESC LIMIT 1`,
		dataset,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("dataset %q: %w", dataset, ErrNoRows)
	}
	if err != nil {
		return 0, fmt.Errorf("reading dataset %q: %w", dataset, err)
	}
	return value, nil
}

// Count returns how many values the named dataset holds.
func (s *Store) Count(dataset string) (int, error) {
	var n int
	err := s.db.Get(&n, `SELECT COUNT(*) FROM numbers WHERE dataset = ?`, dataset)
	if err != nil {
		return 0, fmt.Errorf("counting dataset %q: %w", dataset, err)
	}
	return n, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
