package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SqliteBackend struct {
	db *sql.DB
}

// NewSqliteBackend creates a new SQLite backend with the specified database path and WAL mode setting
func NewSqliteBackend(dbPath string, walMode bool) (Backend, error) {
	connStr := dbPath
	if walMode {
		connStr += "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000"
	} else {
		connStr += "?_synchronous=FULL&_cache_size=1000"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to ping database")
	}

	backend := &SqliteBackend{db: db}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to initialize schema")
	}

	return backend, nil
}

// initSchema creates the necessary tables for the database
func (s *SqliteBackend) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS details (
		name TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		height INTEGER NOT NULL,
		weight INTEGER NOT NULL,
		types TEXT NOT NULL, -- JSON array stored as text
		image_url TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_details_fetched_at ON details(fetched_at);
	`)
	return err
}

// PutDetails upserts details in one transaction
func (s *SqliteBackend) PutDetails(ctx context.Context, details []pokemon.Detail) error {
	return s.put(ctx, entriesFor(details))
}

// PutDetail upserts detail under key. display_name keeps detail.Name.
func (s *SqliteBackend) PutDetail(ctx context.Context, key string, detail pokemon.Detail) error {
	return s.put(ctx, []entry{{key: Key(key), detail: detail}})
}

func (s *SqliteBackend) put(ctx context.Context, entries []entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO details (name, display_name, height, weight, types, image_url, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			height = excluded.height,
			weight = excluded.weight,
			types = excluded.types,
			image_url = excluded.image_url,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to prepare statement")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		d := e.detail
		types := d.Types
		if types == nil {
			types = []string{}
		}
		typesJSON, err := json.Marshal(types)
		if err != nil {
			return fmt.Errorf("failed to marshal types for %s: %w", d.Name, err)
		}

		if _, err := stmt.ExecContext(ctx, e.key, d.Name, d.Height, d.Weight, string(typesJSON), d.ImageURL, now); err != nil {
			return errors.Wrapf(err, errors.ErrCodeStorageTransaction, "failed to store detail %s", d.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to commit details")
	}
	return nil
}

// GetDetail retrieves one cached detail by name
func (s *SqliteBackend) GetDetail(ctx context.Context, name string) (*pokemon.Detail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT display_name, height, weight, types, image_url
		FROM details
		WHERE name = ?
	`, Key(name))

	var d pokemon.Detail
	var typesJSON string
	err := row.Scan(&d.Name, &d.Height, &d.Weight, &typesJSON, &d.ImageURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Detail not cached
		}
		return nil, fmt.Errorf("failed to scan detail: %w", err)
	}

	if err := json.Unmarshal([]byte(typesJSON), &d.Types); err != nil {
		return nil, fmt.Errorf("failed to unmarshal types: %w", err)
	}

	return &d, nil
}

// GetStatistics returns the number of cached details and per-type counts
func (s *SqliteBackend) GetStatistics(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT types FROM details`)
	if err != nil {
		return nil, fmt.Errorf("failed to query details: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{"details": 0}
	for rows.Next() {
		var typesJSON string
		if err := rows.Scan(&typesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan types: %w", err)
		}
		stats["details"]++

		var types []string
		if err := json.Unmarshal([]byte(typesJSON), &types); err != nil {
			return nil, fmt.Errorf("failed to unmarshal types: %w", err)
		}
		for _, t := range types {
			if t != "" {
				stats["type_"+t]++
			}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (s *SqliteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
