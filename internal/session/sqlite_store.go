package session

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// SQLiteStore is the default durable Store: a single local database file
// that survives restarts, shared by every handler in the process.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a sqlite-backed store and ensures its schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS role_sessions (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create role_sessions table: %v", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put writes the value, replacing any previous record under the key.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO role_sessions (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, key, string(value), time.Now().Add(ttl).UTC())
	if err != nil {
		return fmt.Errorf("failed to write session key %s: %v", key, err)
	}
	return nil
}

// Get returns the stored value or nil when the key is absent. Expiry is
// not enforced here; the manager expires lazily and Cleanup sweeps the
// table in the background.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM role_sessions WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session key %s: %v", key, err)
	}
	return []byte(value), nil
}

// Delete removes a key. Deleting an absent key succeeds.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM role_sessions WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete session key %s: %v", key, err)
	}
	return nil
}

// Cleanup removes rows whose TTL elapsed without ever being read again.
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM role_sessions WHERE expires_at < ?", time.Now().UTC())
	return err
}

// StartCleanupRoutine sweeps expired rows periodically until the context
// is cancelled.
func (s *SQLiteStore) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Cleanup(ctx); err != nil {
					log.Printf("Session cleanup failed: %v", err)
				}
			}
		}
	}()
}
