package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mealsuggest"
)

// SQLite is a Store backed by a single SQLite database file. Sessions and
// suggestions are stored as JSON payloads next to the columns the store
// itself needs (ownership, expiry, the cascade FK).
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (or creates) the database at dbPath and initializes the
// schema.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        payload TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        expires_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS suggestions (
        id TEXT PRIMARY KEY,
        session_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        payload TEXT NOT NULL,
        generated_at DATETIME NOT NULL,
        FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS kv (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        expires_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
    CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
    CREATE INDEX IF NOT EXISTS idx_suggestions_session_id ON suggestions(session_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLite) SaveSession(ctx context.Context, sess *mealsuggest.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
        INSERT INTO sessions (id, user_id, payload, created_at, expires_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            user_id = excluded.user_id,
            payload = excluded.payload,
            created_at = excluded.created_at,
            expires_at = excluded.expires_at
    `
	if _, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, string(payload), sess.CreatedAt.UTC(), sess.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, id string) (*mealsuggest.Session, error) {
	var payload string
	var expiresAt time.Time
	query := `SELECT payload, expires_at FROM sessions WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if !s.now().Before(expiresAt) {
		// Expired sessions are invisible; purge opportunistically.
		if _, derr := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); derr != nil {
			return nil, fmt.Errorf("failed to purge expired session: %w", derr)
		}
		return nil, ErrNotFound
	}

	var sess mealsuggest.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// UpdateSession rewrites the session payload but leaves expires_at untouched
// so the remaining TTL is preserved.
func (s *SQLite) UpdateSession(ctx context.Context, sess *mealsuggest.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET payload = ? WHERE id = ?`, string(payload), sess.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLite) SaveSuggestions(ctx context.Context, suggestions []mealsuggest.MealSuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO suggestions (id, session_id, user_id, payload, generated_at)
        VALUES (?, ?, ?, ?, ?)
    `
	for i := range suggestions {
		sug := &suggestions[i]
		payload, err := json.Marshal(sug)
		if err != nil {
			return fmt.Errorf("failed to marshal suggestion %s: %w", sug.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query,
			sug.ID, sug.SessionID, sug.UserID, string(payload), sug.GeneratedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert suggestion %s: %w", sug.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) GetSuggestion(ctx context.Context, id string) (*mealsuggest.MealSuggestion, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM suggestions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion: %w", err)
	}

	var sug mealsuggest.MealSuggestion
	if err := json.Unmarshal([]byte(payload), &sug); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggestion: %w", err)
	}
	return &sug, nil
}

func (s *SQLite) UpdateSuggestion(ctx context.Context, sug *mealsuggest.MealSuggestion) error {
	payload, err := json.Marshal(sug)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET payload = ? WHERE id = ?`, string(payload), sug.ID)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query kv: %w", err)
	}
	if !s.now().Before(expiresAt) {
		return "", false, nil
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `
        INSERT INTO kv (key, value, expires_at)
        VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
    `
	if _, err := s.db.ExecContext(ctx, query, key, value, s.now().Add(ttl).UTC()); err != nil {
		return fmt.Errorf("failed to set kv: %w", err)
	}
	return nil
}
