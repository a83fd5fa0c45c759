package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campusevents/internal/adapters/storage"
	domain "campusevents/internal/domain/session"
)

// SQLStore implements Store on the client_session table (SQLite or Postgres).
type SQLStore struct {
	db      storage.SQLDB
	dialect storage.Dialect
	ttl     time.Duration
	now     func() time.Time
}

// NewSQLStore creates a SQLStore. A ttl of zero keeps sessions until cleared.
// PRE: InitDB has been run against db
func NewSQLStore(db storage.SQLDB, dialect storage.Dialect, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, ttl: ttl, now: time.Now}
}

// Get retrieves the session for sid.
// PRE: sid is non-empty
// POST: Returns the zero Session when no row exists or the row has been idle longer
// than the ttl; a live row has its expiry extended
func (s *SQLStore) Get(ctx context.Context, sid string) (domain.Session, error) {
	query := storage.Rebind(s.dialect, "SELECT token, role, user_id, updated_at FROM client_session WHERE sid = ?")
	var value domain.Session
	var updatedAt string
	err := s.db.QueryRowContext(ctx, query, sid).Scan(&value.Token, &value.Role, &value.UserID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, nil
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if s.expired(updatedAt) {
		return domain.Session{}, s.Clear(ctx, sid)
	}
	if err := s.touch(ctx, sid); err != nil {
		return domain.Session{}, err
	}
	return value, nil
}

// touch moves the expiry of sid forward so active sessions stay alive, matching
// the sliding expiry of the Redis store.
func (s *SQLStore) touch(ctx context.Context, sid string) error {
	if s.ttl <= 0 {
		return nil
	}
	query := storage.Rebind(s.dialect, "UPDATE client_session SET updated_at = ? WHERE sid = ?")
	if _, err := s.db.ExecContext(ctx, query, s.now().UTC().Format(time.RFC3339Nano), sid); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *SQLStore) expired(updatedAt string) bool {
	if s.ttl <= 0 {
		return false
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return true
	}
	return s.now().Sub(t) > s.ttl
}

// Set writes token, role and user id for sid in a single upsert.
// POST: all three fields reflect value
func (s *SQLStore) Set(ctx context.Context, sid string, value domain.Session) error {
	query := storage.Rebind(s.dialect, `INSERT INTO client_session (sid, token, role, user_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sid) DO UPDATE SET
			token=excluded.token, role=excluded.role, user_id=excluded.user_id, updated_at=excluded.updated_at`)
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, query, sid, value.Token, value.Role, value.UserID, updatedAt); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Clear deletes the row for sid, removing all three fields together.
func (s *SQLStore) Clear(ctx context.Context, sid string) error {
	query := storage.Rebind(s.dialect, "DELETE FROM client_session WHERE sid = ?")
	if _, err := s.db.ExecContext(ctx, query, sid); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Healthy runs a trivial query against the database.
func (s *SQLStore) Healthy(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
