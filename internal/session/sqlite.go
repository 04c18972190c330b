package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kmkrofficial/signature/internal/core"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps activity records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	// a single connection serializes the read-modify-write in Touch
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrating session table: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL,
		email TEXT NOT NULL,
		issuer TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_activity INTEGER NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, rec Record) error {
	query := `
	INSERT OR REPLACE INTO sessions (id, principal_id, email, issuer, created_at, last_activity)
	VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.PrincipalID, rec.Email, rec.Issuer,
		toUnixNano(rec.CreatedAt), toUnixNano(rec.LastActivity))
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	return s.get(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, q queryer, id string) (*Record, error) {
	query := `
	SELECT id, principal_id, email, issuer, created_at, last_activity
	FROM sessions
	WHERE id = ?`

	var rec Record
	var createdAt, lastActivity int64
	err := q.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.PrincipalID, &rec.Email, &rec.Issuer, &createdAt, &lastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	rec.CreatedAt = fromUnixNano(createdAt)
	rec.LastActivity = fromUnixNano(lastActivity)
	return &rec, nil
}

func (s *SQLiteStore) Touch(ctx context.Context, id string, now time.Time, idle time.Duration) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if core.IsExpired(rec.LastActivity, now, idle) {
		return rec, ErrExpired
	}

	rec.LastActivity = later(rec.LastActivity, now)
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET last_activity = ? WHERE id = ?`,
		toUnixNano(rec.LastActivity), id); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session update: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time, idle time.Duration) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, last_activity FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}
	var expired []string
	for rows.Next() {
		var id string
		var lastActivity int64
		if err := rows.Scan(&id, &lastActivity); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if core.IsExpired(fromUnixNano(lastActivity), now, idle) {
			expired = append(expired, id)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}

	var deleted int64
	for _, id := range expired {
		ok, err := s.Delete(ctx, id)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func fromUnixNano(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
