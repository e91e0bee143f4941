package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// SessionStore records per-visit rows in player_sessions. The caller is
// responsible for opening at most one session per player at a time; the
// store itself only guarantees that Close targets the most recent open
// row.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store over the shared connection
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Open inserts a new open session for a player
func (s *SessionStore) Open(ctx context.Context, playerName string) error {
	query := fmt.Sprintf(
		`INSERT INTO player_sessions (player_name, join_time) VALUES (?, %s)`,
		s.db.dialect.Now())
	if _, err := s.db.exec(ctx, query, playerName); err != nil {
		return fmt.Errorf("opening session for %s: %w", playerName, err)
	}
	return nil
}

// Close stamps the player's most recent open session with a quit time
// and the measured duration in milliseconds. A close without a matching
// open session is logged and ignored; quit events can arrive for
// players whose join was never seen.
func (s *SessionStore) Close(ctx context.Context, playerName string, durationMS int64) error {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var id int64
	err := s.db.queryRow(ctx,
		`SELECT id FROM player_sessions
		 WHERE player_name = ? AND quit_time IS NULL
		 ORDER BY join_time DESC LIMIT 1`,
		playerName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("No open session found for %s, skipping close", playerName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("finding open session for %s: %w", playerName, err)
	}

	query := fmt.Sprintf(
		`UPDATE player_sessions SET quit_time = %s, session_duration = ? WHERE id = ?`,
		s.db.dialect.Now())
	if _, err := s.db.exec(ctx, query, durationMS, id); err != nil {
		return fmt.Errorf("closing session for %s: %w", playerName, err)
	}
	return nil
}

// CloseAllOpen closes every open session, computing each duration from
// its join time. Used by the crash-recovery sweep at startup and by the
// shutdown path for sessions whose quit was never delivered. Returns
// the number of sessions closed.
func (s *SessionStore) CloseAllOpen(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(
		`UPDATE player_sessions SET session_duration = %s, quit_time = %s WHERE quit_time IS NULL`,
		s.db.dialect.OpenDurationMS("join_time"), s.db.dialect.Now())
	result, err := s.db.exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("closing open sessions: %w", err)
	}
	closed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting closed sessions: %w", err)
	}
	return closed, nil
}

// CountTotal returns the number of sessions ever recorded
func (s *SessionStore) CountTotal(ctx context.Context) (int64, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var count int64
	err := s.db.queryRow(ctx, `SELECT COUNT(*) FROM player_sessions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return count, nil
}

// CountActive returns the number of currently open sessions
func (s *SessionStore) CountActive(ctx context.Context) (int64, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var count int64
	err := s.db.queryRow(ctx,
		`SELECT COUNT(*) FROM player_sessions WHERE quit_time IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active sessions: %w", err)
	}
	return count, nil
}
