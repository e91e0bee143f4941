package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionOpenAndClose(t *testing.T) {
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	ctx := context.Background()

	require.NoError(t, sessions.Open(ctx, "steve"))

	active, err := sessions.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	require.NoError(t, sessions.Close(ctx, "steve", 90_000))

	active, err = sessions.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, active)

	var duration int64
	var quitTime sql.NullTime
	require.NoError(t, db.conn.QueryRow(
		`SELECT session_duration, quit_time FROM player_sessions WHERE player_name = 'steve'`).
		Scan(&duration, &quitTime))
	assert.Equal(t, int64(90_000), duration)
	assert.True(t, quitTime.Valid)
}

func TestSessionCloseWithoutOpenIsNoOp(t *testing.T) {
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	ctx := context.Background()

	// A quit for a player whose join was never seen must not fail
	require.NoError(t, sessions.Close(ctx, "ghost", 1000))

	total, err := sessions.CountTotal(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSessionCloseTargetsMostRecentOpen(t *testing.T) {
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	ctx := context.Background()

	// An older session left open by a crash plus a fresh one
	_, err := db.conn.Exec(
		`INSERT INTO player_sessions (player_name, join_time) VALUES ('alex', datetime('now', '-2 hours'))`)
	require.NoError(t, err)
	require.NoError(t, sessions.Open(ctx, "alex"))

	require.NoError(t, sessions.Close(ctx, "alex", 5000))

	// The stale row is still open, the fresh one got the duration
	var stillOpen int64
	require.NoError(t, db.conn.QueryRow(
		`SELECT COUNT(*) FROM player_sessions WHERE player_name = 'alex' AND quit_time IS NULL`).
		Scan(&stillOpen))
	assert.Equal(t, int64(1), stillOpen)

	var duration sql.NullInt64
	require.NoError(t, db.conn.QueryRow(
		`SELECT session_duration FROM player_sessions
		 WHERE player_name = 'alex' AND quit_time IS NOT NULL`).
		Scan(&duration))
	assert.Equal(t, int64(5000), duration.Int64)
}

func TestCloseAllOpen(t *testing.T) {
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	ctx := context.Background()

	require.NoError(t, sessions.Open(ctx, "steve"))
	require.NoError(t, sessions.Open(ctx, "alex"))
	_, err := db.conn.Exec(
		`INSERT INTO player_sessions (player_name, join_time) VALUES ('herobrine', datetime('now', '-1 hours'))`)
	require.NoError(t, err)

	closed, err := sessions.CloseAllOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), closed)

	active, err := sessions.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, active)

	// The swept session gets a duration computed from its join time,
	// about an hour here
	var duration int64
	require.NoError(t, db.conn.QueryRow(
		`SELECT session_duration FROM player_sessions WHERE player_name = 'herobrine'`).
		Scan(&duration))
	assert.InDelta(t, 3_600_000, duration, 120_000)

	// Sweep with nothing open closes nothing
	closed, err = sessions.CloseAllOpen(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestSessionCounts(t *testing.T) {
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, sessions.Open(ctx, "steve"))
		require.NoError(t, sessions.Close(ctx, "steve", 1000))
	}
	require.NoError(t, sessions.Open(ctx, "alex"))

	total, err := sessions.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	active, err := sessions.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}
