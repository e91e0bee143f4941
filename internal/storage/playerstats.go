package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkov/uptrack/internal/domain"
)

// Counter names accepted by IncrementCounter, mapped to their columns.
// The map doubles as a whitelist so counter names from the event layer
// never reach SQL directly.
var counterColumns = map[string]string{
	"deaths":        "deaths",
	"mob_kills":     "mob_kills",
	"player_kills":  "player_kills",
	"blocks_broken": "blocks_broken",
	"blocks_placed": "blocks_placed",
	"messages_sent": "messages_sent",
}

// PlayerStatsStore maintains the per-player aggregate row
type PlayerStatsStore struct {
	db *DB
}

// NewPlayerStatsStore creates a player stats store over the shared connection
func NewPlayerStatsStore(db *DB) *PlayerStatsStore {
	return &PlayerStatsStore{db: db}
}

// RecordJoin upserts the player's row in a single statement: a first
// join creates the row with total_joins 1 and both join timestamps, a
// repeat join increments the counter and advances last_join only.
func (s *PlayerStatsStore) RecordJoin(ctx context.Context, playerName string) error {
	now := s.db.dialect.Now()
	query := fmt.Sprintf(
		`INSERT INTO player_stats (player_name, total_joins, first_join, last_join)
		 VALUES (?, 1, %s, %s)
		 ON CONFLICT (player_name) DO UPDATE SET
			total_joins = player_stats.total_joins + 1,
			last_join = excluded.last_join`,
		now, now)
	if _, err := s.db.exec(ctx, query, playerName); err != nil {
		return fmt.Errorf("recording join for %s: %w", playerName, err)
	}
	return nil
}

// AddPlaytime adds a completed session's duration to the player's total
func (s *PlayerStatsStore) AddPlaytime(ctx context.Context, playerName string, durationMS int64) error {
	_, err := s.db.exec(ctx,
		`UPDATE player_stats SET total_playtime = total_playtime + ? WHERE player_name = ?`,
		durationMS, playerName)
	if err != nil {
		return fmt.Errorf("adding playtime for %s: %w", playerName, err)
	}
	return nil
}

// IncrementCounter atomically bumps one of the activity counters
func (s *PlayerStatsStore) IncrementCounter(ctx context.Context, playerName, counter string) error {
	col, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("unknown counter %q", counter)
	}
	query := fmt.Sprintf(
		`UPDATE player_stats SET %s = %s + 1 WHERE player_name = ?`, col, col)
	if _, err := s.db.exec(ctx, query, playerName); err != nil {
		return fmt.Errorf("incrementing %s for %s: %w", counter, playerName, err)
	}
	return nil
}

// TouchActivity stamps the player's last activity time
func (s *PlayerStatsStore) TouchActivity(ctx context.Context, playerName string) error {
	query := fmt.Sprintf(
		`UPDATE player_stats SET last_activity = %s WHERE player_name = ?`,
		s.db.dialect.Now())
	if _, err := s.db.exec(ctx, query, playerName); err != nil {
		return fmt.Errorf("touching activity for %s: %w", playerName, err)
	}
	return nil
}

// JoinCount returns the player's total joins, zero for unknown players
func (s *PlayerStatsStore) JoinCount(ctx context.Context, playerName string) (int64, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var count int64
	err := s.db.queryRow(ctx,
		`SELECT total_joins FROM player_stats WHERE player_name = ?`, playerName).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading join count for %s: %w", playerName, err)
	}
	return count, nil
}

// TotalPlaytime returns the player's accumulated playtime in
// milliseconds, zero for unknown players
func (s *PlayerStatsStore) TotalPlaytime(ctx context.Context, playerName string) (int64, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var total int64
	err := s.db.queryRow(ctx,
		`SELECT total_playtime FROM player_stats WHERE player_name = ?`, playerName).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading playtime for %s: %w", playerName, err)
	}
	return total, nil
}

// CounterValue returns the current value of one activity counter,
// zero for unknown players
func (s *PlayerStatsStore) CounterValue(ctx context.Context, playerName, counter string) (int64, error) {
	col, ok := counterColumns[counter]
	if !ok {
		return 0, fmt.Errorf("unknown counter %q", counter)
	}

	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var value int64
	query := fmt.Sprintf(`SELECT %s FROM player_stats WHERE player_name = ?`, col)
	err := s.db.queryRow(ctx, query, playerName).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s for %s: %w", counter, playerName, err)
	}
	return value, nil
}

// TotalPlaytimeAll returns the playtime sum across all players
func (s *PlayerStatsStore) TotalPlaytimeAll(ctx context.Context) (int64, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var total int64
	err := s.db.queryRow(ctx,
		`SELECT COALESCE(SUM(total_playtime), 0) FROM player_stats`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing playtime: %w", err)
	}
	return total, nil
}

// TopByJoins returns the players with the most joins, descending
func (s *PlayerStatsStore) TopByJoins(ctx context.Context, limit int) ([]domain.TopPlayer, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	rows, err := s.db.query(ctx,
		`SELECT player_name, total_joins FROM player_stats
		 ORDER BY total_joins DESC, player_name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top players: %w", err)
	}
	defer rows.Close()

	var top []domain.TopPlayer
	for rows.Next() {
		var p domain.TopPlayer
		if err := rows.Scan(&p.Name, &p.TotalJoins); err != nil {
			return nil, fmt.Errorf("scanning top player: %w", err)
		}
		top = append(top, p)
	}
	return top, rows.Err()
}

// Summary returns the full aggregate row for one player. Unknown
// players get a zero-valued summary, not an error.
func (s *PlayerStatsStore) Summary(ctx context.Context, playerName string) (*domain.PlayerSummary, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var sum domain.PlayerSummary
	var firstJoin, lastJoin, lastActivity sql.NullTime
	err := s.db.queryRow(ctx,
		`SELECT player_name, total_joins, first_join, last_join, last_activity,
			total_playtime, deaths, mob_kills, player_kills,
			blocks_broken, blocks_placed, messages_sent
		 FROM player_stats WHERE player_name = ?`, playerName).Scan(
		&sum.Name, &sum.TotalJoins, &firstJoin, &lastJoin, &lastActivity,
		&sum.TotalPlaytimeMS, &sum.Deaths, &sum.MobKills, &sum.PlayerKills,
		&sum.BlocksBroken, &sum.BlocksPlaced, &sum.MessagesSent)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.PlayerSummary{Name: playerName}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading summary for %s: %w", playerName, err)
	}

	sum.FirstJoin = scanNullTime(firstJoin)
	sum.LastJoin = scanNullTime(lastJoin)
	sum.LastActivity = scanNullTime(lastActivity)
	return &sum, nil
}
