package storage

import (
	"context"
	"fmt"
	"log"
)

// migration is one schema version. Statements are per-dialect because
// the backends disagree on serial columns and timestamp types.
type migration struct {
	version    int
	name       string
	statements map[string][]string
}

var migrations = []migration{
	{
		version: 1,
		name:    "core tables",
		statements: map[string][]string{
			"sqlite": {
				`CREATE TABLE IF NOT EXISTS server_stats (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					max_online INTEGER NOT NULL DEFAULT 0,
					total_unique_players INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS player_stats (
					player_name TEXT PRIMARY KEY,
					total_joins INTEGER NOT NULL DEFAULT 0,
					first_join TIMESTAMP,
					last_join TIMESTAMP,
					last_activity TIMESTAMP,
					total_playtime INTEGER NOT NULL DEFAULT 0,
					deaths INTEGER NOT NULL DEFAULT 0,
					mob_kills INTEGER NOT NULL DEFAULT 0,
					player_kills INTEGER NOT NULL DEFAULT 0,
					blocks_broken INTEGER NOT NULL DEFAULT 0,
					blocks_placed INTEGER NOT NULL DEFAULT 0,
					messages_sent INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS player_sessions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					player_name TEXT NOT NULL,
					join_time TIMESTAMP NOT NULL,
					quit_time TIMESTAMP,
					session_duration INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS online_snapshots (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp TIMESTAMP NOT NULL,
					online_count INTEGER NOT NULL
				)`,
			},
			"postgres": {
				`CREATE TABLE IF NOT EXISTS server_stats (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					max_online BIGINT NOT NULL DEFAULT 0,
					total_unique_players BIGINT NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS player_stats (
					player_name TEXT PRIMARY KEY,
					total_joins BIGINT NOT NULL DEFAULT 0,
					first_join TIMESTAMPTZ,
					last_join TIMESTAMPTZ,
					last_activity TIMESTAMPTZ,
					total_playtime BIGINT NOT NULL DEFAULT 0,
					deaths BIGINT NOT NULL DEFAULT 0,
					mob_kills BIGINT NOT NULL DEFAULT 0,
					player_kills BIGINT NOT NULL DEFAULT 0,
					blocks_broken BIGINT NOT NULL DEFAULT 0,
					blocks_placed BIGINT NOT NULL DEFAULT 0,
					messages_sent BIGINT NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS player_sessions (
					id BIGSERIAL PRIMARY KEY,
					player_name TEXT NOT NULL,
					join_time TIMESTAMPTZ NOT NULL,
					quit_time TIMESTAMPTZ,
					session_duration BIGINT
				)`,
				`CREATE TABLE IF NOT EXISTS online_snapshots (
					id BIGSERIAL PRIMARY KEY,
					timestamp TIMESTAMPTZ NOT NULL,
					online_count INTEGER NOT NULL
				)`,
			},
		},
	},
	{
		version: 2,
		name:    "session and snapshot indexes",
		statements: map[string][]string{
			"sqlite": {
				`CREATE INDEX IF NOT EXISTS idx_player_sessions_open ON player_sessions(player_name, quit_time)`,
				`CREATE INDEX IF NOT EXISTS idx_online_snapshots_ts ON online_snapshots(timestamp)`,
			},
			"postgres": {
				`CREATE INDEX IF NOT EXISTS idx_player_sessions_open ON player_sessions(player_name, quit_time)`,
				`CREATE INDEX IF NOT EXISTS idx_online_snapshots_ts ON online_snapshots(timestamp)`,
			},
		},
	},
	{
		version: 3,
		name:    "seed server stats singleton",
		statements: map[string][]string{
			"sqlite": {
				`INSERT INTO server_stats (id, max_online, total_unique_players) VALUES (1, 0, 0)
					ON CONFLICT(id) DO NOTHING`,
			},
			"postgres": {
				`INSERT INTO server_stats (id, max_online, total_unique_players) VALUES (1, 0, 0)
					ON CONFLICT (id) DO NOTHING`,
			},
		},
	},
}

// Migrate applies all pending schema versions in order and records each
// one in the schema_migrations ledger. Re-running is a no-op. Any
// failure aborts the current version's transaction and is returned to
// the caller, which treats it as fatal.
func (d *DB) Migrate(ctx context.Context) (int, error) {
	_, err := d.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return 0, fmt.Errorf("creating migration ledger: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := d.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("reading migration ledger: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning migration ledger: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("reading migration ledger: %w", err)
	}
	rows.Close()

	count := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		statements, ok := m.statements[d.dialect.Name()]
		if !ok {
			return count, fmt.Errorf("migration %d has no statements for %s", m.version, d.dialect.Name())
		}

		tx, err := d.conn.BeginTx(ctx, nil)
		if err != nil {
			return count, fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return count, fmt.Errorf("applying migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			d.dialect.Rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`),
			m.version, m.name); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return count, fmt.Errorf("committing migration %d: %w", m.version, err)
		}

		log.Printf("Applied migration %d: %s", m.version, m.name)
		count++
	}

	return count, nil
}
