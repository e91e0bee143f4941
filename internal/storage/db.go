package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/avolkov/uptrack/internal/config"
)

// DB wraps the pooled connection with the backend dialect and the
// per-query timeout. All stores share one DB.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	timeout time.Duration
}

// Open connects to the configured backend and verifies the connection.
// A failure here is fatal to the caller; nothing is retried.
func Open(cfg config.DatabaseConfig, tzOffset string) (*DB, error) {
	offsetHours, err := parseOffset(tzOffset)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	var dialect Dialect

	switch cfg.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		// SQLite allows a single writer; serialize all access through
		// one connection to avoid SQLITE_BUSY under load.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragmas: %w", err)
		}
		dialect = newSQLiteDialect(offsetHours)

	case "postgres":
		conn, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		conn.SetMaxOpenConns(cfg.MaxConns)
		conn.SetMaxIdleConns(cfg.MaxConns / 2)
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		dialect = newPostgresDialect(offsetHours)

	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &DB{conn: conn, dialect: dialect, timeout: cfg.QueryTimeout}, nil
}

// Close closes the underlying connection pool
func (d *DB) Close() error {
	return d.conn.Close()
}

// Dialect returns the active backend dialect
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// opCtx derives the per-query deadline from the caller's context
func (d *DB) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := d.opCtx(ctx)
	defer cancel()
	return d.conn.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.conn.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.conn.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}
