package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// ServerStats mirrors the server_stats singleton row in memory so the
// hot path (every join checks the online record) almost never reads the
// database. The cache hydrates lazily on first access and afterwards is
// only advanced in step with successful writes, so it can lag the row
// written by another process but never run ahead of it.
type ServerStats struct {
	db *DB

	mu       sync.Mutex
	hydrated bool

	maxOnline     atomic.Int64
	uniquePlayers atomic.Int64
}

// NewServerStats creates the server stats cache over the shared connection
func NewServerStats(db *DB) *ServerStats {
	return &ServerStats{db: db}
}

// ensureCache loads the singleton row on first use. A failed load
// leaves the cache cold so the next call retries.
func (s *ServerStats) ensureCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return nil
	}

	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	var maxOnline, uniquePlayers int64
	err := s.db.queryRow(ctx,
		`SELECT max_online, total_unique_players FROM server_stats WHERE id = 1`).
		Scan(&maxOnline, &uniquePlayers)
	if err != nil {
		return fmt.Errorf("hydrating server stats cache: %w", err)
	}

	s.maxOnline.Store(maxOnline)
	s.uniquePlayers.Store(uniquePlayers)
	s.hydrated = true
	return nil
}

// UpdateMaxOnline persists the online count as the new record if it
// exceeds the stored one. The cache advances only after the conditional
// UPDATE succeeds. Returns true when a new record was set.
func (s *ServerStats) UpdateMaxOnline(ctx context.Context, currentOnline int) (bool, error) {
	if err := s.ensureCache(ctx); err != nil {
		return false, err
	}

	current := int64(currentOnline)
	if current <= s.maxOnline.Load() {
		return false, nil
	}

	result, err := s.db.exec(ctx,
		`UPDATE server_stats SET max_online = ? WHERE id = 1 AND max_online < ?`,
		current, current)
	if err != nil {
		return false, fmt.Errorf("updating max online: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating max online: %w", err)
	}

	// Raise the cached value to at least the persisted one; another
	// writer may have set a higher record in the meantime.
	for {
		cached := s.maxOnline.Load()
		if current <= cached || s.maxOnline.CompareAndSwap(cached, current) {
			break
		}
	}

	return affected > 0, nil
}

// IncrementUniquePlayer bumps the all-time unique player count. The
// cache increments only after the row update succeeds.
func (s *ServerStats) IncrementUniquePlayer(ctx context.Context) error {
	if err := s.ensureCache(ctx); err != nil {
		return err
	}

	_, err := s.db.exec(ctx,
		`UPDATE server_stats SET total_unique_players = total_unique_players + 1 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("incrementing unique players: %w", err)
	}

	s.uniquePlayers.Add(1)
	return nil
}

// MaxOnline returns the cached online record, hydrating if needed
func (s *ServerStats) MaxOnline(ctx context.Context) (int64, error) {
	if err := s.ensureCache(ctx); err != nil {
		return 0, err
	}
	return s.maxOnline.Load(), nil
}

// UniquePlayers returns the cached all-time unique player count,
// hydrating if needed
func (s *ServerStats) UniquePlayers(ctx context.Context) (int64, error) {
	if err := s.ensureCache(ctx); err != nil {
		return 0, err
	}
	return s.uniquePlayers.Load(), nil
}
