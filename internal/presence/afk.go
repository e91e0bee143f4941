// Package presence tracks last-activity times for online players and
// derives AFK status from them. Everything lives in memory; restarting
// the process resets all activity state.
package presence

import (
	"sync"
	"time"
)

// Tracker maps online player names to their last activity time
type Tracker struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewTracker creates an empty presence tracker
func NewTracker() *Tracker {
	return &Tracker{
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Touch records activity for a player, marking them online and not AFK
func (t *Tracker) Touch(playerName string) {
	t.mu.Lock()
	t.lastSeen[playerName] = t.now()
	t.mu.Unlock()
}

// Remove forgets a player entirely, typically on disconnect
func (t *Tracker) Remove(playerName string) {
	t.mu.Lock()
	delete(t.lastSeen, playerName)
	t.mu.Unlock()
}

// IsAFK reports whether the player's last activity is at least threshold
// ago. Untracked players are never AFK.
func (t *Tracker) IsAFK(playerName string, threshold time.Duration) bool {
	t.mu.RLock()
	last, ok := t.lastSeen[playerName]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return t.now().Sub(last) >= threshold
}

// SinceActivity returns the elapsed time since the player's last
// activity, zero for untracked players
func (t *Tracker) SinceActivity(playerName string) time.Duration {
	t.mu.RLock()
	last, ok := t.lastSeen[playerName]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return t.now().Sub(last)
}

// AFKPlayers returns the names of all currently AFK players
func (t *Tracker) AFKPlayers(threshold time.Duration) []string {
	now := t.now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	var afk []string
	for name, last := range t.lastSeen {
		if now.Sub(last) >= threshold {
			afk = append(afk, name)
		}
	}
	return afk
}

// AFKCount returns the number of currently AFK players
func (t *Tracker) AFKCount(threshold time.Duration) int {
	now := t.now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, last := range t.lastSeen {
		if now.Sub(last) >= threshold {
			count++
		}
	}
	return count
}

// Online returns the number of tracked players
func (t *Tracker) Online() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lastSeen)
}

// Clear forgets all players, used at shutdown
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.lastSeen = make(map[string]time.Time)
	t.mu.Unlock()
}
