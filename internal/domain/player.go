package domain

import "time"

// PlayerSummary holds the aggregated per-player row from player_stats
type PlayerSummary struct {
	Name            string     `json:"name"`
	TotalJoins      int64      `json:"total_joins"`
	FirstJoin       *time.Time `json:"first_join,omitempty"`
	LastJoin        *time.Time `json:"last_join,omitempty"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
	TotalPlaytimeMS int64      `json:"total_playtime_ms"`
	Deaths          int64      `json:"deaths"`
	MobKills        int64      `json:"mob_kills"`
	PlayerKills     int64      `json:"player_kills"`
	BlocksBroken    int64      `json:"blocks_broken"`
	BlocksPlaced    int64      `json:"blocks_placed"`
	MessagesSent    int64      `json:"messages_sent"`
}

// TopPlayer is one entry in the joins leaderboard
type TopPlayer struct {
	Name       string `json:"name"`
	TotalJoins int64  `json:"total_joins"`
}

// Session represents one visit by a player
type Session struct {
	ID         int64      `json:"id"`
	PlayerName string     `json:"player_name"`
	JoinTime   time.Time  `json:"join_time"`
	QuitTime   *time.Time `json:"quit_time,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
}
