package domain

import "time"

// Event types for WebSocket and webhook notifications
const (
	EventPlayerJoin = "player_join"
	EventPlayerQuit = "player_quit"
	EventNewRecord  = "new_record"
	EventSnapshot   = "snapshot"
)

// Event represents a real-time event for broadcast to consumers
type Event struct {
	Type      string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// PlayerJoinEvent is sent when a player connects
type PlayerJoinEvent struct {
	PlayerName  string `json:"player_name"`
	OnlineCount int    `json:"online_count"`
	FirstJoin   bool   `json:"first_join"`
}

// PlayerQuitEvent is sent when a player disconnects
type PlayerQuitEvent struct {
	PlayerName      string `json:"player_name"`
	OnlineCount     int    `json:"online_count"`
	SessionDuration int64  `json:"session_duration_ms"`
}

// NewRecordEvent is sent when the online count exceeds the stored maximum
type NewRecordEvent struct {
	OnlineCount int `json:"online_count"`
}

// SnapshotEvent is sent when a periodic online-count sample is recorded
type SnapshotEvent struct {
	OnlineCount int `json:"online_count"`
}
