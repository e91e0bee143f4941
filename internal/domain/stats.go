package domain

// ServerSummary is the headline stats block served by the API
type ServerSummary struct {
	MaxOnline       int64 `json:"max_online"`
	UniquePlayers   int64 `json:"unique_players"`
	TotalSessions   int64 `json:"total_sessions"`
	ActiveSessions  int64 `json:"active_sessions"`
	TotalPlaytimeMS int64 `json:"total_playtime_ms"`
	CurrentOnline   int   `json:"current_online"`
	AFKCount        int   `json:"afk_count"`
}

// HourlyAverage is the average online count for one hour of day (0-23)
type HourlyAverage struct {
	Hour    int     `json:"hour"`
	Average float64 `json:"average"`
}

// DailyAverage is the average online count for one calendar date
type DailyAverage struct {
	Date    string  `json:"date"`
	Average float64 `json:"average"`
}

// WeekdayAverage is the average online count for one day of week.
// Weekday follows SQL convention: 0 is Sunday.
type WeekdayAverage struct {
	Weekday int     `json:"weekday"`
	Average float64 `json:"average"`
}

// PeakHour is one entry of the busiest-hours ranking, labelled "HH:00"
type PeakHour struct {
	Hour string `json:"hour"`
	Peak int64  `json:"peak"`
}
