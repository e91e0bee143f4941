package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/avolkov/uptrack/internal/auth"
	"github.com/avolkov/uptrack/internal/domain"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseIntParam parses a positive integer query parameter with bounds
func parseIntParam(req *http.Request, name string, def, max int) int {
	value := req.URL.Query().Get(name)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// handleGetStats returns the headline server stats block. Read failures
// inside the summary are logged and leave their fields at zero.
func (r *Router) handleGetStats(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.monitor.Summary(req.Context()))
}

// handleGetOnline returns the current roster and who on it is AFK
func (r *Router) handleGetOnline(w http.ResponseWriter, req *http.Request) {
	online := r.monitor.OnlinePlayers()
	afk := r.monitor.AFKPlayers()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online": online,
		"afk":    afk,
		"count":  len(online),
	})
}

// handleGetPlayers returns a single player's summary when name is
// given, otherwise the joins leaderboard
func (r *Router) handleGetPlayers(w http.ResponseWriter, req *http.Request) {
	if name := req.URL.Query().Get("name"); name != "" {
		summary, err := r.monitor.Players().Summary(req.Context(), name)
		if err != nil {
			log.Printf("Error reading player summary: %v", err)
			summary = &domain.PlayerSummary{Name: name}
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	limit := parseIntParam(req, "limit", 10, 100)
	top, err := r.monitor.Players().TopByJoins(req.Context(), limit)
	if err != nil {
		log.Printf("Error reading top players: %v", err)
	}
	if top == nil {
		top = []domain.TopPlayer{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"players": top})
}

// handleGetSnapshots serves the aggregated snapshot views
func (r *Router) handleGetSnapshots(w http.ResponseWriter, req *http.Request) {
	analytics := r.monitor.Analytics()
	ctx := req.Context()

	switch req.URL.Query().Get("type") {
	case "hourly", "":
		days := parseIntParam(req, "days", 7, 365)
		averages, err := analytics.HourlyAverages(ctx, days)
		if err != nil {
			log.Printf("Error reading hourly averages: %v", err)
		}
		if averages == nil {
			averages = []domain.HourlyAverage{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "hourly", "days": days, "averages": averages})

	case "daily":
		days := parseIntParam(req, "days", 7, 365)
		averages, err := analytics.DailyAverages(ctx, days)
		if err != nil {
			log.Printf("Error reading daily averages: %v", err)
		}
		if averages == nil {
			averages = []domain.DailyAverage{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "daily", "days": days, "averages": averages})

	case "weekday":
		weeks := parseIntParam(req, "weeks", 4, 52)
		averages, err := analytics.WeekdayAverages(ctx, weeks)
		if err != nil {
			log.Printf("Error reading weekday averages: %v", err)
		}
		if averages == nil {
			averages = []domain.WeekdayAverage{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "weekday", "weeks": weeks, "averages": averages})

	case "peak":
		days := parseIntParam(req, "days", 7, 365)
		peaks, err := analytics.PeakHours(ctx, days)
		if err != nil {
			log.Printf("Error reading peak hours: %v", err)
		}
		if peaks == nil {
			peaks = []domain.PeakHour{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "peak", "days": days, "peaks": peaks})

	default:
		writeError(w, http.StatusBadRequest, "unknown snapshot type")
	}
}

// playerEvent is the ingest payload for join and quit events
type playerEvent struct {
	PlayerName string `json:"player_name"`
	Kind       string `json:"kind,omitempty"`
}

func decodePlayerEvent(req *http.Request) (playerEvent, bool) {
	var ev playerEvent
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		return ev, false
	}
	ev.PlayerName = strings.TrimSpace(ev.PlayerName)
	return ev, ev.PlayerName != ""
}

// handleEventJoin ingests a player join from the game server glue. The
// write happens asynchronously; the response only acknowledges receipt.
func (r *Router) handleEventJoin(w http.ResponseWriter, req *http.Request) {
	ev, ok := decodePlayerEvent(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "player_name is required")
		return
	}
	r.monitor.HandleJoin(ev.PlayerName)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleEventQuit ingests a player quit
func (r *Router) handleEventQuit(w http.ResponseWriter, req *http.Request) {
	ev, ok := decodePlayerEvent(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "player_name is required")
		return
	}
	r.monitor.HandleQuit(ev.PlayerName)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleEventActivity ingests a player activity event
func (r *Router) handleEventActivity(w http.ResponseWriter, req *http.Request) {
	ev, ok := decodePlayerEvent(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "player_name is required")
		return
	}
	if !r.monitor.HandleActivity(ev.PlayerName, ev.Kind) {
		writeError(w, http.StatusBadRequest, "unknown activity kind")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleLogin verifies the admin password and returns a token
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := r.auth.Login(body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handlePrune runs a manual snapshot retention pass
func (r *Router) handlePrune(w http.ResponseWriter, req *http.Request) {
	days := parseIntParam(req, "days", 30, 3650)
	deleted, err := r.monitor.Analytics().PruneOlderThan(req.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted, "days": days})
}

// handleHealth is the liveness endpoint
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAdmin wraps a handler with bearer-token admin authentication
func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		claims, err := r.claimsFromRequest(req)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !claims.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, req)
	}
}

func (r *Router) claimsFromRequest(req *http.Request) (*auth.Claims, error) {
	header := req.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, auth.ErrInvalidToken
	}
	return r.auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
}
