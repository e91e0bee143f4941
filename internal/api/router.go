package api

import (
	"net/http"

	"github.com/avolkov/uptrack/internal/auth"
	"github.com/avolkov/uptrack/internal/monitor"
	"github.com/avolkov/uptrack/internal/notify"
)

// Router holds the HTTP routes and dependencies
type Router struct {
	mux      *http.ServeMux
	monitor  *monitor.Service
	wsHub    *WebSocketHub
	auth     *auth.Service
	notifier *notify.Notifier
}

// NewRouter creates a new HTTP router. The notifier may be nil when no
// webhook is configured.
func NewRouter(mon *monitor.Service, authService *auth.Service, notifier *notify.Notifier) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		monitor:  mon,
		wsHub:    NewWebSocketHub(),
		auth:     authService,
		notifier: notifier,
	}

	// Read API
	r.mux.HandleFunc("GET /api/stats", r.handleGetStats)
	r.mux.HandleFunc("GET /api/online", r.handleGetOnline)
	r.mux.HandleFunc("GET /api/players", r.handleGetPlayers)
	r.mux.HandleFunc("GET /api/snapshots", r.handleGetSnapshots)

	// Event ingest from the game server glue
	r.mux.HandleFunc("POST /api/events/join", r.handleEventJoin)
	r.mux.HandleFunc("POST /api/events/quit", r.handleEventQuit)
	r.mux.HandleFunc("POST /api/events/activity", r.handleEventActivity)

	// Auth and admin routes
	r.mux.HandleFunc("POST /api/auth/login", r.handleLogin)
	r.mux.HandleFunc("POST /api/admin/prune", r.requireAdmin(r.handlePrune))

	// WebSocket event stream
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// StartEventFanout starts the WebSocket hub and forwards monitor events
// to connected clients and to the webhook notifier
func (r *Router) StartEventFanout() {
	go r.wsHub.Run()

	go func() {
		for event := range r.monitor.Events() {
			r.wsHub.Broadcast(event)
			if r.notifier != nil {
				r.notifier.Handle(event)
			}
		}
	}()
}
