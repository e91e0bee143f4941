// Package monitor is the event-facing service. Game events come in
// through the Handle methods, return immediately, and the database
// writes happen on a single background worker. Storage failures on
// that path are logged and dropped; gameplay never waits on the
// database.
package monitor

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avolkov/uptrack/internal/config"
	"github.com/avolkov/uptrack/internal/domain"
	"github.com/avolkov/uptrack/internal/presence"
	"github.com/avolkov/uptrack/internal/storage"
)

// activityCounters maps event kinds from the ingest layer to player
// stat counters. The "move" kind only refreshes presence.
var activityCounters = map[string]string{
	"death":       "deaths",
	"mob_kill":    "mob_kills",
	"player_kill": "player_kills",
	"block_break": "blocks_broken",
	"block_place": "blocks_placed",
	"chat":        "messages_sent",
	"move":        "",
}

// Service owns the in-memory online roster and fans game events out to
// the stores and to event consumers (WebSocket hub, webhook notifier).
type Service struct {
	sessions  *storage.SessionStore
	players   *storage.PlayerStatsStore
	server    *storage.ServerStats
	analytics *storage.AnalyticsStore
	presence  *presence.Tracker
	cfg       config.StatsConfig

	mu        sync.Mutex
	joinTimes map[string]time.Time

	writes  chan func(context.Context)
	events  chan domain.Event
	done    chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// New creates the monitor service over the shared stores
func New(db *storage.DB, tracker *presence.Tracker, cfg config.StatsConfig) *Service {
	return &Service{
		sessions:  storage.NewSessionStore(db),
		players:   storage.NewPlayerStatsStore(db),
		server:    storage.NewServerStats(db),
		analytics: storage.NewAnalyticsStore(db),
		presence:  tracker,
		cfg:       cfg,
		joinTimes: make(map[string]time.Time),
		writes:    make(chan func(context.Context), cfg.WriteQueueSize),
		events:    make(chan domain.Event, 100),
		done:      make(chan struct{}),
	}
}

// Start sweeps sessions left open by a previous crash, then starts the
// write worker and the periodic snapshot and cleanup loops.
func (s *Service) Start(ctx context.Context) error {
	closed, err := s.sessions.CloseAllOpen(ctx)
	if err != nil {
		return err
	}
	if closed > 0 {
		log.Printf("Closed %d session(s) left open by previous run", closed)
	}

	s.wg.Add(3)
	go s.writeLoop()
	go s.snapshotLoop()
	go s.cleanupLoop()

	log.Printf("Monitor started (snapshot every %s, keeping %d days)",
		s.cfg.SnapshotInterval, s.cfg.SnapshotDaysToKeep)
	return nil
}

// Stop closes the sessions of everyone still online with exact
// durations, drains the write queue, and stops the loops.
func (s *Service) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	remaining := make(map[string]time.Time, len(s.joinTimes))
	for name, joined := range s.joinTimes {
		remaining[name] = joined
	}
	s.joinTimes = make(map[string]time.Time)
	s.mu.Unlock()

	for name, joined := range remaining {
		name, duration := name, durationSince(joined)
		s.writes <- func(ctx context.Context) {
			logWriteErr("close session", s.sessions.Close(ctx, name, duration))
			logWriteErr("add playtime", s.players.AddPlaytime(ctx, name, duration))
		}
	}
	s.presence.Clear()

	close(s.done)
	close(s.writes)
	s.wg.Wait()
	log.Printf("Monitor stopped, %d session(s) closed", len(remaining))
}

// Events returns the channel consumed by the WebSocket hub and notifier
func (s *Service) Events() <-chan domain.Event {
	return s.events
}

// HandleJoin records a player coming online. A join for a player who is
// already on the roster is ignored.
func (s *Service) HandleJoin(playerName string) {
	if s.stopped.Load() {
		return
	}

	s.mu.Lock()
	if _, online := s.joinTimes[playerName]; online {
		s.mu.Unlock()
		log.Printf("Duplicate join for %s ignored", playerName)
		return
	}
	s.joinTimes[playerName] = time.Now()
	onlineCount := len(s.joinTimes)
	s.mu.Unlock()

	s.presence.Touch(playerName)

	s.enqueue(func(ctx context.Context) {
		// First-ever join is detected before the upsert creates the row
		joins, err := s.players.JoinCount(ctx, playerName)
		logWriteErr("read join count", err)
		firstJoin := err == nil && joins == 0
		if firstJoin {
			logWriteErr("increment unique players", s.server.IncrementUniquePlayer(ctx))
		}

		logWriteErr("record join", s.players.RecordJoin(ctx, playerName))
		logWriteErr("open session", s.sessions.Open(ctx, playerName))

		newRecord, err := s.server.UpdateMaxOnline(ctx, onlineCount)
		logWriteErr("update max online", err)
		if newRecord {
			log.Printf("New online record: %d", onlineCount)
			s.emit(domain.EventNewRecord, domain.NewRecordEvent{OnlineCount: onlineCount})
		}

		s.emit(domain.EventPlayerJoin, domain.PlayerJoinEvent{
			PlayerName:  playerName,
			OnlineCount: onlineCount,
			FirstJoin:   firstJoin,
		})
	})
}

// HandleQuit records a player going offline. The session duration is
// measured from the in-memory join time; a quit without a matching join
// closes nothing but is still safe.
func (s *Service) HandleQuit(playerName string) {
	if s.stopped.Load() {
		return
	}

	s.mu.Lock()
	joined, wasOnline := s.joinTimes[playerName]
	delete(s.joinTimes, playerName)
	onlineCount := len(s.joinTimes)
	s.mu.Unlock()

	s.presence.Remove(playerName)

	var duration int64
	if wasOnline {
		duration = durationSince(joined)
	}

	s.enqueue(func(ctx context.Context) {
		logWriteErr("close session", s.sessions.Close(ctx, playerName, duration))
		if wasOnline {
			logWriteErr("add playtime", s.players.AddPlaytime(ctx, playerName, duration))
		}

		s.emit(domain.EventPlayerQuit, domain.PlayerQuitEvent{
			PlayerName:      playerName,
			OnlineCount:     onlineCount,
			SessionDuration: duration,
		})
	})
}

// HandleActivity refreshes the player's presence and, for countable
// kinds, bumps the matching stat counter. Returns false for unknown
// kinds.
func (s *Service) HandleActivity(playerName, kind string) bool {
	counter, ok := activityCounters[kind]
	if !ok {
		return false
	}
	if s.stopped.Load() {
		return true
	}

	s.presence.Touch(playerName)
	if counter == "" {
		return true
	}

	s.enqueue(func(ctx context.Context) {
		logWriteErr("increment "+counter, s.players.IncrementCounter(ctx, playerName, counter))
		logWriteErr("touch activity", s.players.TouchActivity(ctx, playerName))
	})
	return true
}

// OnlinePlayers returns the current roster, sorted for stable output
func (s *Service) OnlinePlayers() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.joinTimes))
	for name := range s.joinTimes {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)
	return names
}

// OnlineCount returns the current roster size
func (s *Service) OnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.joinTimes)
}

// AFKPlayers returns the names of players idle past the configured threshold
func (s *Service) AFKPlayers() []string {
	names := s.presence.AFKPlayers(s.cfg.AFKThreshold)
	sort.Strings(names)
	return names
}

// AFKCount returns the number of players idle past the configured threshold
func (s *Service) AFKCount() int {
	return s.presence.AFKCount(s.cfg.AFKThreshold)
}

// Summary assembles the headline stats block. Individual read failures
// are logged and leave their fields at zero.
func (s *Service) Summary(ctx context.Context) domain.ServerSummary {
	sum := domain.ServerSummary{
		CurrentOnline: s.OnlineCount(),
		AFKCount:      s.AFKCount(),
	}

	var err error
	if sum.MaxOnline, err = s.server.MaxOnline(ctx); err != nil {
		log.Printf("Error reading max online: %v", err)
	}
	if sum.UniquePlayers, err = s.server.UniquePlayers(ctx); err != nil {
		log.Printf("Error reading unique players: %v", err)
	}
	if sum.TotalSessions, err = s.sessions.CountTotal(ctx); err != nil {
		log.Printf("Error counting sessions: %v", err)
	}
	if sum.ActiveSessions, err = s.sessions.CountActive(ctx); err != nil {
		log.Printf("Error counting active sessions: %v", err)
	}
	if sum.TotalPlaytimeMS, err = s.players.TotalPlaytimeAll(ctx); err != nil {
		log.Printf("Error summing playtime: %v", err)
	}
	return sum
}

// Players exposes the player stats store for read endpoints
func (s *Service) Players() *storage.PlayerStatsStore {
	return s.players
}

// Analytics exposes the analytics store for read endpoints
func (s *Service) Analytics() *storage.AnalyticsStore {
	return s.analytics
}

// enqueue hands a write to the background worker; when the queue is
// full the write is dropped, not blocked on
func (s *Service) enqueue(task func(context.Context)) {
	select {
	case s.writes <- task:
	default:
		log.Printf("Write queue full, dropping write")
	}
}

// writeLoop is the single consumer of the write queue. One consumer
// keeps each player's session operations in enqueue order.
func (s *Service) writeLoop() {
	defer s.wg.Done()
	for task := range s.writes {
		task(context.Background())
	}
}

// snapshotLoop samples the online count at the configured interval
func (s *Service) snapshotLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count := s.OnlineCount()
			if err := s.analytics.RecordSnapshot(context.Background(), count); err != nil {
				log.Printf("Error recording snapshot: %v", err)
				continue
			}
			s.emit(domain.EventSnapshot, domain.SnapshotEvent{OnlineCount: count})
		case <-s.done:
			return
		}
	}
}

// cleanupLoop prunes old snapshots once at startup and then daily
func (s *Service) cleanupLoop() {
	defer s.wg.Done()
	s.prune()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.done:
			return
		}
	}
}

func (s *Service) prune() {
	deleted, err := s.analytics.PruneOlderThan(context.Background(), s.cfg.SnapshotDaysToKeep)
	if err != nil {
		log.Printf("Error pruning snapshots: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Pruned %d snapshot(s) older than %d days", deleted, s.cfg.SnapshotDaysToKeep)
	}
}

// emit publishes an event without blocking; slow consumers lose events
func (s *Service) emit(eventType string, data interface{}) {
	event := domain.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	select {
	case s.events <- event:
	default:
	}
}

func durationSince(joined time.Time) int64 {
	duration := time.Since(joined).Milliseconds()
	if duration < 0 {
		return 0
	}
	return duration
}

func logWriteErr(op string, err error) {
	if err != nil {
		log.Printf("Error on %s: %v", op, err)
	}
}
