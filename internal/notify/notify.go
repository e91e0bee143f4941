// Package notify posts player milestones to a Discord-compatible
// webhook. Delivery is best effort: failures are logged and dropped,
// never retried.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/avolkov/uptrack/internal/config"
	"github.com/avolkov/uptrack/internal/domain"
)

// Notifier sends webhook messages for selected event types
type Notifier struct {
	cfg    config.WebhookConfig
	client *http.Client
}

// New creates a notifier, or nil when no webhook URL is configured
func New(cfg config.WebhookConfig) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Handle formats and delivers one monitor event, honoring the per-type
// config toggles
func (n *Notifier) Handle(event domain.Event) {
	var message string

	switch event.Type {
	case domain.EventPlayerJoin:
		if !n.cfg.NotifyJoin {
			return
		}
		data, ok := event.Data.(domain.PlayerJoinEvent)
		if !ok {
			return
		}
		if data.FirstJoin {
			message = fmt.Sprintf("**%s** joined for the first time! (%d online)", data.PlayerName, data.OnlineCount)
		} else {
			message = fmt.Sprintf("**%s** joined (%d online)", data.PlayerName, data.OnlineCount)
		}

	case domain.EventPlayerQuit:
		if !n.cfg.NotifyQuit {
			return
		}
		data, ok := event.Data.(domain.PlayerQuitEvent)
		if !ok {
			return
		}
		message = fmt.Sprintf("**%s** left after %s (%d online)",
			data.PlayerName, formatDuration(data.SessionDuration), data.OnlineCount)

	case domain.EventNewRecord:
		if !n.cfg.NotifyNewRecord {
			return
		}
		data, ok := event.Data.(domain.NewRecordEvent)
		if !ok {
			return
		}
		message = fmt.Sprintf("New online record: **%d** players!", data.OnlineCount)

	default:
		return
	}

	n.post(message)
}

func (n *Notifier) post(message string) {
	body, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		log.Printf("Error marshaling webhook payload: %v", err)
		return
	}

	resp, err := n.client.Post(n.cfg.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Error delivering webhook: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("Webhook delivery returned status %d", resp.StatusCode)
	}
}

// formatDuration renders a session length in a compact human form
func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
