// uptrack - player activity tracking and analytics for game servers
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/avolkov/uptrack/internal/api"
	"github.com/avolkov/uptrack/internal/auth"
	"github.com/avolkov/uptrack/internal/config"
	"github.com/avolkov/uptrack/internal/monitor"
	"github.com/avolkov/uptrack/internal/notify"
	"github.com/avolkov/uptrack/internal/presence"
	"github.com/avolkov/uptrack/internal/storage"
)

var version = "dev"

const defaultConfigPath = "/etc/uptrack/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "online":
		cmdOnline(os.Args[2:])
	case "top":
		cmdTop(os.Args[2:])
	case "hash":
		cmdHash(os.Args[2:])
	case "prune":
		cmdPrune(os.Args[2:])
	case "version":
		fmt.Printf("uptrack %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: uptrack <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                Start the tracking server")
	fmt.Println("  stats                Show server statistics")
	fmt.Println("  online               Show who is online and who is AFK")
	fmt.Println("  top [--limit N]      Show most frequent players (default: 10)")
	fmt.Println("  prune [--days N]     Delete snapshots older than N days (admin)")
	fmt.Println("  hash                 Generate an admin password hash for the config")
	fmt.Println("  version              Show version")
	fmt.Println("  help                 Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/uptrack/config.yml)")
	fmt.Println("  --url <url>        Base URL of the uptrack server (default: derived from config)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  uptrack serve --config /etc/uptrack/config.yml")
	fmt.Println("  uptrack top --limit 25")
	fmt.Println("  uptrack prune --days 14")
}

// cmdServe starts the tracking server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			log.Fatalf("No config file found at %s. Use --config to specify a config file.", defaultConfigPath)
		}
	}

	// Load configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Uptrack %s starting...", version)

	// Connect and migrate; either failure is fatal, running without a
	// working schema is not an option
	db, err := storage.Open(cfg.Database, cfg.Stats.TimezoneOffset)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	applied, err := db.Migrate(context.Background())
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if applied > 0 {
		log.Printf("Database schema updated, %d migration(s) applied", applied)
	}
	log.Printf("Database ready (%s)", cfg.Database.Type)

	// Create the monitor service
	tracker := presence.NewTracker()
	mon := monitor.New(db, tracker, cfg.Stats)
	if err := mon.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start monitor: %v", err)
	}

	// Create auth service
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.AdminPasswordHash, cfg.Auth.TokenDuration)
	if cfg.Auth.JWTSecret == "" {
		log.Printf("Warning: No JWT secret configured. Auth tokens will use an empty secret.")
	}
	if cfg.Auth.AdminPasswordHash == "" {
		log.Printf("Warning: No admin password hash configured. Admin endpoints are disabled.")
	}

	// Optional webhook notifier
	notifier := notify.New(cfg.Webhook)
	if notifier != nil {
		log.Printf("Webhook notifications enabled")
	}

	// Create HTTP router
	router := api.NewRouter(mon, authService, notifier)
	router.StartEventFanout()

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for signal or error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		log.Fatalf("HTTP server error: %v", err)
	}

	// Sequential shutdown: stop taking requests, then flush the writes
	log.Println("Shutting down HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Stopping monitor...")
	mon.Stop()

	log.Println("Shutdown complete")
}

// CLI helper variables
var baseURL = "http://localhost:8080"

// loadCLIConfigFromFlags derives the server URL from config and flags
func loadCLIConfigFromFlags(configPath, url string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if url != "" {
			baseURL = url
		}
		return
	}

	if url != "" {
		baseURL = url
	} else {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	}
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the uptrack server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var stats map[string]interface{}
	if err := getJSON("/api/stats", &stats); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Online now\t%v\n", stats["current_online"])
	fmt.Fprintf(w, "AFK\t%v\n", stats["afk_count"])
	fmt.Fprintf(w, "Online record\t%v\n", stats["max_online"])
	fmt.Fprintf(w, "Unique players\t%v\n", stats["unique_players"])
	fmt.Fprintf(w, "Sessions\t%v\n", stats["total_sessions"])
	fmt.Fprintf(w, "Total playtime\t%s\n", formatPlaytime(stats["total_playtime_ms"]))
	w.Flush()
}

func cmdOnline(args []string) {
	fs := flag.NewFlagSet("online", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the uptrack server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var online struct {
		Online []string `json:"online"`
		AFK    []string `json:"afk"`
		Count  int      `json:"count"`
	}
	if err := getJSON("/api/online", &online); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if online.Count == 0 {
		fmt.Println("Nobody online")
		return
	}

	afk := make(map[string]bool, len(online.AFK))
	for _, name := range online.AFK {
		afk[name] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYER\tSTATUS")
	fmt.Fprintln(w, "------\t------")
	for _, name := range online.Online {
		status := "active"
		if afk[name] {
			status = "afk"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, status)
	}
	w.Flush()
}

func cmdTop(args []string) {
	fs := flag.NewFlagSet("top", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the uptrack server")
	limit := fs.Int("limit", 10, "number of players to show")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var result struct {
		Players []struct {
			Name       string `json:"name"`
			TotalJoins int64  `json:"total_joins"`
		} `json:"players"`
	}
	if err := getJSON(fmt.Sprintf("/api/players?limit=%d", *limit), &result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPLAYER\tJOINS")
	fmt.Fprintln(w, "-\t------\t-----")
	for i, p := range result.Players {
		fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, p.Name, p.TotalJoins)
	}
	w.Flush()
}

// cmdHash generates a bcrypt hash for the admin_password_hash setting
func cmdHash(args []string) {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	fs.Parse(args)

	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read password: %v\n", err)
		os.Exit(1)
	}

	if len(password) < 8 {
		fmt.Fprintln(os.Stderr, "Error: password must be at least 8 characters")
		os.Exit(1)
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read password: %v\n", err)
		os.Exit(1)
	}

	if string(password) != string(confirm) {
		fmt.Fprintln(os.Stderr, "Error: passwords do not match")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Add to your config file:")
	fmt.Println()
	fmt.Println("auth:")
	fmt.Printf("  admin_password_hash: %q\n", hash)
}

// cmdPrune triggers a manual snapshot retention run on the server
func cmdPrune(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the uptrack server")
	days := fs.Int("days", 30, "delete snapshots older than this many days")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	fmt.Print("Admin password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read password: %v\n", err)
		os.Exit(1)
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := postJSON("/api/auth/login", map[string]string{"password": string(password)}, "", &login); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var result struct {
		Deleted int64 `json:"deleted"`
	}
	path := fmt.Sprintf("/api/admin/prune?days=%d", *days)
	if err := postJSON(path, nil, login.Token, &result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deleted %d snapshot(s) older than %d days\n", result.Deleted, *days)
}

func getJSON(path string, target interface{}) error {
	url := baseURL + path
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func postJSON(path string, payload interface{}, token string, target interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func formatPlaytime(value interface{}) string {
	ms, ok := value.(float64)
	if !ok {
		return "-"
	}
	d := time.Duration(ms) * time.Millisecond
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
