/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave quota server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment, then apply flags
  2. Initialize SQLite store
  3. Create API handler and services
  4. Seed rules from a rule set file (optional)
  5. Start the carry-over scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (QUOTA_PORT, default: 8080)
  -db       SQLite database path (QUOTA_DB_PATH, default: quota.db)
            Use ":memory:" for in-memory database
  -rules    Rule set JSON file applied at startup (QUOTA_RULES_FILE)
  -locale   Message language, fr or en (QUOTA_LOCALE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - api/scheduler.go: Year-end carry-over and expiry
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-quota/api"
	"github.com/warp/leave-quota/config"
	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.RulesFile, "rules", cfg.RulesFile, "rule set JSON file applied at startup")
	flag.StringVar(&cfg.Locale, "locale", cfg.Locale, "message language (fr, en)")
	flag.BoolVar(&cfg.SchedulerEnabled, "scheduler", cfg.SchedulerEnabled, "run the carry-over scheduler")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath, sqlite.WithCarryOverDeadline(cfg.Deadline()))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, api.WithPrinter(i18n.Printer(cfg.Language())))
	unsubscribe := handler.Bus.SubscribeAll(logEvent)
	defer unsubscribe()

	if cfg.RulesFile != "" {
		if err := applyRules(context.Background(), handler, cfg.RulesFile); err != nil {
			log.Fatalf("Failed to apply rules: %v", err)
		}
		log.Printf("[Rules] Applied rule set from %s", cfg.RulesFile)
	}

	// Scheduler
	scheduler := api.NewCarryOverScheduler(store, handler)
	scheduler.CheckInterval = cfg.SchedulerInterval
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api/leaves/quotas", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func applyRules(ctx context.Context, h *api.Handler, path string) error {
	set, err := factory.LoadRuleSet(path)
	if err != nil {
		return err
	}
	return h.ApplyRuleSet(ctx, set)
}

func logEvent(e events.Event) {
	if e.UserID != "" {
		log.Printf("[Events] %s user=%s %v", e.Type, e.UserID, e.Payload)
		return
	}
	log.Printf("[Events] %s %v", e.Type, e.Payload)
}
