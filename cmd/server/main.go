/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the holdings ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (.env, environment), then parse flags
  2. Initialize logger
  3. Initialize SQLite store
  4. Create service, warmer and API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT, default 8080)
  -db      SQLite database path (overrides DATABASE_PATH, default holdings.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  LOG_LEVEL, ALLOWED_ORIGINS, SUMMARY_CACHE_TTL, SUMMARY_WORKERS,
  RATE_LIMIT_RPS, RATE_LIMIT_BURST, WARM_INTERVAL. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the summary warmer
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/holdings.db"
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - holdings/service.go: Service
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/holdings-engine/api"
	"github.com/warp/holdings-engine/config"
	"github.com/warp/holdings-engine/holdings"
	"github.com/warp/holdings-engine/logger"
	"github.com/warp/holdings-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()

	logger.Init(cfg.LogLevel)
	log := logger.L

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Error("Failed to initialize database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("Database initialized", "path", *dbPath)

	svc := holdings.NewService(store,
		holdings.WithLogger(log),
		holdings.WithWorkers(cfg.SummaryWorkers),
		holdings.WithCacheTTL(cfg.SummaryCacheTTL),
	)

	warmer := holdings.NewWarmer(svc, cfg.WarmInterval)
	warmer.Start()
	defer warmer.Stop()

	handler := api.NewHandler(store, svc)
	handler.Warmer = warmer

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", "http://localhost:"+*port, "api", "http://localhost:"+*port+"/api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	warmer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server stopped")
}
