package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/db"
	"github.com/danielhkuo/planning-poker/directory"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/router"
)

func main() {
	var err error

	// Load .env if present; real environment wins
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file, using environment")
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// Seed scoring methods
	seed := db.DefaultScoringMethods()
	if cfg.ScoringMethodsFile != "" {
		seed, err = os.ReadFile(cfg.ScoringMethodsFile)
		if err != nil {
			slog.Error("reading scoring methods failed", "file", cfg.ScoringMethodsFile, "error", err)
			os.Exit(1)
		}
	}
	inserted, err := db.SeedScoringMethods(context.Background(), dbConn, seed)
	if err != nil {
		slog.Error("seeding scoring methods failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Scoring methods ready", "inserted", inserted)

	// Group directory
	groups, err := directory.Load(cfg.GroupsFile)
	if err != nil {
		slog.Error("loading groups failed", "file", cfg.GroupsFile, "error", err)
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(cfg.VoteRateLimit, cfg.VoteRateBurst)
	defer limiter.Close()

	// Create router
	mux := router.NewRouter(dbConn, cfg, groups, limiter)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal, then drain in-flight requests
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
