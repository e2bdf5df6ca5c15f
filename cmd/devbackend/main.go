package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/invadmin/internal/api"
	"github.com/erazemk/invadmin/internal/backend"
	"github.com/erazemk/invadmin/internal/db"
	"github.com/erazemk/invadmin/internal/logging"
	"github.com/erazemk/invadmin/internal/store"
)

func main() {
	fs := flag.NewFlagSet("devbackend", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "inventory.sqlite3", "")
	fs.StringVar(&dbPath, "d", "inventory.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var seed bool
	fs.BoolVar(&seed, "seed", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: devbackend [flags]

Serves the inventory REST API on SQLite for local development.

Flags:
  -d, -db <path>          SQLite database path (default: inventory.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -seed                   add sample items when the database has none
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := logging.Setup(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	if seed {
		if err := seedItems(context.Background(), database); err != nil {
			slog.Error("failed to seed items", "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(backend.NewRouter(database)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("backend started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("backend stopped, closing database")
}

// seedItems adds a few sample items to an empty database.
func seedItems(ctx context.Context, database *sql.DB) error {
	items, err := store.ListItems(ctx, database)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return nil
	}

	samples := []struct {
		name     string
		quantity int
	}{
		{"Widget", 10},
		{"Gadget", 5},
		{"Gizmo", 0},
	}
	for _, s := range samples {
		if _, err := store.CreateItem(ctx, database, s.name, s.quantity); err != nil {
			return fmt.Errorf("seeding %s: %w", s.name, err)
		}
	}
	slog.Info("seeded sample items", "count", len(samples))
	return nil
}
