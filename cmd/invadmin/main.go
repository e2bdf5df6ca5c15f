package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/invadmin/internal/api"
	"github.com/erazemk/invadmin/internal/auth"
	"github.com/erazemk/invadmin/internal/builder"
	"github.com/erazemk/invadmin/internal/client"
	"github.com/erazemk/invadmin/internal/config"
	"github.com/erazemk/invadmin/internal/logging"
	"github.com/erazemk/invadmin/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Args[2:]))
	}

	cfg, err := config.Load(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := logging.Setup(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	metrics := api.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gate := &auth.Gate{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.JWTSecret,
	}

	proxy := api.NewProxy(cfg.BackendURL, cfg.BackendTimeout, metrics)

	// Pages reach the backend through the proxy in-process. The page router
	// has already checked the admin cookie, so this router is not gated.
	backend := client.New("http://invadmin",
		client.WithTimeout(cfg.BackendTimeout),
		client.WithHandler(api.NewRouter(proxy, nil)),
	)
	builders := builder.NewRegistry(func() *builder.Builder {
		return builder.New(backend, nil)
	}, clock.WallClock, builder.DefaultSessionTTL, builder.DefaultMaxSessions)
	defer builders.Close()

	// Set up routers.
	apiRouter := api.NewRouter(proxy, gate)
	webRouter, err := web.NewRouter(web.Options{
		Client:       backend,
		Builders:     builders,
		SessionKey:   cfg.SessionKey,
		CSRFKey:      cfg.CSRFKey,
		CookieSecure: cfg.CookieSecure,
		Gate:         gate,
		Version:      version,
	})
	if err != nil {
		slog.Error("failed to set up web router", "error", err)
		os.Exit(1)
	}

	// Combine: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
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

	slog.Info("server started",
		"addr", cfg.Addr,
		"backend", cfg.BackendURL,
		"version", version,
		"auth", gate.Enabled(),
		"csrf", cfg.CSRFEnabled(),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// hashPassword prints the bcrypt hash for ADMIN_PASSWORD_HASH. The password
// is read from the argument or, if absent, from the first line of stdin.
func hashPassword(args []string) int {
	var password string
	switch len(args) {
	case 0:
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "Usage: invadmin hash-password <password>")
			return 1
		}
		password = strings.TrimRight(line, "\r\n")
	case 1:
		password = args[0]
	default:
		fmt.Fprintln(os.Stderr, "Usage: invadmin hash-password <password>")
		return 1
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
