// Package main is the entry point for the Mealboard server. It loads
// configuration, establishes database connections, wires together all
// plugins, starts the archival scheduler, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/keyxmakerx/mealboard/internal/app"
	"github.com/keyxmakerx/mealboard/internal/config"
	"github.com/keyxmakerx/mealboard/internal/database"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting Mealboard",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("timezone", cfg.Timezone.String()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	if err := database.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Connect to Redis (optional) ---
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.Any("error", err))
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		slog.Info("connected to Redis")
	} else {
		slog.Info("redis not configured, rate limit counters kept in memory")
	}

	// --- Create Application ---
	application := app.New(cfg, db, rdb)
	application.RegisterRoutes()

	if err := application.Auth.EnsureAdmin(ctx, auth.AdminSeed{
		Username:    cfg.Auth.AdminUsername,
		DisplayName: cfg.Auth.AdminDisplayName,
		Password:    cfg.Auth.AdminPassword,
	}); err != nil {
		slog.Error("failed to seed admin account", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Archival scheduler ---
	archiverDone := application.Archiver.Start(ctx)

	// --- Start Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := serveUntilSignal(application.Start, application.Echo, quit, cancel, archiverDone, shutdownTimeout); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// shutdownTimeout is how long in-flight requests get to complete.
const shutdownTimeout = 10 * time.Second

// httpServer is the part of echo.Echo the shutdown sequence drives.
type httpServer interface {
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs start until a signal arrives on quit. It then stops
// the scheduler first, so no pass is cut off by a closed pool, and drains
// HTTP connections. It returns only once the drain has finished; start
// itself returns as soon as the listener closes.
func serveUntilSignal(start func() error, srv httpServer, quit <-chan os.Signal,
	cancel context.CancelFunc, archiverDone <-chan struct{}, timeout time.Duration) error {
	stopped := make(chan struct{})
	drained := make(chan struct{})

	go func() {
		defer close(drained)
		select {
		case <-quit:
		case <-stopped:
			return
		}

		slog.Info("shutting down server...")
		cancel()
		<-archiverDone

		ctx, stop := context.WithTimeout(context.Background(), timeout)
		defer stop()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	err := start()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		close(stopped)
		cancel()
		<-archiverDone
		<-drained
		return err
	}
	<-drained
	return nil
}

// setupLogging configures the global slog logger. Development uses text
// format for readability, production uses JSON for log aggregation. The
// level comes from LOG_LEVEL.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
