// Entry point for the partwatch HTTP service: chi router behind the shield
// stack, SQLite-backed tracker service, daily scrape scheduler.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/partwatch/dbopen"
	"github.com/hazyhaar/partwatch/shield"
	"github.com/hazyhaar/partwatch/tracker"
)

func main() {
	cfg, err := loadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	trackerCfg := cfg.trackerConfig()
	var opts []tracker.ServiceOption
	if cfg.Scrape.Browser {
		opts = append(opts, tracker.WithHeadlessBrowser())
	}

	svc, err := tracker.New(db, trackerCfg, logger, opts...)
	if err != nil {
		slog.Error("tracker service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	seedTargets(ctx, svc, cfg.Targets)

	// Daily scheduler.
	svc.Start(ctx)

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}
	r.Mount("/", svc.Router())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute, // manual scrape runs answer when done
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// seedTargets imports the config-declared targets. Already-registered URLs
// are skipped, so restarts are idempotent.
func seedTargets(ctx context.Context, svc *tracker.Service, seeds []SeedTarget) {
	if len(seeds) == 0 {
		return
	}
	targets := make([]*tracker.Target, 0, len(seeds))
	for _, s := range seeds {
		targets = append(targets, &tracker.Target{
			URL:      s.URL,
			Source:   s.Source,
			Category: s.Category,
			Brand:    s.Brand,
			Render:   s.Render,
		})
	}
	added, skipped, err := svc.BulkAddTargets(ctx, targets)
	if err != nil {
		slog.Warn("seed targets", "error", err)
		return
	}
	slog.Info("seeded targets", "added", added, "skipped", skipped)
}
