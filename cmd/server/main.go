package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xHacka/logstat/internal/config"
	"github.com/xHacka/logstat/internal/csrf"
	"github.com/xHacka/logstat/internal/handlers"
	"github.com/xHacka/logstat/internal/ingest"
	"github.com/xHacka/logstat/internal/logging"
	"github.com/xHacka/logstat/internal/repository"
	"github.com/xHacka/logstat/internal/source"
)

const retentionInterval = 6 * time.Hour

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogJSON, logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("server", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return err
	}

	repo, err := repository.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	rc := handlers.RouterConfig{
		Repo:           repo,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Analysis: ingest.Options{
			Workers:  cfg.Analysis.Workers,
			FailFast: cfg.Analysis.FailFast,
			Opener: source.NewOpener(
				source.WithTimeout(cfg.Analysis.HTTPTimeout),
				source.WithMaxLineBytes(cfg.Analysis.MaxLineBytes),
			),
		},
	}
	if cfg.CSRF {
		rc.CSRF = csrf.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go retain(ctx, repo, cfg.Retention())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handlers.NewRouter(rc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// retain purges expired resources and reports until ctx is done.
func retain(ctx context.Context, repo repository.Repository, maxAge time.Duration) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-maxAge)
			n, err := handlers.Purge(ctx, repo, cutoff)
			if err != nil {
				slog.Warn("retention", "error", err)
				continue
			}
			slog.Info("retention", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
		}
	}
}
