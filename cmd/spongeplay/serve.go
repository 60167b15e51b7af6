package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bikinibottom/spongeplay/internal/auth"
	"github.com/bikinibottom/spongeplay/internal/board"
	"github.com/bikinibottom/spongeplay/internal/config"
	"github.com/bikinibottom/spongeplay/internal/database"
	"github.com/bikinibottom/spongeplay/internal/geoip"
	"github.com/bikinibottom/spongeplay/internal/logging"
	"github.com/bikinibottom/spongeplay/internal/notify"
	"github.com/bikinibottom/spongeplay/internal/server"
	"github.com/bikinibottom/spongeplay/internal/slack"
	"github.com/bikinibottom/spongeplay/internal/storage"
	"github.com/bikinibottom/spongeplay/internal/webhook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	backend, closeBackend, err := openBackend(setupCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer closeBackend()

	gate, err := newGate(cfg.Admin)
	if err != nil {
		return err
	}

	regions, err := geoip.New(cfg.GeoIP.Path)
	if err != nil {
		return fmt.Errorf("geoip: %w", err)
	}
	defer func() { _ = regions.Close() }()

	var webFS fs.FS
	if cfg.Web.Dir != "" {
		webFS = os.DirFS(cfg.Web.Dir)
		slog.Info("serving frontend", "dir", cfg.Web.Dir)
	}

	srv := server.New(server.Config{
		Backend:        backend,
		Notifier:       newNotifier(cfg),
		Regions:        regions,
		Gate:           gate,
		SessionSecret:  cfg.Session.Secret,
		SessionTTL:     cfg.Session.TTL,
		WebFS:          webFS,
		BaseURL:        cfg.BaseURL,
		FrameAncestors: cfg.Web.FrameAncestors,
		LoginLimit:     server.RateLimit{RequestsPerSecond: cfg.RateLimit.LoginRPS, Burst: cfg.RateLimit.LoginBurst},
		WriteLimit:     server.RateLimit{RequestsPerSecond: cfg.RateLimit.WriteRPS, Burst: cfg.RateLimit.WriteBurst},
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("spongeplay listening", "addr", cfg.Addr, "storage", cfg.Storage.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// openBackend builds the configured document store. The returned func
// releases its connections.
func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.BackendFile:
		slog.Info("storage: using files", "dir", cfg.Storage.Dir)
		return storage.NewFileBackend(cfg.Storage.Dir), noop, nil

	case config.BackendS3:
		store, err := storage.NewS3Backend(ctx, storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("storage initialization failed: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("storage bucket check failed: %w", err)
		}
		slog.Info("storage: bucket ready", "bucket", cfg.S3.Bucket)
		return store, noop, nil

	case config.BackendPostgres:
		db, err := database.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.Migrate(cfg.Database.URL); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		slog.Info("storage: database migrations applied")
		return database.NewDocuments(db.Pool, db), db.Close, nil

	case config.BackendSQLite:
		lite, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storage: using sqlite", "path", cfg.SQLite.Path)
		return lite, func() { _ = lite.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func newGate(cfg config.AdminConfig) (*auth.Gate, error) {
	if cfg.PasswordHash != "" {
		return auth.NewGateFromHash(cfg.PasswordHash)
	}
	gate, err := auth.NewGate(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}
	return gate, nil
}

func newNotifier(cfg *config.Config) board.Notifier {
	notifiers := []board.Notifier{notify.LogNotifier{}}
	if cfg.Webhook.URL != "" {
		notifiers = append(notifiers, webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret))
		slog.Info("webhook: board events enabled", "url", cfg.Webhook.URL)
	}
	if cfg.Slack.WebhookURL != "" {
		notifiers = append(notifiers, slack.New(cfg.Slack.WebhookURL, cfg.BaseURL))
		slog.Info("slack: board events enabled")
	}
	return notify.NewMulti(notifiers...)
}
