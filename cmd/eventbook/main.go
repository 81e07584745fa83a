package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oakmund/eventbook/internal/api"
	"github.com/oakmund/eventbook/internal/app"
	"github.com/oakmund/eventbook/internal/auth"
	"github.com/oakmund/eventbook/internal/cache"
	"github.com/oakmund/eventbook/internal/config"
	"github.com/oakmund/eventbook/internal/eventapi"
	"github.com/oakmund/eventbook/internal/reconcile"
	"github.com/oakmund/eventbook/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	_ = godotenv.Load()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level(cfg.LogLevel)}))

	client := eventapi.New(eventapi.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
	})
	fallback := cache.Store{Dir: cfg.CacheDir}

	sessions := auth.NewManager(auth.ManagerOptions{
		API:        client,
		Sessions:   auth.Store{Path: cfg.SessionPath},
		Cache:      fallback,
		Passphrase: cfg.SessionPassphrase,
		Logger:     logger,
	})
	if err := sessions.Restore(); err != nil {
		logger.Info("no stored session", "err", err)
	}

	calendar := store.New(store.Options{
		Remote: client,
		Cache:  fallback,
		Users:  sessions,
		Logger: logger,
	})

	var subscriber reconcile.Subscriber
	if cfg.StreamEnabled {
		subscriber = client
	}
	reconciler := reconcile.New(reconcile.Options{
		Reload:   calendar.Refresh,
		Stream:   subscriber,
		Interval: cfg.PollInterval,
		CronSpec: cfg.ReconcileCron,
		Logger:   logger,
	})

	server := api.New(api.Options{
		Calendar:     calendar,
		RequireToken: cfg.RequireBearerToken,
		Token:        cfg.BearerToken,
		Logger:       logger,
	})

	application := app.New(app.Options{
		Config:     cfg,
		Loader:     calendar,
		Reconciler: reconciler,
		Server:     server,
		Logger:     logger,
	})
	return application.Run(ctx)
}

func level(v string) slog.Level {
	switch v {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
