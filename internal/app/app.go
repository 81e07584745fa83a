package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/oakmund/eventbook/internal/config"
	"github.com/oakmund/eventbook/internal/store"
)

// Loader performs the initial and recurring load; the store satisfies
// it.
type Loader interface {
	Load(ctx context.Context, filters store.Filters)
}

// Runner is a blocking background task torn down via context; the
// reconciler satisfies it.
type Runner interface {
	Run(ctx context.Context) error
}

// Listener serves the local HTTP surface; the api server satisfies it.
type Listener interface {
	ServeTCP(ctx context.Context, bind string) error
}

// Application wires the store, the reconciliation loop, and the local
// surface into one supervised lifecycle.
type Application struct {
	cfg        config.Config
	loader     Loader
	reconciler Runner
	server     Listener
	logger     *slog.Logger
}

type Options struct {
	Config     config.Config
	Loader     Loader
	Reconciler Runner
	Server     Listener
	Logger     *slog.Logger
}

func New(opts Options) *Application {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Application{
		cfg:        opts.Config,
		loader:     opts.Loader,
		reconciler: opts.Reconciler,
		server:     opts.Server,
		logger:     logger,
	}
}

// Run loads the initial snapshot, then supervises the reconciler and
// the local server until the context ends or one of them fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.loader != nil {
		a.loader.Load(ctx, store.Filters{})
	}

	errCh := make(chan error, 2)
	wg := sync.WaitGroup{}

	if a.reconciler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("reconciler: %w", err)
			}
		}()
	}

	if a.server != nil && a.cfg.BindAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.server.ServeTCP(ctx, a.cfg.BindAddress)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("local server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		cancel()
		wg.Wait()
		return err
	case <-ctx.Done():
		wg.Wait()
		return nil
	}
}
