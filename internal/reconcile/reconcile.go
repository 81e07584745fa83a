// Package reconcile keeps the local store eventually consistent with
// the remote service: a periodic poll and an optional push stream both
// feed one debounced reload signal. A change notification triggers a
// full reload rather than incremental patching, trading redundant
// fetches for simplicity.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oakmund/eventbook/internal/eventapi"
)

// Subscriber is the push side of the remote client.
type Subscriber interface {
	SubscribeRealtime(ctx context.Context, onMessage func(eventapi.StreamMessage)) error
}

const (
	defaultInterval = time.Minute
	defaultDebounce = 250 * time.Millisecond
	streamRetryWait = 5 * time.Second
)

type Reconciler struct {
	reload   func(context.Context)
	stream   Subscriber
	interval time.Duration
	cronSpec string
	debounce time.Duration
	log      *slog.Logger

	signals chan struct{}
}

type Options struct {
	// Reload re-runs the full load sequence; typically Store.Refresh.
	Reload func(context.Context)

	// Stream is optional; nil disables push notifications.
	Stream Subscriber

	// Interval is the polling period. CronSpec, when set, replaces the
	// interval with a cron schedule.
	Interval time.Duration
	CronSpec string

	// Debounce coalesces poll ticks and stream notifications that land
	// close together.
	Debounce time.Duration

	Logger *slog.Logger
}

func New(opts Options) *Reconciler {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		reload:   opts.Reload,
		stream:   opts.Stream,
		interval: interval,
		cronSpec: opts.CronSpec,
		debounce: debounce,
		log:      logger,
		signals:  make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled. The poll timer and the stream
// subscription are torn down together; reloads in flight at teardown
// finish against the cancelled context and their results are discarded
// by the remote client.
func (r *Reconciler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	if r.cronSpec != "" {
		c := cron.New()
		if _, err := c.AddFunc(r.cronSpec, r.notify); err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.poll(ctx)
		}()
	}

	if r.stream != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.consumeStream(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-r.signals:
			if !r.settle(ctx) {
				wg.Wait()
				return nil
			}
			r.reload(ctx)
		}
	}
}

func (r *Reconciler) poll(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.notify()
		}
	}
}

// consumeStream keeps the push subscription alive, reconnecting after
// transient drops.
func (r *Reconciler) consumeStream(ctx context.Context) {
	for {
		err := r.stream.SubscribeRealtime(ctx, func(msg eventapi.StreamMessage) {
			if msg.IsMutation() {
				r.notify()
			}
		})
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			r.log.Warn("realtime stream dropped, reconnecting", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(streamRetryWait):
		}
	}
}

// notify requests a reload without blocking; back-to-back signals
// collapse into one.
func (r *Reconciler) notify() {
	select {
	case r.signals <- struct{}{}:
	default:
	}
}

// settle waits out the debounce window, swallowing further signals.
// It returns false when the context ended while waiting.
func (r *Reconciler) settle(ctx context.Context) bool {
	timer := time.NewTimer(r.debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-r.signals:
		case <-timer.C:
			return true
		}
	}
}
