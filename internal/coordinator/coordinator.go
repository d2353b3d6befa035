package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/backyonatan-alt/fiftyone/internal/api"
	"github.com/backyonatan-alt/fiftyone/internal/model"
)

const (
	DefaultInterval = 10 * time.Minute
	// DefaultCycleTimeout bounds one refresh cycle once it no longer
	// follows its caller's context.
	DefaultCycleTimeout = 5 * time.Minute
)

// Listener is called once per finished refresh cycle. On failure snap is
// the retained previous snapshot (possibly nil) and err is an
// *UpdateFailedError.
type Listener func(snap *model.Snapshot, err error)

// Observer receives refresh instrumentation.
type Observer interface {
	ObserveRefresh(took time.Duration, err error)
	ObserveResourceFailure(resource string)
}

// Coordinator orchestrates: fetch every resource -> build snapshot ->
// publish to listeners.
type Coordinator struct {
	api       API
	resources []Resource
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	observer  Observer

	life     context.Context
	shutdown context.CancelFunc

	group    singleflight.Group
	snapshot atomic.Pointer[model.Snapshot]

	mu          sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
	lastSuccess bool
	lastErr     error
}

type Option func(*Coordinator)

func WithResources(rs ...Resource) Option {
	return func(c *Coordinator) {
		if len(rs) > 0 {
			c.resources = rs
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithCycleTimeout bounds a single refresh cycle.
func WithCycleTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

func New(a API, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:       a,
		resources: DefaultResources(),
		interval:  DefaultInterval,
		timeout:   DefaultCycleTimeout,
		logger:    slog.Default(),
		listeners: make(map[uint64]Listener),
	}
	c.life, c.shutdown = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interval is the period between scheduled refreshes.
func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// Snapshot returns the last published snapshot, or nil before the first
// successful refresh.
func (c *Coordinator) Snapshot() *model.Snapshot {
	return c.snapshot.Load()
}

// LastUpdateSuccess reports whether the most recent cycle published a
// snapshot.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}

// LastError returns the error of the most recent failed cycle, or nil when
// it succeeded.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers fn for every finished cycle and returns its
// unsubscribe function.
func (c *Coordinator) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// FirstRefresh is the setup-time refresh. An error means the entry cannot
// be set up yet.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("first refresh: %w", err)
	}
	return nil
}

// Close cancels any cycle in flight. Later refreshes return
// context.Canceled without starting a cycle.
func (c *Coordinator) Close() {
	c.shutdown()
}

// Refresh runs one cycle. Concurrent callers share the cycle already in
// flight instead of starting another. The cycle does not follow ctx: a
// caller that gives up stops waiting but the cycle completes for the
// others.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.life.Err(); err != nil {
		return err
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		runCtx, cancel := c.cycleContext(ctx)
		defer cancel()
		return nil, c.run(runCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("refresh coalesced with running cycle")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cycleContext keeps ctx's values, drops its cancellation and ties the
// cycle to the coordinator lifetime and the cycle timeout instead.
func (c *Coordinator) cycleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	stop := context.AfterFunc(c.life, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (c *Coordinator) run(ctx context.Context) error {
	start := time.Now()
	c.logger.Info("refresh starting", "resources", len(c.resources))

	working := &model.Snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	for _, res := range c.resources {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("resource %s: panic: %v", res.Key, r)
				}
			}()

			ferr := res.fetch(gctx, c.api, working)
			if ferr == nil {
				return nil
			}
			if !api.IsError(ferr) {
				return fmt.Errorf("resource %s: %w", res.Key, ferr)
			}

			c.logger.Warn("fetch failed", "resource", res.Key, "error", ferr)
			if c.observer != nil {
				c.observer.ObserveResourceFailure(res.Key)
			}
			res.reset(working)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return c.fail(&UpdateFailedError{Err: err}, start)
	}

	working.RefreshedAt = time.Now().UTC()
	c.snapshot.Store(working)

	c.mu.Lock()
	c.lastSuccess = true
	c.lastErr = nil
	c.mu.Unlock()

	took := time.Since(start)
	c.logger.Info("refresh complete",
		"took", took,
		"stocks", len(working.Stocks),
		"webcams", len(working.Webcams),
		"pictures", len(working.Pictures),
	)
	if c.observer != nil {
		c.observer.ObserveRefresh(took, nil)
	}

	c.notify(working, nil)
	return nil
}

func (c *Coordinator) fail(err error, start time.Time) error {
	c.mu.Lock()
	c.lastSuccess = false
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Error("refresh failed", "error", err)
	if c.observer != nil {
		c.observer.ObserveRefresh(time.Since(start), err)
	}

	c.notify(c.snapshot.Load(), err)
	return err
}

func (c *Coordinator) notify(snap *model.Snapshot, err error) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap, err)
	}
}
