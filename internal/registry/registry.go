package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/backyonatan-alt/fiftyone/internal/api"
	"github.com/backyonatan-alt/fiftyone/internal/coordinator"
	"github.com/backyonatan-alt/fiftyone/internal/entity"
	"github.com/backyonatan-alt/fiftyone/internal/model"
	"github.com/backyonatan-alt/fiftyone/internal/scheduler"
)

var (
	ErrAlreadySetUp = errors.New("entry already set up")
	ErrNotLoaded    = errors.New("entry not loaded")
)

// UpdateFunc is called after every finished refresh cycle of an entry, and
// once right after setup. err is the cycle's *coordinator.UpdateFailedError.
type UpdateFunc func(rt *Runtime, err error)

// Runtime is everything one set-up entry owns.
type Runtime struct {
	Entry       model.Entry
	Client      *api.Client
	Coordinator *coordinator.Coordinator
	Scheduler   *scheduler.Scheduler
	Entities    *entity.Set

	unsubscribe func()
}

type Options struct {
	Interval      time.Duration
	Resources     []coordinator.Resource
	ClientOptions []api.Option
	MaxHeight     int
	APIObserver   api.Observer
	Observer      coordinator.Observer
	OnUpdate      UpdateFunc
	Logger        *slog.Logger
}

// Registry is the table of set-up entries keyed by entry id.
type Registry struct {
	ctx    context.Context
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	runtimes map[string]*Runtime
	pending  map[string]struct{}
}

// New returns an empty registry. Schedulers started by Setup run until ctx
// is done or their entry is unloaded.
func New(ctx context.Context, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ctx:      ctx,
		opts:     opts,
		logger:   logger,
		runtimes: make(map[string]*Runtime),
		pending:  make(map[string]struct{}),
	}
}

// Setup builds the client and coordinator of entry, runs the first refresh,
// builds the entities and starts the scheduler. A failed first refresh
// leaves nothing behind.
func (r *Registry) Setup(ctx context.Context, entry model.Entry) (*Runtime, error) {
	if err := r.reserve(entry.ID); err != nil {
		return nil, err
	}
	defer r.release(entry.ID)

	logger := r.logger.With("entry", entry.ID)

	clientOpts := append([]api.Option{api.WithLogger(logger)}, r.opts.ClientOptions...)
	if r.opts.APIObserver != nil {
		clientOpts = append(clientOpts, api.WithObserver(r.opts.APIObserver))
	}
	if r.opts.MaxHeight > 0 {
		clientOpts = append(clientOpts, api.WithMaxHeight(r.opts.MaxHeight))
	}
	client := api.New(entry.APIURL, clientOpts...)

	coordOpts := []coordinator.Option{
		coordinator.WithInterval(r.opts.Interval),
		coordinator.WithLogger(logger),
		coordinator.WithResources(r.opts.Resources...),
	}
	if r.opts.Observer != nil {
		coordOpts = append(coordOpts, coordinator.WithObserver(r.opts.Observer))
	}
	coord := coordinator.New(client, coordOpts...)

	if err := coord.FirstRefresh(ctx); err != nil {
		coord.Close()
		return nil, fmt.Errorf("setup entry %s: %w", entry.ID, err)
	}

	rt := &Runtime{
		Entry:       entry,
		Client:      client,
		Coordinator: coord,
		Entities: entity.Build(coord, client, entity.BuildOptions{
			EntryID:      entry.ID,
			ImageSources: entry.ImageSources,
			MaxHeight:    r.opts.MaxHeight,
			Logger:       logger,
		}),
		Scheduler: scheduler.New(coord, coord.Interval(), logger),
	}
	if r.opts.OnUpdate != nil {
		rt.unsubscribe = coord.Subscribe(func(_ *model.Snapshot, err error) {
			r.opts.OnUpdate(rt, err)
		})
	}

	r.mu.Lock()
	r.runtimes[entry.ID] = rt
	r.mu.Unlock()

	go rt.Scheduler.Start(r.ctx)

	if r.opts.OnUpdate != nil {
		r.opts.OnUpdate(rt, nil)
	}
	logger.Info("entry set up", "url", client.BaseURL(), "entities", rt.Entities.Len(), "interval", coord.Interval())
	return rt, nil
}

// Unload stops the entry's scheduler, waits for it to exit and forgets the
// entry.
func (r *Registry) Unload(id string) error {
	r.mu.Lock()
	rt, ok := r.runtimes[id]
	delete(r.runtimes, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotLoaded
	}

	if rt.unsubscribe != nil {
		rt.unsubscribe()
	}
	rt.Scheduler.Stop()
	<-rt.Scheduler.Done()
	rt.Coordinator.Close()
	r.logger.Info("entry unloaded", "entry", id)
	return nil
}

// Reload unloads entry (when loaded) and sets it up again, so that entity
// changes such as a new image source list take effect.
func (r *Registry) Reload(ctx context.Context, entry model.Entry) (*Runtime, error) {
	if err := r.Unload(entry.ID); err != nil && !errors.Is(err, ErrNotLoaded) {
		return nil, err
	}
	return r.Setup(ctx, entry)
}

func (r *Registry) Get(id string) (*Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.runtimes[id]
	return rt, ok
}

// All returns every runtime ordered by entry creation time.
func (r *Registry) All() []*Runtime {
	r.mu.RLock()
	out := make([]*Runtime, 0, len(r.runtimes))
	for _, rt := range r.runtimes {
		out = append(out, rt)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Entry, out[j].Entry
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runtimes)
}

// Close unloads every entry.
func (r *Registry) Close() {
	for _, rt := range r.All() {
		_ = r.Unload(rt.Entry.ID)
	}
}

func (r *Registry) reserve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runtimes[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrAlreadySetUp)
	}
	if _, ok := r.pending[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrAlreadySetUp)
	}
	r.pending[id] = struct{}{}
	return nil
}

func (r *Registry) release(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}
