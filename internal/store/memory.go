package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/backyonatan-alt/fiftyone/internal/model"
)

// Memory keeps entries in process memory. Used when no database is
// configured; entries are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]model.Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]model.Entry)}
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) List(context.Context) ([]model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, clone(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return model.Entry{}, ErrNotFound
	}
	return clone(e), nil
}

func (m *Memory) Create(_ context.Context, entry model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[entry.ID]; ok {
		return fmt.Errorf("entry %s already exists", entry.ID)
	}
	for _, e := range m.entries {
		if e.APIURL == entry.APIURL {
			return fmt.Errorf("entry for %s already exists", entry.APIURL)
		}
	}
	m.entries[entry.ID] = clone(entry)
	return nil
}

func (m *Memory) UpdateImageSources(_ context.Context, id string, sources []model.ImageSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.ImageSources = slices.Clone(sources)
	m.entries[id] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func clone(e model.Entry) model.Entry {
	e.ImageSources = slices.Clone(e.ImageSources)
	return e
}
