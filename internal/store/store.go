package store

import (
	"context"
	"errors"

	"github.com/backyonatan-alt/fiftyone/internal/model"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("entry not found")

// Store is the repository interface for configuration entries.
type Store interface {
	// Migrate creates the schema if needed.
	Migrate(ctx context.Context) error
	// List returns every entry ordered by creation time.
	List(ctx context.Context) ([]model.Entry, error)
	// Get returns one entry or ErrNotFound.
	Get(ctx context.Context, id string) (model.Entry, error)
	// Create persists a new entry.
	Create(ctx context.Context, entry model.Entry) error
	// UpdateImageSources replaces the image source list of an entry.
	UpdateImageSources(ctx context.Context, id string, sources []model.ImageSource) error
	// Delete removes an entry. Deleting an unknown id returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}
