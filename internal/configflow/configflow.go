package configflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/validate"

	"github.com/backyonatan-alt/fiftyone/internal/api"
	"github.com/backyonatan-alt/fiftyone/internal/model"
	"github.com/backyonatan-alt/fiftyone/internal/registry"
	"github.com/backyonatan-alt/fiftyone/internal/store"
)

const DefaultTitle = "FiftyOne"

// FormError is a recoverable error the user can fix by resubmitting the
// form. Field "base" means the error is not tied to one input.
type FormError struct {
	Field string
	Code  string
}

func (e *FormError) Error() string {
	return e.Field + ": " + e.Code
}

var (
	// ErrCannotConnect is the form error of a failed connection probe.
	ErrCannotConnect = &FormError{Field: "base", Code: "cannot_connect"}
	// ErrAlreadyConfigured aborts the flow: an entry for the URL exists.
	ErrAlreadyConfigured = errors.New("already_configured")
)

// Prober checks that an API base URL answers.
type Prober func(ctx context.Context, baseURL string) bool

// Registry is the part of the entry registry the flow drives.
type Registry interface {
	Setup(ctx context.Context, entry model.Entry) (*registry.Runtime, error)
	Reload(ctx context.Context, entry model.Entry) (*registry.Runtime, error)
	Unload(id string) error
}

type UserInput struct {
	APIURL string `json:"api_url" validate:"required|fullUrl"`
}

type Flow struct {
	store    store.Store
	registry Registry
	probe    Prober
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Flow)

func WithProber(p Prober) Option {
	return func(f *Flow) {
		if p != nil {
			f.probe = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

func New(s store.Store, r Registry, opts ...Option) *Flow {
	f := &Flow{
		store:    s,
		registry: r,
		probe:    probeAPI,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func probeAPI(ctx context.Context, baseURL string) bool {
	return api.New(baseURL).TestConnection(ctx)
}

// User runs the user step: an empty URL takes the default, an already
// configured URL aborts, and an unreachable API yields ErrCannotConnect.
// On success the entry is persisted and set up.
func (f *Flow) User(ctx context.Context, in UserInput) (model.Entry, error) {
	in.APIURL = api.New(in.APIURL).BaseURL()
	if v := validate.Struct(&in); !v.Validate() {
		return model.Entry{}, &FormError{Field: "api_url", Code: "invalid_url"}
	}

	entries, err := f.store.List(ctx)
	if err != nil {
		return model.Entry{}, fmt.Errorf("list entries: %w", err)
	}
	for _, e := range entries {
		if e.APIURL == in.APIURL {
			return model.Entry{}, ErrAlreadyConfigured
		}
	}

	if !f.probe(ctx, in.APIURL) {
		f.logger.Warn("config flow: cannot connect", "url", in.APIURL)
		return model.Entry{}, ErrCannotConnect
	}

	entry := model.Entry{
		ID:           uuid.NewString(),
		Title:        DefaultTitle,
		APIURL:       in.APIURL,
		ImageSources: []model.ImageSource{},
		CreatedAt:    f.now().UTC(),
	}
	if err := f.store.Create(ctx, entry); err != nil {
		return model.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	if _, err := f.registry.Setup(ctx, entry); err != nil {
		f.logger.Error("config flow: entry created but setup failed", "entry", entry.ID, "error", err)
		return entry, err
	}
	f.logger.Info("config entry created", "entry", entry.ID, "url", entry.APIURL)
	return entry, nil
}

// Options runs the options step: the image source list is validated,
// persisted, and the entry reloaded so its image entities follow the list.
func (f *Flow) Options(ctx context.Context, id string, sources []model.ImageSource) (model.Entry, error) {
	cleaned, err := NormalizeImageSources(sources)
	if err != nil {
		return model.Entry{}, err
	}

	if err := f.store.UpdateImageSources(ctx, id, cleaned); err != nil {
		return model.Entry{}, fmt.Errorf("update image sources: %w", err)
	}
	entry, err := f.store.Get(ctx, id)
	if err != nil {
		return model.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	if _, err := f.registry.Reload(ctx, entry); err != nil {
		return entry, fmt.Errorf("reload entry: %w", err)
	}
	f.logger.Info("image sources updated", "entry", id, "count", len(cleaned))
	return entry, nil
}

// Remove unloads and deletes an entry.
func (f *Flow) Remove(ctx context.Context, id string) error {
	if err := f.registry.Unload(id); err != nil && !errors.Is(err, registry.ErrNotLoaded) {
		return err
	}
	if err := f.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	f.logger.Info("config entry removed", "entry", id)
	return nil
}

// NormalizeImageSources trims the list, requires a code on every source,
// rejects duplicate codes, and defaults names to codes.
func NormalizeImageSources(sources []model.ImageSource) ([]model.ImageSource, error) {
	out := make([]model.ImageSource, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for i, s := range sources {
		s.Code = strings.TrimSpace(s.Code)
		s.Name = strings.TrimSpace(s.Name)
		if v := validate.Struct(&s); !v.Validate() {
			return nil, &FormError{Field: fmt.Sprintf("image_sources[%d].code", i), Code: "required"}
		}
		if _, dup := seen[s.Code]; dup {
			return nil, &FormError{Field: fmt.Sprintf("image_sources[%d].code", i), Code: "duplicate_code"}
		}
		seen[s.Code] = struct{}{}
		if s.Name == "" {
			s.Name = s.Code
		}
		out = append(out, s)
	}
	return out, nil
}
