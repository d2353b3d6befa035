package configflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backyonatan-alt/fiftyone/internal/api"
	"github.com/backyonatan-alt/fiftyone/internal/model"
	"github.com/backyonatan-alt/fiftyone/internal/registry"
	"github.com/backyonatan-alt/fiftyone/internal/store"
)

type fakeRegistry struct {
	mu       sync.Mutex
	setup    []model.Entry
	reloaded []model.Entry
	unloaded []string
	setupErr error
}

func (r *fakeRegistry) Setup(_ context.Context, e model.Entry) (*registry.Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setupErr != nil {
		return nil, r.setupErr
	}
	r.setup = append(r.setup, e)
	return &registry.Runtime{Entry: e}, nil
}

func (r *fakeRegistry) Reload(_ context.Context, e model.Entry) (*registry.Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloaded = append(r.reloaded, e)
	return &registry.Runtime{Entry: e}, nil
}

func (r *fakeRegistry) Unload(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unloaded = append(r.unloaded, id)
	return registry.ErrNotLoaded
}

type probes struct {
	ok   bool
	urls []string
}

func (p *probes) probe(_ context.Context, url string) bool {
	p.urls = append(p.urls, url)
	return p.ok
}

func newFlow(t *testing.T, ok bool) (*Flow, *store.Memory, *fakeRegistry, *probes) {
	t.Helper()
	s := store.NewMemory()
	r := &fakeRegistry{}
	p := &probes{ok: ok}
	return New(s, r, WithProber(p.probe)), s, r, p
}

func TestUser_CreatesEntry(t *testing.T) {
	f, s, r, p := newFlow(t, true)

	entry, err := f.User(context.Background(), UserInput{APIURL: "https://custom.api.com/"})
	require.NoError(t, err)

	assert.Equal(t, "FiftyOne", entry.Title)
	assert.Equal(t, "https://custom.api.com", entry.APIURL)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, []string{"https://custom.api.com"}, p.urls)

	stored, err := s.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.APIURL, stored.APIURL)
	require.Len(t, r.setup, 1)
	assert.Equal(t, entry.ID, r.setup[0].ID)
}

func TestUser_DefaultURL(t *testing.T) {
	f, _, _, _ := newFlow(t, true)

	entry, err := f.User(context.Background(), UserInput{})
	require.NoError(t, err)
	assert.Equal(t, api.DefaultBaseURL, entry.APIURL)
}

func TestUser_CannotConnect(t *testing.T) {
	f, s, r, _ := newFlow(t, false)

	_, err := f.User(context.Background(), UserInput{APIURL: "https://down.example"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCannotConnect)

	var formErr *FormError
	require.True(t, errors.As(err, &formErr))
	assert.Equal(t, "base", formErr.Field)
	assert.Equal(t, "cannot_connect", formErr.Code)

	entries, _ := s.List(context.Background())
	assert.Empty(t, entries)
	assert.Empty(t, r.setup)
}

func TestUser_AlreadyConfigured(t *testing.T) {
	f, _, _, p := newFlow(t, true)

	_, err := f.User(context.Background(), UserInput{APIURL: "https://a.example"})
	require.NoError(t, err)

	_, err = f.User(context.Background(), UserInput{APIURL: "https://a.example/"})
	assert.ErrorIs(t, err, ErrAlreadyConfigured)
	assert.Len(t, p.urls, 1)
}

func TestUser_InvalidURL(t *testing.T) {
	f, _, _, p := newFlow(t, true)

	_, err := f.User(context.Background(), UserInput{APIURL: "not a url"})
	var formErr *FormError
	require.True(t, errors.As(err, &formErr))
	assert.Equal(t, "api_url", formErr.Field)
	assert.Empty(t, p.urls)
}

func TestUser_SetupFailureKeepsEntry(t *testing.T) {
	f, s, r, _ := newFlow(t, true)
	r.setupErr = errors.New("first refresh failed")

	entry, err := f.User(context.Background(), UserInput{APIURL: "https://a.example"})
	require.Error(t, err)

	_, err = s.Get(context.Background(), entry.ID)
	assert.NoError(t, err)
}

func TestOptions_PersistsAndReloads(t *testing.T) {
	f, s, r, _ := newFlow(t, true)
	entry, err := f.User(context.Background(), UserInput{APIURL: "https://a.example"})
	require.NoError(t, err)

	updated, err := f.Options(context.Background(), entry.ID, []model.ImageSource{
		{Code: " family ", Name: "Family Photos"},
		{Code: "vacation"},
	})
	require.NoError(t, err)

	want := []model.ImageSource{
		{Code: "family", Name: "Family Photos"},
		{Code: "vacation", Name: "vacation"},
	}
	assert.Equal(t, want, updated.ImageSources)

	stored, err := s.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored.ImageSources)

	require.Len(t, r.reloaded, 1)
	assert.Equal(t, want, r.reloaded[0].ImageSources)
}

func TestOptions_UnknownEntry(t *testing.T) {
	f, _, _, _ := newFlow(t, true)
	_, err := f.Options(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNormalizeImageSources(t *testing.T) {
	tests := []struct {
		name    string
		in      []model.ImageSource
		wantErr string
	}{
		{"empty list", nil, ""},
		{"missing code", []model.ImageSource{{Name: "x"}}, "image_sources[0].code: required"},
		{"blank code", []model.ImageSource{{Code: "a"}, {Code: "  "}}, "image_sources[1].code: required"},
		{"duplicate", []model.ImageSource{{Code: "a"}, {Code: "a", Name: "b"}}, "image_sources[1].code: duplicate_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NormalizeImageSources(tt.in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotNil(t, out)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestRemove(t *testing.T) {
	f, s, r, _ := newFlow(t, true)
	entry, err := f.User(context.Background(), UserInput{APIURL: "https://a.example"})
	require.NoError(t, err)

	require.NoError(t, f.Remove(context.Background(), entry.ID))
	assert.Equal(t, []string{entry.ID}, r.unloaded)

	_, err = s.Get(context.Background(), entry.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, f.Remove(context.Background(), entry.ID), store.ErrNotFound)
}
