package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/backyonatan-alt/fiftyone/internal/model"
)

// API is the subset of the FiftyOne client the coordinator polls.
type API interface {
	Stocks(ctx context.Context) ([]model.Stock, error)
	Webcams(ctx context.Context) (model.Webcams, error)
	Aviation(ctx context.Context) (model.Aviation, error)
	Pictures(ctx context.Context) ([]model.Picture, error)
}

// Resource describes one independently fetched piece of the snapshot.
type Resource struct {
	Key   string
	fetch func(ctx context.Context, api API, snap *model.Snapshot) error
	reset func(snap *model.Snapshot)
}

// NewResource builds a descriptor from a typed fetch, the default used when
// the fetch fails, and the assignment into the working snapshot.
func NewResource[T any](key string, fetch func(context.Context, API) (T, error), def func() T, assign func(*model.Snapshot, T)) Resource {
	return Resource{
		Key: key,
		fetch: func(ctx context.Context, api API, snap *model.Snapshot) error {
			v, err := fetch(ctx, api)
			if err != nil {
				return err
			}
			assign(snap, v)
			return nil
		},
		reset: func(snap *model.Snapshot) {
			assign(snap, def())
		},
	}
}

const (
	KeyStocks   = "stocks"
	KeyWebcams  = "webcams"
	KeyAviation = "aviation"
	KeyPictures = "pictures"
)

var (
	Stocks = NewResource(KeyStocks,
		func(ctx context.Context, api API) ([]model.Stock, error) { return api.Stocks(ctx) },
		func() []model.Stock { return []model.Stock{} },
		func(s *model.Snapshot, v []model.Stock) { s.Stocks = v },
	)
	Webcams = NewResource(KeyWebcams,
		func(ctx context.Context, api API) (model.Webcams, error) { return api.Webcams(ctx) },
		func() model.Webcams { return model.Webcams{} },
		func(s *model.Snapshot, v model.Webcams) { s.Webcams = v },
	)
	Aviation = NewResource(KeyAviation,
		func(ctx context.Context, api API) (model.Aviation, error) { return api.Aviation(ctx) },
		func() model.Aviation { return model.Aviation{} },
		func(s *model.Snapshot, v model.Aviation) { s.Aviation = v },
	)
	Pictures = NewResource(KeyPictures,
		func(ctx context.Context, api API) ([]model.Picture, error) { return api.Pictures(ctx) },
		func() []model.Picture { return []model.Picture{} },
		func(s *model.Snapshot, v []model.Picture) { s.Pictures = v },
	)
)

// DefaultResources is the set polled when none is configured.
func DefaultResources() []Resource {
	return []Resource{Stocks, Webcams, Aviation}
}

// ResourcesByKey resolves configured resource keys. Empty input yields the
// default set.
func ResourcesByKey(keys []string) ([]Resource, error) {
	if len(keys) == 0 {
		return DefaultResources(), nil
	}
	known := map[string]Resource{
		KeyStocks:   Stocks,
		KeyWebcams:  Webcams,
		KeyAviation: Aviation,
		KeyPictures: Pictures,
	}
	seen := make(map[string]bool, len(keys))
	out := make([]Resource, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		r, ok := known[k]
		if !ok {
			return nil, fmt.Errorf("unknown resource %q", k)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out, nil
}
