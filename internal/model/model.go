package model

import (
	"strings"
	"time"
)

// Stock is a single holding returned by /stocks.
type Stock struct {
	Symbol   string   `json:"symbol"`
	Quantity *float64 `json:"quantity"`
	Name     *string  `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// Webcams maps a location key to its image URL. A nil value means the
// location is known but has no image right now.
type Webcams map[string]*string

// URL returns the image URL for key, or "" when absent.
func (w Webcams) URL(key string) string {
	if u, ok := w[key]; ok && u != nil {
		return *u
	}
	return ""
}

// Picture is one entry of the family picture listing.
type Picture struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ImageSource is a user-declared bucket of pictures served by /image/latest
// and /image/random.
type ImageSource struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name"`
}

// DisplayName returns Name, falling back to Code.
func (s ImageSource) DisplayName() string {
	if strings.TrimSpace(s.Name) == "" {
		return s.Code
	}
	return s.Name
}

// Entry is a persisted configuration entry.
type Entry struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	APIURL       string        `json:"api_url"`
	ImageSources []ImageSource `json:"image_sources"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Snapshot is the combined result of one refresh cycle. A published
// snapshot is never mutated.
type Snapshot struct {
	Stocks      []Stock   `json:"stocks"`
	Webcams     Webcams   `json:"webcams"`
	Aviation    Aviation  `json:"aviation"`
	Pictures    []Picture `json:"pictures"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Stock looks up a holding by symbol.
func (s *Snapshot) Stock(symbol string) (Stock, bool) {
	if s == nil {
		return Stock{}, false
	}
	for _, st := range s.Stocks {
		if st.Symbol == symbol {
			return st, true
		}
	}
	return Stock{}, false
}

// Symbols returns the stock symbols in listing order, skipping duplicates
// and empty symbols.
func (s *Snapshot) Symbols() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.Stocks))
	out := make([]string, 0, len(s.Stocks))
	for _, st := range s.Stocks {
		if st.Symbol == "" {
			continue
		}
		if _, ok := seen[st.Symbol]; ok {
			continue
		}
		seen[st.Symbol] = struct{}{}
		out = append(out, st.Symbol)
	}
	return out
}
