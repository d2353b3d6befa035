package entity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/backyonatan-alt/fiftyone/internal/cache"
)

const cameraIdle = "idle"

var webcamNames = map[string]string{
	"basel":  "Basel",
	"bern":   "Bern",
	"lucern": "Lucerne",
	"zurich": "Zurich",
}

// WebcamName returns the display name of a webcam location key.
func WebcamName(key string) string {
	if name, ok := webcamNames[key]; ok {
		return name
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// Webcam is a camera showing the image behind one location of the webcam
// map.
type Webcam struct {
	source   Source
	images   Images
	key      string
	uniqueID string
	cache    *cache.Image
	logger   *slog.Logger
}

func NewWebcam(src Source, images Images, entryID, key string, logger *slog.Logger) *Webcam {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webcam{
		source:   src,
		images:   images,
		key:      key,
		uniqueID: entryID + "_webcam_" + key,
		cache:    cache.NewImage(),
		logger:   logger,
	}
}

func (w *Webcam) UniqueID() string   { return w.uniqueID }
func (w *Webcam) Name() string       { return WebcamName(w.key) + " Webcam" }
func (w *Webcam) Platform() Platform { return PlatformCamera }

// URL returns the current image URL for this location, or "".
func (w *Webcam) URL() string {
	snap := w.source.Snapshot()
	if snap == nil {
		return ""
	}
	return snap.Webcams.URL(w.key)
}

// Image fetches the current webcam image. Without a URL no request is made.
func (w *Webcam) Image(ctx context.Context) (cache.Frame, bool) {
	url := w.URL()
	if url == "" {
		return w.cache.Get()
	}
	data, err := w.images.WebcamImage(ctx, url)
	if err != nil {
		w.logger.Error("error getting webcam image", "webcam", w.key, "error", err)
		return w.cache.Get()
	}
	return w.cache.Set(data), true
}

func (w *Webcam) State() State {
	var url any
	if u := w.URL(); u != "" {
		url = u
	}
	updated := w.cache.UpdatedAt()
	attrs := map[string]any{
		"location":       w.key,
		"url":            url,
		"last_image":     timeValue(updated),
		"last_image_age": ageValue(updated),
	}
	return State{
		EntityID:    w.uniqueID,
		Name:        w.Name(),
		Platform:    PlatformCamera,
		Value:       cameraIdle,
		Icon:        "mdi:webcam",
		Attributes:  attrs,
		Available:   w.source.LastUpdateSuccess(),
		Attribution: Attribution,
	}
}

// PictureCamera cycles through the family picture listing, one picture per
// image request.
type PictureCamera struct {
	source   Source
	images   Images
	uniqueID string
	cache    *cache.Image
	logger   *slog.Logger

	mu      sync.Mutex
	next    int
	current int
	name    string
}

func NewPictureCamera(src Source, images Images, entryID string, logger *slog.Logger) *PictureCamera {
	if logger == nil {
		logger = slog.Default()
	}
	return &PictureCamera{
		source:   src,
		images:   images,
		uniqueID: entryID + "_family_pictures",
		cache:    cache.NewImage(),
		logger:   logger,
		current:  -1,
	}
}

func (p *PictureCamera) UniqueID() string   { return p.uniqueID }
func (p *PictureCamera) Name() string       { return "Family Pictures" }
func (p *PictureCamera) Platform() Platform { return PlatformCamera }

func (p *PictureCamera) Image(ctx context.Context) (cache.Frame, bool) {
	snap := p.source.Snapshot()
	if snap == nil || len(snap.Pictures) == 0 {
		return p.cache.Get()
	}

	p.mu.Lock()
	idx := p.next % len(snap.Pictures)
	p.next = idx + 1
	p.current = idx
	pic := snap.Pictures[idx]
	p.name = pic.Name
	p.mu.Unlock()

	if pic.ID == "" {
		return p.cache.Get()
	}
	data, err := p.images.PictureImage(ctx, pic.ID)
	if err != nil {
		p.logger.Error("error getting family picture", "picture", pic.ID, "error", err)
		return p.cache.Get()
	}
	return p.cache.Set(data), true
}

func (p *PictureCamera) State() State {
	total := 0
	if snap := p.source.Snapshot(); snap != nil {
		total = len(snap.Pictures)
	}

	attrs := map[string]any{"total_pictures": total}
	p.mu.Lock()
	if p.current >= 0 && p.current < total {
		name := p.name
		if name == "" {
			name = "Unknown"
		}
		attrs["current_picture"] = name
		attrs["picture_index"] = p.current
	}
	p.mu.Unlock()
	if updated := p.cache.UpdatedAt(); !updated.IsZero() {
		attrs["last_image_age"] = ageValue(updated)
	}

	return State{
		EntityID:    p.uniqueID,
		Name:        p.Name(),
		Platform:    PlatformCamera,
		Value:       cameraIdle,
		Icon:        "mdi:image-multiple",
		Attributes:  attrs,
		Available:   p.source.LastUpdateSuccess(),
		Attribution: Attribution,
	}
}

// ageValue renders how long ago t was, e.g. "3 minutes ago".
func ageValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return humanize.Time(t)
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
