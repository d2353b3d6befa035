package entity

import (
	"context"
	"log/slog"
	"time"

	"github.com/backyonatan-alt/fiftyone/internal/cache"
	"github.com/backyonatan-alt/fiftyone/internal/model"
)

type ImageKind string

const (
	ImageLatest ImageKind = "latest"
	ImageRandom ImageKind = "random"
)

// SourceImage shows the latest or a random picture of one image source.
type SourceImage struct {
	source    Source
	images    Images
	kind      ImageKind
	code      string
	name      string
	uniqueID  string
	maxHeight int
	cache     *cache.Image
	logger    *slog.Logger
}

func NewSourceImage(src Source, images Images, entryID string, is model.ImageSource, kind ImageKind, maxHeight int, logger *slog.Logger) *SourceImage {
	if logger == nil {
		logger = slog.Default()
	}
	suffix := "Latest"
	if kind == ImageRandom {
		suffix = "Random"
	}
	return &SourceImage{
		source:    src,
		images:    images,
		kind:      kind,
		code:      is.Code,
		name:      is.DisplayName() + " " + suffix,
		uniqueID:  entryID + "_image_" + is.Code + "_" + string(kind),
		maxHeight: maxHeight,
		cache:     cache.NewImage(),
		logger:    logger,
	}
}

func (i *SourceImage) UniqueID() string   { return i.uniqueID }
func (i *SourceImage) Name() string       { return i.name }
func (i *SourceImage) Platform() Platform { return PlatformImage }

// ImageLastUpdated is the time of the last successful fetch, zero if none.
func (i *SourceImage) ImageLastUpdated() time.Time {
	return i.cache.UpdatedAt()
}

func (i *SourceImage) Image(ctx context.Context) (cache.Frame, bool) {
	var (
		data []byte
		err  error
	)
	if i.kind == ImageRandom {
		data, err = i.images.RandomImage(ctx, i.code, i.maxHeight)
	} else {
		data, err = i.images.LatestImage(ctx, i.code, i.maxHeight)
	}
	if err != nil {
		i.logger.Error("error getting image", "kind", i.kind, "code", i.code, "error", err)
		return i.cache.Get()
	}
	return i.cache.Set(data), true
}

func (i *SourceImage) State() State {
	attrs := map[string]any{
		"code":           i.code,
		"kind":           string(i.kind),
		"last_image_age": ageValue(i.cache.UpdatedAt()),
	}
	return State{
		EntityID:    i.uniqueID,
		Name:        i.name,
		Platform:    PlatformImage,
		Value:       timeValue(i.cache.UpdatedAt()),
		Icon:        "mdi:image",
		Attributes:  attrs,
		Available:   i.source.LastUpdateSuccess(),
		Attribution: Attribution,
	}
}
