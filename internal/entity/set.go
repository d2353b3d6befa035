package entity

import (
	"log/slog"
	"sort"

	"github.com/backyonatan-alt/fiftyone/internal/model"
)

// Set is the ordered collection of entities of one configuration entry.
type Set struct {
	list []Entity
	byID map[string]Entity
}

func NewSet(entities ...Entity) *Set {
	s := &Set{byID: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		if _, dup := s.byID[e.UniqueID()]; dup {
			continue
		}
		s.list = append(s.list, e)
		s.byID[e.UniqueID()] = e
	}
	return s
}

func (s *Set) All() []Entity {
	return s.list
}

func (s *Set) Get(uniqueID string) (Entity, bool) {
	e, ok := s.byID[uniqueID]
	return e, ok
}

func (s *Set) Len() int {
	return len(s.list)
}

// States renders every entity.
func (s *Set) States() []State {
	out := make([]State, 0, len(s.list))
	for _, e := range s.list {
		out = append(out, e.State())
	}
	return out
}

// BuildOptions carries what Build needs besides the coordinator.
type BuildOptions struct {
	EntryID      string
	ImageSources []model.ImageSource
	MaxHeight    int
	Logger       *slog.Logger
}

// Build creates the entity set of an entry from the coordinator's current
// snapshot: stock sensors per listed symbol, the aviation sensors, one
// camera per webcam location, the family picture camera when pictures are
// listed, and latest/random images per image source.
func Build(src Source, images Images, opts BuildOptions) *Set {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	snap := src.Snapshot()

	var entities []Entity
	if snap != nil {
		for _, symbol := range snap.Symbols() {
			for _, desc := range StockSensors(symbol) {
				entities = append(entities, NewSensor(src, opts.EntryID, desc))
			}
		}
	}

	for _, desc := range AviationSensors() {
		entities = append(entities, NewSensor(src, opts.EntryID, desc))
	}

	if snap != nil {
		keys := make([]string, 0, len(snap.Webcams))
		for k := range snap.Webcams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			entities = append(entities, NewWebcam(src, images, opts.EntryID, k, logger))
		}

		if len(snap.Pictures) > 0 {
			entities = append(entities, NewPictureCamera(src, images, opts.EntryID, logger))
		}
	}

	for _, is := range opts.ImageSources {
		if is.Code == "" {
			continue
		}
		entities = append(entities,
			NewSourceImage(src, images, opts.EntryID, is, ImageLatest, opts.MaxHeight, logger),
			NewSourceImage(src, images, opts.EntryID, is, ImageRandom, opts.MaxHeight, logger),
		)
	}

	logger.Info("entities built", "entry", opts.EntryID, "count", len(entities))
	return NewSet(entities...)
}
