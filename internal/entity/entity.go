package entity

import (
	"context"

	"github.com/backyonatan-alt/fiftyone/internal/cache"
	"github.com/backyonatan-alt/fiftyone/internal/model"
)

type Platform string

const (
	PlatformSensor Platform = "sensor"
	PlatformCamera Platform = "camera"
	PlatformImage  Platform = "image"
)

const Attribution = "Data provided by FiftyOne API"

// Source is the read side of the update coordinator.
type Source interface {
	Snapshot() *model.Snapshot
	LastUpdateSuccess() bool
}

// Images fetches the raw image payloads behind cameras and image entities.
type Images interface {
	WebcamImage(ctx context.Context, url string) ([]byte, error)
	PictureImage(ctx context.Context, id string) ([]byte, error)
	LatestImage(ctx context.Context, code string, maxHeight int) ([]byte, error)
	RandomImage(ctx context.Context, code string, maxHeight int) ([]byte, error)
}

// State is the rendered, host-facing view of one entity.
type State struct {
	EntityID    string         `json:"entity_id"`
	Name        string         `json:"name"`
	Platform    Platform       `json:"platform"`
	Value       any            `json:"state"`
	Unit        string         `json:"unit_of_measurement,omitempty"`
	DeviceClass string         `json:"device_class,omitempty"`
	StateClass  string         `json:"state_class,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Available   bool           `json:"available"`
	Attribution string         `json:"attribution"`
}

// Entity is a read-only projection of the latest snapshot.
type Entity interface {
	UniqueID() string
	Name() string
	Platform() Platform
	State() State
}

// Imager is an entity backed by image bytes (cameras and image entities).
// Image never fails: it falls back to the last good bytes, and reports
// false when there are none.
type Imager interface {
	Entity
	Image(ctx context.Context) (cache.Frame, bool)
}

func floatValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolValue(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
