package entity

import "github.com/backyonatan-alt/fiftyone/internal/model"

const stateClassMeasurement = "measurement"

// SensorDescription is a field projection: where the value lives in the
// snapshot and how to present it.
type SensorDescription struct {
	Key         string
	Name        string
	Unit        string
	DeviceClass string
	StateClass  string
	Icon        string
	Value       func(*model.Snapshot) any
	Attributes  func(*model.Snapshot) map[string]any
}

// Sensor renders one SensorDescription against the coordinator's current
// snapshot.
type Sensor struct {
	source   Source
	uniqueID string
	desc     SensorDescription
}

func NewSensor(src Source, entryID string, desc SensorDescription) *Sensor {
	return &Sensor{
		source:   src,
		uniqueID: entryID + "_" + desc.Key,
		desc:     desc,
	}
}

func (s *Sensor) UniqueID() string   { return s.uniqueID }
func (s *Sensor) Name() string       { return s.desc.Name }
func (s *Sensor) Platform() Platform { return PlatformSensor }

// Value returns the projected value, or nil when the snapshot lacks it.
func (s *Sensor) Value() any {
	snap := s.source.Snapshot()
	if snap == nil || s.desc.Value == nil {
		return nil
	}
	return s.desc.Value(snap)
}

// Attributes returns the extra state attributes, or nil.
func (s *Sensor) Attributes() map[string]any {
	snap := s.source.Snapshot()
	if snap == nil || s.desc.Attributes == nil {
		return nil
	}
	return s.desc.Attributes(snap)
}

func (s *Sensor) State() State {
	return State{
		EntityID:    s.uniqueID,
		Name:        s.desc.Name,
		Platform:    PlatformSensor,
		Value:       s.Value(),
		Unit:        s.desc.Unit,
		DeviceClass: s.desc.DeviceClass,
		StateClass:  s.desc.StateClass,
		Icon:        s.desc.Icon,
		Attributes:  s.Attributes(),
		Available:   s.source.LastUpdateSuccess(),
		Attribution: Attribution,
	}
}
