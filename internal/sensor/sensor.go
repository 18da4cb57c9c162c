// Package sensor exposes a coordinator's snapshot as named sensor values and
// a map-trackable entity. Every reader here is a thin view over the
// coordinator: it never fetches anything itself and never errors across the
// read interface, it just reports absent values when the data is missing.
package sensor

import (
	"fmt"
	"strings"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/coordinator"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
)

// Kind identifies one sensor. The set is closed; each kind carries its own
// extraction and unit conversion, resolved at construction.
type Kind string

const (
	KindStatus        Kind = "status"
	KindBattery       Kind = "battery"
	KindDistance      Kind = "distance"
	KindDuration      Kind = "duration"
	KindPauseDuration Kind = "pause_duration"
	KindStartTime     Kind = "start_time"
)

// Descriptor is the static definition of one sensor kind.
type Descriptor struct {
	Kind        Kind
	Name        string // Translation key for the display name
	Unit        string
	DeviceClass string
	StateClass  string
	Icon        string

	value func(*rider.Ride) (interface{}, bool)
}

var descriptors = []Descriptor{
	{
		Kind: KindStatus,
		Name: "entity.sensor.status.name",
		Icon: "mdi:map-marker-path",
		value: func(r *rider.Ride) (interface{}, bool) {
			if r == nil || r.State == "" {
				return nil, false
			}
			return StatusTranslationKey(r.State), true
		},
	},
	{
		Kind:        KindBattery,
		Name:        "entity.sensor.battery.name",
		Unit:        "%",
		DeviceClass: "battery",
		StateClass:  "measurement",
		value: func(r *rider.Ride) (interface{}, bool) {
			if pct, ok := rider.BatteryPercent(r); ok {
				return pct, true
			}
			return nil, false
		},
	},
	{
		Kind:        KindDistance,
		Name:        "entity.sensor.distance.name",
		Unit:        "km",
		DeviceClass: "distance",
		StateClass:  "total_increasing",
		value: func(r *rider.Ride) (interface{}, bool) {
			if km, ok := rider.DistanceKm(r); ok {
				return km, true
			}
			return nil, false
		},
	},
	{
		Kind:        KindDuration,
		Name:        "entity.sensor.duration.name",
		Unit:        "min",
		DeviceClass: "duration",
		StateClass:  "total_increasing",
		value: func(r *rider.Ride) (interface{}, bool) {
			if min, ok := rider.DurationMinutes(r); ok {
				return min, true
			}
			return nil, false
		},
	},
	{
		Kind:        KindPauseDuration,
		Name:        "entity.sensor.pause_duration.name",
		Unit:        "min",
		DeviceClass: "duration",
		StateClass:  "total_increasing",
		value: func(r *rider.Ride) (interface{}, bool) {
			if min, ok := rider.PauseMinutes(r); ok {
				return min, true
			}
			return nil, false
		},
	},
	{
		Kind:        KindStartTime,
		Name:        "entity.sensor.start_time.name",
		DeviceClass: "timestamp",
		value: func(r *rider.Ride) (interface{}, bool) {
			if ts, ok := rider.StartedAt(r); ok {
				return ts, true
			}
			return nil, false
		},
	},
}

// All returns the descriptors for every sensor kind.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// StatusTranslationKey maps a raw ride state to its translation key. Unknown
// states pass through verbatim, lowercased.
func StatusTranslationKey(state string) string {
	return "entity.sensor.status.state." + strings.ToLower(state)
}

// Sensor binds one descriptor to a coordinator.
type Sensor struct {
	coord *coordinator.Coordinator
	desc  Descriptor
}

// ForCoordinator builds the full sensor set for one coordinator.
func ForCoordinator(coord *coordinator.Coordinator) []*Sensor {
	sensors := make([]*Sensor, 0, len(descriptors))
	for _, desc := range descriptors {
		sensors = append(sensors, &Sensor{coord: coord, desc: desc})
	}
	return sensors
}

// Descriptor returns the static definition of this sensor.
func (s *Sensor) Descriptor() Descriptor { return s.desc }

// UniqueID is stable across restarts: kind plus rider first name.
func (s *Sensor) UniqueID() string {
	return fmt.Sprintf("liberty_rider_%s_%s", s.desc.Kind, s.coord.Snapshot().FirstName())
}

// Name is the display name.
func (s *Sensor) Name() string {
	return fmt.Sprintf("Liberty Rider %s - %s", s.desc.Name, s.coord.Snapshot().FirstName())
}

// Available reports whether the coordinator's last poll succeeded.
func (s *Sensor) Available() bool { return s.coord.Available() }

// Value reads the sensor through the coordinator's current snapshot.
func (s *Sensor) Value() (interface{}, bool) {
	return s.desc.value(s.coord.Snapshot())
}

// Device groups all readers of one share under a single logical device.
type Device struct {
	Identifier   string `json:"identifier"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

// DeviceInfo returns the device identity for a coordinator, or nil before
// the first successful poll.
func DeviceInfo(coord *coordinator.Coordinator) *Device {
	snap := coord.Snapshot()
	if snap == nil || snap.User == nil {
		return nil
	}
	return &Device{
		Identifier:   coord.ShareID(),
		Name:         "Liberty Rider - " + snap.User.FirstName,
		Manufacturer: "Liberty Rider",
		Model:        "Liberty Rider",
	}
}
