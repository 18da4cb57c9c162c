package sensor

import (
	"fmt"
	"math"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/coordinator"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
)

// StateNotHome is reported when no ride state is known.
const StateNotHome = "not_home"

// Tracker exposes the ride position as a GPS-trackable entity. While the
// ride is active it follows currentLocation; paused or stopped it falls back
// to the last pause's location; any other state reports no position.
type Tracker struct {
	coord *coordinator.Coordinator
}

// NewTracker builds the tracker for one coordinator.
func NewTracker(coord *coordinator.Coordinator) *Tracker {
	return &Tracker{coord: coord}
}

// UniqueID is stable across restarts.
func (t *Tracker) UniqueID() string {
	return fmt.Sprintf("liberty_rider_%s_gps", t.coord.Snapshot().FirstName())
}

// Name is the display name.
func (t *Tracker) Name() string {
	return "Liberty Rider GPS - " + t.coord.Snapshot().FirstName()
}

// Icon for map display.
func (t *Tracker) Icon() string { return "mdi:map-marker" }

// SourceType reports how positions are obtained.
func (t *Tracker) SourceType() string { return "gps" }

// Accuracy is a fixed default, in meters.
func (t *Tracker) Accuracy() int { return 10 }

// Available reports whether the coordinator's last poll succeeded.
func (t *Tracker) Available() bool { return t.coord.Available() }

// Position returns the trackable location per the state fallback policy.
func (t *Tracker) Position() (lat, lon float64, ok bool) {
	return rider.Position(t.coord.Snapshot())
}

// State returns the ride-state translation key, or not_home when unknown.
func (t *Tracker) State() string {
	snap := t.coord.Snapshot()
	if snap == nil || snap.State == "" {
		return StateNotHome
	}
	return StatusTranslationKey(snap.State)
}

// Attributes returns the extra display attributes attached to the tracker.
func (t *Tracker) Attributes() map[string]interface{} {
	snap := t.coord.Snapshot()
	attrs := make(map[string]interface{})
	if snap == nil {
		return attrs
	}

	if snap.State != "" {
		attrs["ride_status"] = StatusTranslationKey(snap.State)
	}
	if km, ok := rider.DistanceKm(snap); ok {
		attrs["distance_km"] = round(km, 2)
	}
	if snap.Duration != nil {
		attrs["duration_minutes"] = round(*snap.Duration/60, 1)
	}
	if pct, ok := rider.BatteryPercent(snap); ok {
		attrs["battery_level"] = round(pct, 1)
	}
	return attrs
}

func round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
