package rider

import (
	"strings"
	"time"
)

// Derived values exposed to readers. The server reports raw units (meters,
// seconds, battery fraction); everything user-facing goes through these
// conversions so the two never get mixed up.

// DistanceKm converts the ride distance from meters to kilometers.
func DistanceKm(r *Ride) (float64, bool) {
	if r == nil || r.Distance == nil {
		return 0, false
	}
	return *r.Distance / 1000, true
}

// DurationMinutes converts the ride duration from seconds to whole minutes,
// truncating (125 s is 2 min, not 2.08).
func DurationMinutes(r *Ride) (int, bool) {
	if r == nil || r.Duration == nil {
		return 0, false
	}
	return int(*r.Duration / 60), true
}

// PauseMinutes converts the accumulated pause duration to whole minutes.
func PauseMinutes(r *Ride) (int, bool) {
	if r == nil || r.PauseDuration == nil {
		return 0, false
	}
	return int(*r.PauseDuration / 60), true
}

// BatteryPercent converts the phone battery fraction (0-1) to percent. This
// is the single battery convention everywhere; the raw fraction stays on the
// snapshot for anyone who wants it.
func BatteryPercent(r *Ride) (float64, bool) {
	if r == nil || r.CurrentBatteryLevel == nil {
		return 0, false
	}
	return *r.CurrentBatteryLevel * 100, true
}

// StartedAt parses the ride start time. A literal Z suffix is normalized to
// an explicit +00:00 offset first; both spellings parse to the same instant.
func StartedAt(r *Ride) (time.Time, bool) {
	if r == nil || r.StartTime == nil {
		return time.Time{}, false
	}
	normalized := strings.Replace(*r.StartTime, "Z", "+00:00", 1)
	ts, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Position resolves the ride's trackable location:
//
//   - RIDE_ACTIVE: the live currentLocation, when both coordinates are set.
//   - RIDE_PAUSED / RIDE_STOPPED: the lastLocation of the most recent pause
//     entry, when both coordinates are set.
//   - anything else: no location.
//
// Presence of the key is the test, not truthiness: a present 0.0 is a valid
// coordinate.
func Position(r *Ride) (lat, lon float64, ok bool) {
	if r == nil {
		return 0, 0, false
	}

	switch r.State {
	case StateActive:
		return coords(r.CurrentLocation)
	case StatePaused, StateStopped:
		if len(r.Pauses) == 0 {
			return 0, 0, false
		}
		last := r.Pauses[len(r.Pauses)-1]
		return coords(last.LastLocation)
	}
	return 0, 0, false
}

func coords(loc *Location) (lat, lon float64, ok bool) {
	if loc == nil || loc.Latitude == nil || loc.Longitude == nil {
		return 0, 0, false
	}
	return *loc.Latitude, *loc.Longitude, true
}
