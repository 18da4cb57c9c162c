// Package rider talks to the Liberty Rider ride-sharing API and models the
// ride state it returns. A shared ride is identified by the token embedded in
// a rider.live share link; everything else is derived from the single GraphQL
// object the API returns for that token.
package rider

// Ride states reported by the API. Unrecognized values are passed through
// verbatim rather than rejected.
const (
	StateActive  = "RIDE_ACTIVE"
	StatePaused  = "RIDE_PAUSED"
	StateStopped = "RIDE_STOPPED"
)

// Ride is one snapshot of a shared ride, exactly as returned under
// data.ride. Optional fields are pointers: a nil pointer means the server
// omitted the key, and a present zero value (including 0.0 coordinates) is a
// real value.
type Ride struct {
	State               string    `json:"state"`
	CurrentBatteryLevel *float64  `json:"currentBatteryLevel"` // Fraction 0-1
	Distance            *float64  `json:"distance"`            // Meters
	Duration            *float64  `json:"duration"`            // Seconds
	PauseDuration       *float64  `json:"pauseDuration"`       // Seconds
	StartTime           *string   `json:"startTime"`           // ISO-8601
	CurrentLocation     *Location `json:"currentLocation"`
	Pauses              []Pause   `json:"pauses"`
	User                *User     `json:"user"`
}

// Location is a GPS coordinate pair.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Pause is one entry in the ride's pause history.
type Pause struct {
	LastLocation *Location `json:"lastLocation"`
}

// User carries the rider identity attached to the share.
type User struct {
	FirstName string `json:"firstName"`
}

// FirstName returns the rider's first name, or "" when the user object is
// absent.
func (r *Ride) FirstName() string {
	if r == nil || r.User == nil {
		return ""
	}
	return r.User.FirstName
}
