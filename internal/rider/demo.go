package rider

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// DemoSource generates simulated ride data for development and testing. It
// cycles through active, paused and stopped phases while drifting along a
// small loop around the start point.
type DemoSource struct {
	mu    sync.Mutex
	t     float64 // virtual time accumulator, seconds
	start time.Time
	lat   float64
	lon   float64
	dist  float64 // meters
	pause float64 // seconds
}

// NewDemoSource creates a demo source starting near Lyon.
func NewDemoSource() *DemoSource {
	return &DemoSource{
		start: time.Now().UTC(),
		lat:   45.764,
		lon:   4.8357,
	}
}

func (d *DemoSource) Name() string { return "demo (simulated)" }

// Fetch advances the simulation and returns the current fake ride.
func (d *DemoSource) Fetch(_ context.Context) (*Ride, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.t += 30 // Pretend 30s of riding per poll

	// 10-minute cycle: ride 7 min, pause 2 min, stop 1 min.
	phase := math.Mod(d.t, 600)
	state := StateActive
	switch {
	case phase >= 540:
		state = StateStopped
	case phase >= 420:
		state = StatePaused
		d.pause += 30
	default:
		// ~14 m/s with a little jitter
		d.dist += 420 + rand.Float64()*40
		d.lat += 0.002 * math.Sin(d.t/300)
		d.lon += 0.002 * math.Cos(d.t/300)
	}

	battery := 0.95 - d.t/36000 // ~10%/hour
	if battery < 0.05 {
		battery = 0.05
	}

	startTime := d.start.Format("2006-01-02T15:04:05Z")
	lat, lon := d.lat, d.lon
	dist, dur, pause := d.dist, d.t, d.pause

	ride := &Ride{
		State:               state,
		CurrentBatteryLevel: &battery,
		Distance:            &dist,
		Duration:            &dur,
		PauseDuration:       &pause,
		StartTime:           &startTime,
		User:                &User{FirstName: "Demo"},
	}

	if state == StateActive {
		ride.CurrentLocation = &Location{Latitude: &lat, Longitude: &lon}
	} else {
		ride.Pauses = []Pause{{LastLocation: &Location{Latitude: &lat, Longitude: &lon}}}
	}

	return ride, nil
}
