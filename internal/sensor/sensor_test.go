package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/coordinator"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
)

type stubSource struct {
	ride *rider.Ride
	err  error
}

func (s *stubSource) Name() string                                 { return "stub" }
func (s *stubSource) Fetch(_ context.Context) (*rider.Ride, error) { return s.ride, s.err }

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }

func fullRide() *rider.Ride {
	return &rider.Ride{
		State:               rider.StateActive,
		CurrentBatteryLevel: f64(0.87),
		Distance:            f64(12345),
		Duration:            f64(125),
		PauseDuration:       f64(60),
		StartTime:           str("2024-01-01T10:00:00Z"),
		CurrentLocation:     &rider.Location{Latitude: f64(48.1), Longitude: f64(2.3)},
		User:                &rider.User{FirstName: "Jean"},
	}
}

func coordWith(t *testing.T, src rider.Source, refresh bool) *coordinator.Coordinator {
	t.Helper()
	c, err := coordinator.New("https://rider.live/fr/a/TOK1", coordinator.Config{Source: src})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	if refresh {
		if out := c.Refresh(context.Background()); out.Err != nil && src.(*stubSource).err == nil {
			t.Fatalf("refresh: %v", out.Err)
		}
	}
	return c
}

func sensorValues(t *testing.T, c *coordinator.Coordinator) map[Kind]interface{} {
	t.Helper()
	values := make(map[Kind]interface{})
	for _, s := range ForCoordinator(c) {
		if v, ok := s.Value(); ok {
			values[s.Descriptor().Kind] = v
		}
	}
	return values
}

func TestSensorValues(t *testing.T) {
	c := coordWith(t, &stubSource{ride: fullRide()}, true)
	values := sensorValues(t, c)

	if got := values[KindStatus]; got != "entity.sensor.status.state.ride_active" {
		t.Fatalf("status = %v", got)
	}
	if got := values[KindBattery]; got != 87.0 {
		t.Fatalf("battery = %v, want 87 percent", got)
	}
	if got := values[KindDistance]; got != 12.345 {
		t.Fatalf("distance = %v, want 12.345 km", got)
	}
	if got := values[KindDuration]; got != 2 {
		t.Fatalf("duration = %v, want 2 whole minutes", got)
	}
	if got := values[KindPauseDuration]; got != 1 {
		t.Fatalf("pause duration = %v, want 1", got)
	}
	ts, ok := values[KindStartTime].(time.Time)
	if !ok || !ts.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("start time = %v", values[KindStartTime])
	}
}

func TestSensorValuesAbsentFields(t *testing.T) {
	c := coordWith(t, &stubSource{ride: &rider.Ride{State: rider.StateStopped}}, true)
	values := sensorValues(t, c)

	if len(values) != 1 {
		t.Fatalf("values = %v, want only status", values)
	}
	if values[KindStatus] != "entity.sensor.status.state.ride_stopped" {
		t.Fatalf("status = %v", values[KindStatus])
	}
}

func TestSensorUnknownStatePassesThrough(t *testing.T) {
	c := coordWith(t, &stubSource{ride: &rider.Ride{State: "RIDE_TELEPORTING"}}, true)
	values := sensorValues(t, c)
	if values[KindStatus] != "entity.sensor.status.state.ride_teleporting" {
		t.Fatalf("status = %v, unknown states must pass through", values[KindStatus])
	}
}

func TestSensorIdentity(t *testing.T) {
	c := coordWith(t, &stubSource{ride: fullRide()}, true)
	sensors := ForCoordinator(c)

	if len(sensors) != 6 {
		t.Fatalf("sensor count = %d, want 6", len(sensors))
	}
	var battery *Sensor
	for _, s := range sensors {
		if s.Descriptor().Kind == KindBattery {
			battery = s
		}
	}
	if battery.UniqueID() != "liberty_rider_battery_Jean" {
		t.Fatalf("unique id = %q", battery.UniqueID())
	}
	if !battery.Available() {
		t.Fatalf("expected available")
	}
}

func TestDeviceInfo(t *testing.T) {
	c := coordWith(t, &stubSource{ride: fullRide()}, true)
	dev := DeviceInfo(c)
	if dev == nil {
		t.Fatalf("expected device info")
	}
	if dev.Identifier != "TOK1" || dev.Name != "Liberty Rider - Jean" {
		t.Fatalf("device = %+v", dev)
	}

	empty := coordWith(t, &stubSource{ride: fullRide()}, false)
	if DeviceInfo(empty) != nil {
		t.Fatalf("device info must be nil before the first successful poll")
	}
}

func TestTrackerActivePosition(t *testing.T) {
	c := coordWith(t, &stubSource{ride: fullRide()}, true)
	tr := NewTracker(c)

	lat, lon, ok := tr.Position()
	if !ok || lat != 48.1 || lon != 2.3 {
		t.Fatalf("position = (%v, %v, %v)", lat, lon, ok)
	}
	if tr.SourceType() != "gps" || tr.Accuracy() != 10 {
		t.Fatalf("tracker metadata: %s/%d", tr.SourceType(), tr.Accuracy())
	}
	if tr.State() != "entity.sensor.status.state.ride_active" {
		t.Fatalf("state = %q", tr.State())
	}
	if tr.UniqueID() != "liberty_rider_Jean_gps" {
		t.Fatalf("unique id = %q", tr.UniqueID())
	}
}

func TestTrackerStoppedFallsBackToLastPause(t *testing.T) {
	ride := &rider.Ride{
		State: rider.StateStopped,
		Pauses: []rider.Pause{
			{LastLocation: &rider.Location{Latitude: f64(1), Longitude: f64(1)}},
			{LastLocation: &rider.Location{Latitude: f64(2), Longitude: f64(2)}},
		},
	}
	tr := NewTracker(coordWith(t, &stubSource{ride: ride}, true))

	lat, lon, ok := tr.Position()
	if !ok || lat != 2 || lon != 2 {
		t.Fatalf("position = (%v, %v, %v), want the last pause", lat, lon, ok)
	}
}

func TestTrackerNoSnapshot(t *testing.T) {
	tr := NewTracker(coordWith(t, &stubSource{err: rider.ErrNoRide}, true))

	if _, _, ok := tr.Position(); ok {
		t.Fatalf("no snapshot must mean no position")
	}
	if tr.State() != StateNotHome {
		t.Fatalf("state = %q, want %q", tr.State(), StateNotHome)
	}
	if tr.Available() {
		t.Fatalf("expected unavailable")
	}
	if attrs := tr.Attributes(); len(attrs) != 0 {
		t.Fatalf("attrs = %v, want empty", attrs)
	}
}

func TestTrackerAttributes(t *testing.T) {
	tr := NewTracker(coordWith(t, &stubSource{ride: fullRide()}, true))
	attrs := tr.Attributes()

	if attrs["ride_status"] != "entity.sensor.status.state.ride_active" {
		t.Fatalf("ride_status = %v", attrs["ride_status"])
	}
	// The double closest to 12.345 sits just below the half, so 2 dp
	// rounding lands on 12.34.
	if attrs["distance_km"] != 12.34 {
		t.Fatalf("distance_km = %v, want 12.34 (2 dp)", attrs["distance_km"])
	}
	if attrs["duration_minutes"] != 2.1 {
		t.Fatalf("duration_minutes = %v, want 2.1 (1 dp)", attrs["duration_minutes"])
	}
	if attrs["battery_level"] != 87.0 {
		t.Fatalf("battery_level = %v, want 87 percent", attrs["battery_level"])
	}
}
