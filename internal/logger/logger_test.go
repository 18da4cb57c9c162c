package logger

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
)

func f64(v float64) *float64 { return &v }

func testRide() *rider.Ride {
	return &rider.Ride{
		State:               rider.StateActive,
		Distance:            f64(12345),
		Duration:            f64(125),
		PauseDuration:       f64(60),
		CurrentBatteryLevel: f64(0.87),
		CurrentLocation:     &rider.Location{Latitude: f64(48.1), Longitude: f64(2.3)},
		User:                &rider.User{FirstName: "Jean"},
	}
}

func TestRecordWritesRow(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Enabled: true, Path: dir, IntervalMs: 1000})
	defer l.Close()

	l.Record("TOK1", testRide())
	l.Close()

	files, err := filepath.Glob(filepath.Join(dir, "rides_*.csv"))
	if err != nil || len(files) != 1 {
		t.Fatalf("log files = %v (%v)", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}

	row := rows[1]
	if row[1] != "TOK1" || row[2] != rider.StateActive {
		t.Fatalf("row = %v", row)
	}
	if row[5] != "12.345" {
		t.Fatalf("distance_km = %q", row[5])
	}
	if row[6] != "2" {
		t.Fatalf("duration_min = %q, want floored minutes", row[6])
	}
	if row[8] != "87.0" {
		t.Fatalf("battery_pct = %q", row[8])
	}
	if row[9] != "Jean" {
		t.Fatalf("rider = %q", row[9])
	}
}

func TestRecordThrottlesPerShare(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Enabled: true, Path: dir, IntervalMs: 60_000})
	defer l.Close()

	l.Record("TOK1", testRide())
	l.Record("TOK1", testRide()) // Inside the interval, dropped
	l.Record("TOK2", testRide()) // Different share, kept
	l.Close()

	files, _ := filepath.Glob(filepath.Join(dir, "rides_*.csv"))
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	rows, _ := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Enabled: false, Path: dir})
	defer l.Close()

	l.Record("TOK1", testRide())

	files, _ := filepath.Glob(filepath.Join(dir, "rides_*.csv"))
	if len(files) != 0 {
		t.Fatalf("disabled logger created %v", files)
	}
	if l.IsEnabled() {
		t.Fatalf("expected disabled")
	}
}

func TestSetEnabledToggles(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Enabled: false, Path: dir})
	defer l.Close()

	l.SetEnabled(true)
	l.Record("TOK1", testRide())
	l.SetEnabled(false)
	l.Record("TOK1", testRide())

	files, _ := filepath.Glob(filepath.Join(dir, "rides_*.csv"))
	if len(files) != 1 {
		t.Fatalf("files = %v", files)
	}
}
