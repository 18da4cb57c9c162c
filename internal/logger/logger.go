// Package logger records timestamped ride snapshots to CSV files with
// automatic rotation.
package logger

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
)

// Logger appends one CSV row per recorded snapshot. Disabled loggers accept
// Record calls and drop them.
type Logger struct {
	mu       sync.Mutex
	dir      string
	interval time.Duration
	enabled  bool

	file   *os.File
	writer *csv.Writer
	lastTs map[string]time.Time // Per-share throttle
	rows   int
}

// Config holds logger configuration.
type Config struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Path       string `yaml:"path" json:"path"`
	IntervalMs int    `yaml:"interval_ms" json:"intervalMs"`
}

const maxRowsPerFile = 50_000

var csvHeader = []string{
	"timestamp", "share_id", "state", "lat", "lon",
	"distance_km", "duration_min", "pause_min", "battery_pct", "rider",
}

// New creates a new Logger.
func New(cfg Config) *Logger {
	if cfg.Path == "" {
		cfg.Path = "/var/log/libertyrider"
	}
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if interval < time.Second {
		interval = time.Second
	}
	return &Logger{
		dir:      cfg.Path,
		interval: interval,
		enabled:  cfg.Enabled,
		lastTs:   make(map[string]time.Time),
	}
}

// SetEnabled allows toggling logging at runtime.
func (l *Logger) SetEnabled(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = on
	if !on && l.file != nil {
		l.closeFile()
	}
}

// IsEnabled returns whether logging is active.
func (l *Logger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Record writes a ride snapshot if the minimum interval has elapsed for this
// share.
func (l *Logger) Record(shareID string, ride *rider.Ride) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || ride == nil {
		return
	}

	now := time.Now()
	if now.Sub(l.lastTs[shareID]) < l.interval {
		return
	}
	l.lastTs[shareID] = now

	if l.writer == nil || l.rows >= maxRowsPerFile {
		if err := l.rotateFile(now); err != nil {
			log.Printf("[logger] rotate failed: %v", err)
			return
		}
	}

	if err := l.writer.Write(buildRow(now, shareID, ride)); err != nil {
		log.Printf("[logger] write failed: %v", err)
		return
	}
	l.writer.Flush()
	l.rows++
}

// Close flushes and closes the current log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeFile()
}

func (l *Logger) rotateFile(now time.Time) error {
	l.closeFile()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}

	path := filepath.Join(l.dir, fmt.Sprintf("rides_%s.csv", now.Format("2006-01-02_150405")))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	l.file = f
	l.writer = csv.NewWriter(f)
	l.rows = 0

	if err := l.writer.Write(csvHeader); err != nil {
		return err
	}
	l.writer.Flush()

	log.Printf("[logger] opened %s", path)
	return nil
}

func (l *Logger) closeFile() {
	if l.writer != nil {
		l.writer.Flush()
		l.writer = nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func buildRow(ts time.Time, shareID string, r *rider.Ride) []string {
	row := make([]string, len(csvHeader))
	row[0] = ts.Format(time.RFC3339)
	row[1] = shareID
	row[2] = r.State

	if lat, lon, ok := rider.Position(r); ok {
		row[3] = fmt.Sprintf("%.6f", lat)
		row[4] = fmt.Sprintf("%.6f", lon)
	}
	if km, ok := rider.DistanceKm(r); ok {
		row[5] = fmt.Sprintf("%.3f", km)
	}
	if min, ok := rider.DurationMinutes(r); ok {
		row[6] = fmt.Sprintf("%d", min)
	}
	if min, ok := rider.PauseMinutes(r); ok {
		row[7] = fmt.Sprintf("%d", min)
	}
	if pct, ok := rider.BatteryPercent(r); ok {
		row[8] = fmt.Sprintf("%.1f", pct)
	}
	row[9] = r.FirstName()

	return row
}
