// Package coordinator owns the polling loop for a shared ride: one fetch per
// tick, one cached snapshot, shared by every reader. Readers never perform
// network I/O of their own.
package coordinator

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
)

// Poll interval bounds, in line with the configuration surface (minutes).
const (
	MinInterval     = 1 * time.Minute
	MaxInterval     = 60 * time.Minute
	DefaultInterval = 5 * time.Minute
)

// ClampInterval bounds an interval to [MinInterval, MaxInterval], substituting
// the default when zero or negative.
func ClampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInterval
	}
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// Outcome is the result of one poll: a fresh snapshot, or a classified
// failure. Exactly one of Ride/Err is set.
type Outcome struct {
	Ride *rider.Ride
	Err  error
}

// Config tunes a coordinator.
type Config struct {
	// Interval between scheduled polls. Clamped to [MinInterval, MaxInterval].
	Interval time.Duration
	// Source overrides the real API client (demo mode, tests).
	Source rider.Source
	// Notify, when set, runs after every completed poll, successful or not.
	Notify func(c *Coordinator, out Outcome)
}

// Coordinator polls one shared ride on a fixed interval and caches the most
// recent successful snapshot. A failed poll keeps the old snapshot and flips
// availability off until the next success. All methods are safe for
// concurrent use.
type Coordinator struct {
	ref      rider.ShareRef
	source   rider.Source
	interval time.Duration
	notify   func(c *Coordinator, out Outcome)

	group singleflight.Group

	mu          sync.RWMutex
	ride        *rider.Ride
	available   bool
	lastErr     error
	lastSuccess time.Time
}

// New validates the share link and builds a coordinator for it. A malformed
// link fails here, before any polling starts, with rider.ErrInvalidURL or
// rider.ErrInvalidURLFormat.
func New(shareURL string, cfg Config) (*Coordinator, error) {
	ref, err := rider.ExtractShareRef(shareURL)
	if err != nil {
		return nil, err
	}

	source := cfg.Source
	if source == nil {
		source = rider.NewClient(ref)
	}

	return &Coordinator{
		ref:      ref,
		source:   source,
		interval: ClampInterval(cfg.Interval),
		notify:   cfg.Notify,
	}, nil
}

// ShareID returns the share token, the stable identity readers group under.
func (c *Coordinator) ShareID() string { return c.ref.Token }

// ShareURL returns the cleaned share link.
func (c *Coordinator) ShareURL() string { return c.ref.RawURL }

// Interval returns the fixed poll interval.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Snapshot returns the most recent successful ride snapshot, or nil when no
// poll has succeeded yet. Snapshots are replaced wholesale, never mutated, so
// the returned pointer is always internally consistent.
func (c *Coordinator) Snapshot() *rider.Ride {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ride
}

// Available reports whether the last poll succeeded.
func (c *Coordinator) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// LastError returns the classified failure from the last poll, or nil.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastSuccess returns when the last successful poll completed.
func (c *Coordinator) LastSuccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// Run polls once immediately, then on every interval tick until the context
// is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh performs one poll now. Concurrent callers while a poll is in
// flight share its result instead of issuing a second request; each fetch is
// an idempotent read, so collapsing is always safe.
func (c *Coordinator) Refresh(ctx context.Context) Outcome {
	v, _, _ := c.group.Do("poll", func() (interface{}, error) {
		return c.poll(ctx), nil
	})
	return v.(Outcome)
}

func (c *Coordinator) poll(ctx context.Context) Outcome {
	ride, err := c.source.Fetch(ctx)

	c.mu.Lock()
	if err != nil {
		c.available = false
		c.lastErr = err
	} else {
		c.ride = ride
		c.available = true
		c.lastErr = nil
		c.lastSuccess = time.Now()
	}
	c.mu.Unlock()

	out := Outcome{Ride: ride, Err: err}
	if err != nil {
		log.Printf("[coordinator] %s: poll failed: %v", c.ref.Token, err)
	}
	if c.notify != nil {
		c.notify(c, out)
	}
	return out
}
