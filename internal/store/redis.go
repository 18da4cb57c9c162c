// Package store persists the last-seen state of each share in Redis so a
// bridge restart does not blank the trackers. The store is optional: with no
// Redis configured everything runs identically, minus the restart fallback.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/config"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
)

const (
	lastSeenPrefix = "lastseen:"
	positionsKey   = "riders:positions"

	// LastSeenTTL bounds how stale a restored snapshot may be.
	LastSeenTTL = 24 * time.Hour
)

// Entry is one persisted snapshot.
type Entry struct {
	Ride      *rider.Ride `json:"ride"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RedisStore keeps per-share last-seen entries plus a geo index of rider
// positions.
type RedisStore struct {
	client *redis.Client
}

// Connect builds a ping-verified store, or nil when no address is configured.
func Connect(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SaveLastSeen persists the snapshot for shareID and, when the ride resolves
// to a position, updates the geo index.
func (s *RedisStore) SaveLastSeen(ctx context.Context, shareID string, ride *rider.Ride) error {
	entry := Entry{Ride: ride, UpdatedAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, lastSeenPrefix+shareID, data, LastSeenTTL).Err(); err != nil {
		return err
	}

	if lat, lon, ok := rider.Position(ride); ok {
		return s.client.GeoAdd(ctx, positionsKey, &redis.GeoLocation{
			Name:      shareID,
			Latitude:  lat,
			Longitude: lon,
		}).Err()
	}
	return nil
}

// LastSeen returns the persisted entry for shareID, or nil on a miss.
func (s *RedisStore) LastSeen(ctx context.Context, shareID string) (*Entry, error) {
	data, err := s.client.Get(ctx, lastSeenPrefix+shareID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Forget removes everything stored for shareID.
func (s *RedisStore) Forget(ctx context.Context, shareID string) error {
	if err := s.client.Del(ctx, lastSeenPrefix+shareID).Err(); err != nil {
		return err
	}
	return s.client.ZRem(ctx, positionsKey, shareID).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
