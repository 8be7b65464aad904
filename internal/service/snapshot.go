package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aman-churiwal/exchange-governor/internal/governor"
	"github.com/aman-churiwal/exchange-governor/internal/storage"
)

const (
	snapshotCacheKey = "governor:snapshot:cache"
	snapshotCacheTTL = time.Second
)

// SnapshotService serves governor state snapshots to the HTTP layer.
// Snapshots are cached in Redis for a second so a dashboard with many
// open tabs polling the status endpoints doesn't hammer the governor
// mutex; redis may be nil, in which case every call reads live state.
type SnapshotService struct {
	gov   *governor.Governor
	redis *storage.RedisClient
}

func NewSnapshotService(gov *governor.Governor, redis *storage.RedisClient) *SnapshotService {
	return &SnapshotService{
		gov:   gov,
		redis: redis,
	}
}

func (s *SnapshotService) Snapshot(ctx context.Context) governor.Snapshot {
	// Check cache first
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, snapshotCacheKey)
		if err == nil && cached != "" {
			var snap governor.Snapshot
			if err := json.Unmarshal([]byte(cached), &snap); err == nil {
				return snap
			}
		}
	}

	// Cache miss - read live state
	snap := s.gov.Snapshot()

	if s.redis != nil {
		if data, err := json.Marshal(snap); err == nil {
			s.redis.Set(ctx, snapshotCacheKey, data, snapshotCacheTTL)
		}
	}

	return snap
}

// Live bypasses the cache. Used by the health check, which must see the
// governor's real state rather than a value cached just before a stop.
func (s *SnapshotService) Live() governor.Snapshot {
	return s.gov.Snapshot()
}
