package scheduler

import (
	"context"
	"time"

	"github.com/Gknightt/tts-gateway/internal/index"
	"github.com/Gknightt/tts-gateway/internal/logger"
	redisstore "github.com/Gknightt/tts-gateway/internal/store/redis"
)

// RedisSyncer keeps the in-memory fallback index aligned with Redis: a
// full sync at startup, then periodic resyncs so mappings upserted by
// other gateway instances become visible here even if Redis later goes
// away.
type RedisSyncer struct {
	store    *redisstore.Store
	index    *index.MemoryIndex
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	store *redisstore.Store,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
) *RedisSyncer {
	return &RedisSyncer{
		store:    store,
		index:    idx,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start syncs once immediately, then keeps resyncing on the interval.
func (rs *RedisSyncer) Start(ctx context.Context) error {
	if err := rs.Sync(ctx); err != nil {
		// Not fatal: the seed reloader or admin API will fill the index.
		rs.logger.Warn("initial redis sync failed", logger.Error(err))
	}

	ticker := time.NewTicker(rs.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rs.Sync(ctx); err != nil {
					rs.logger.Warn("periodic redis sync failed",
						logger.Error(err))
				}
			case <-rs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the syncer
func (rs *RedisSyncer) Stop() {
	close(rs.stopCh)
}

// Sync loads all mappings from Redis and replaces the memory index
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	mappings, err := rs.store.GetAllMappings(ctx)
	if err != nil {
		return err
	}

	if len(mappings) == 0 {
		rs.logger.Debug("no mappings found in redis")
		return nil
	}

	rs.index.ReplaceAll(mappings)

	rs.logger.Info("synced mappings from redis",
		logger.Int("count", len(mappings)))

	return nil
}
