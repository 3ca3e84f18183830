package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Gknightt/tts-gateway/internal/domain"
	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/registry"
	"github.com/Gknightt/tts-gateway/internal/sources/seed"
)

// SeedReloader handles periodic reloading of the mappings seed file
type SeedReloader struct {
	loader        *seed.Loader
	mapper        *seed.Mapper
	registry      *registry.Registry
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSeedReloader creates a new seed reloader
func NewSeedReloader(
	seedFile string,
	reg *registry.Registry,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SeedReloader {
	return &SeedReloader{
		loader:        seed.NewLoader(seedFile),
		mapper:        seed.NewMapper(),
		registry:      reg,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic reload process
func (sr *SeedReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := sr.Reload(ctx); err != nil {
		return fmt.Errorf("initial seed reload failed: %w", err)
	}

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Error("failed to reload seed mappings",
						logger.Error(err))
				}
			case <-sr.manualTrigger:
				sr.logger.Info("manual seed reload triggered")
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Error("failed to reload seed mappings",
						logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (sr *SeedReloader) Stop() {
	close(sr.stopCh)
}

// Reload loads mappings from the seed file and upserts them into the
// registry. Pairs that disappeared from the file are left registered:
// removal is an explicit administrative action, never a side effect of
// editing the seed.
func (sr *SeedReloader) Reload(ctx context.Context) error {
	sr.logger.Info("reloading mappings from seed file")

	config, err := sr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load seed mappings: %w", err)
	}

	mappings, err := sr.mapper.MapMappings(config)
	if err != nil {
		return fmt.Errorf("failed to map seed mappings: %w", err)
	}

	if err := sr.registry.UpsertMany(ctx, mappings, domain.SourceSeed); err != nil {
		return fmt.Errorf("failed to upsert seed mappings: %w", err)
	}

	sr.logger.Info("seed mappings registered",
		logger.Int("count", len(mappings)))

	return nil
}
