package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Gknightt/tts-gateway/internal/config"
	"github.com/Gknightt/tts-gateway/internal/httpserver"
	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
	"github.com/Gknightt/tts-gateway/internal/index"
	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/proxy"
	"github.com/Gknightt/tts-gateway/internal/redis"
	"github.com/Gknightt/tts-gateway/internal/registry"
	"github.com/Gknightt/tts-gateway/internal/scheduler"
	redisstore "github.com/Gknightt/tts-gateway/internal/store/redis"
	"github.com/Gknightt/tts-gateway/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	memIndex    *index.MemoryIndex
	syncer      *scheduler.RedisSyncer
	reloader    *scheduler.SeedReloader
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Initialize memory index (fallback routing table)
	memIndex := index.NewMemoryIndex()

	// Initialize Redis store and mapping registry
	store := redisstore.NewStore(redisClient)
	reg := registry.New(store, memIndex, loggerClient)

	// Forwarder with the configured upstream client. A zero timeout
	// means forwarded requests wait as long as the backend takes.
	upstreamClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	fwd := proxy.NewForwarder(reg,
		proxy.WithHTTPClient(upstreamClient),
		proxy.WithLogger(loggerClient),
		proxy.WithTrustHeaderPolicy(proxy.TrustHeaderPolicy{Enabled: cfg.TrustHeaders}),
	)

	// Keep the memory index aligned with Redis
	syncer := scheduler.NewRedisSyncer(store, memIndex, loggerClient, cfg.SyncInterval)

	// Initialize seed reloader (if a seed file is configured)
	var reloader *scheduler.SeedReloader
	var reloadTrigger chan struct{}
	if cfg.SeedFile != "" {
		loggerClient.Info("seed file configured, initializing seed reloader",
			logger.String("file", cfg.SeedFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewSeedReloader(
			cfg.SeedFile,
			reg,
			loggerClient,
			cfg.ReloadInterval,
			reloadTrigger,
		)
	} else {
		loggerClient.Info("seed file not configured, mappings come from redis and the admin API only")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:               loggerClient,
		StartTime:            time.Now(),
		Version:              version.Version,
		Commit:               version.Commit,
		BuildDate:            version.BuildDate,
		GoVersion:            version.GoVersion,
		AllowedHosts:         cfg.AllowedHosts,
		AllowedCIDRS:         cfg.AllowedCIDRS,
		TrustProxy:           cfg.TrustProxy,
		RedisClient:          redisClient,
		MemoryIndex:          memIndex,
		Registry:             reg,
		Forwarder:            fwd,
		SeedFile:             cfg.SeedFile,
		ReloadTrigger:        reloadTrigger,
		ExposeInternalErrors: cfg.ExposeInternalErrors,
		RateLimit: deps.RateLimitSettings{
			Burst:             cfg.RateLimitBurst,
			RefillPerIPPerMin: cfg.RateLimitRefill,
		},
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		memIndex:    memIndex,
		syncer:      syncer,
		reloader:    reloader,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Gateway v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Gateway %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Redis syncer (initial sync plus periodic resync)
	if err := a.syncer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start redis syncer: %w", err)
	}
	a.logger.Info("redis syncer started",
		logger.Duration("interval", a.cfg.SyncInterval))

	// Start seed reloader (if enabled)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start seed reloader: %w", err)
		}
		a.logger.Info("seed reloader started",
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop schedulers
	a.syncer.Stop()
	if a.reloader != nil {
		a.reloader.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Gateway stopped cleanly")
	return nil
}
