package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gknightt/tts-gateway/internal/index"
	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/proxy"
	"github.com/Gknightt/tts-gateway/internal/registry"
)

// RateLimitSettings configures the admin-surface rate limiter.
type RateLimitSettings struct {
	Burst             int
	RefillPerIPPerMin int
}

type Deps struct {
	Logger               logger.Logger
	StartTime            time.Time
	Version              string
	Commit               string
	BuildDate            string
	GoVersion            string
	AllowedHosts         []string          // Host headers allowed on the admin surface
	AllowedCIDRS         []string          // IPs allowed on the admin/ops surface
	TrustProxy           bool              // true if running behind a trusted reverse proxy
	RedisClient          *redis.Client     // Redis client connection
	MemoryIndex          *index.MemoryIndex
	Registry             *registry.Registry
	Forwarder            *proxy.Forwarder
	SeedFile             string        // Path to the mappings seed file ("" = seeding disabled)
	ReloadTrigger        chan struct{} // Channel to trigger a manual seed reload (nil if disabled)
	ExposeInternalErrors bool          // include tracebacks in 500 payloads (debug only)
	RateLimit            RateLimitSettings
}
