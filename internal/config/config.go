package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	SeedFile       string        // path to the mappings seed file (optional, empty = seeding disabled)
	ReloadInterval time.Duration // interval to reload the seed file (default: 24h)
	SyncInterval   time.Duration // interval to resync the memory index from Redis (default: 5m)

	UpstreamTimeout      time.Duration // per-request timeout for forwarded calls (0 = no timeout)
	TrustHeaders         bool          // true => inject trust headers on mutating requests
	ExposeInternalErrors bool          // true => include tracebacks in 500 payloads (debug only)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict the admin surface to specific Host headers
	AllowedCIDRS []string // optional, restrict the admin surface to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	RateLimitBurst  int // admin rate limiter bucket size
	RateLimitRefill int // admin rate limiter refill per IP per minute
}

func Load() *Config {
	// Local development convenience. Missing file is fine: in
	// deployments everything comes from the real environment.
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("GATEWAY_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("GATEWAY_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("GATEWAY_LOG_LEVEL", "info"),
		PrettyLog: mustBool("GATEWAY_PRETTY_LOG", true),

		// Mapping sources
		SeedFile:       getenv("GATEWAY_SEED_FILE", ""), // Optional, empty = seeding disabled
		ReloadInterval: mustDuration("GATEWAY_RELOAD_SOURCE_INTERVAL", 24*time.Hour),
		SyncInterval:   mustDuration("GATEWAY_SYNC_INTERVAL", 5*time.Minute),

		// Forwarding behavior
		UpstreamTimeout:      mustDuration("GATEWAY_UPSTREAM_TIMEOUT", 0),
		TrustHeaders:         mustBool("GATEWAY_TRUST_HEADERS", true),
		ExposeInternalErrors: mustBool("GATEWAY_EXPOSE_INTERNAL_ERRORS", false),

		// Redis settings
		RedisAddr:             requireEnv("GATEWAY_REDIS_ADDR"),
		RedisUser:             getenv("GATEWAY_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("GATEWAY_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("GATEWAY_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("GATEWAY_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions (admin surface only, forwarding stays open)
		AllowedHosts: splitAndTrim(getenv("GATEWAY_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("GATEWAY_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("GATEWAY_TRUST_PROXY", true),

		RateLimitBurst:  getenvInt("GATEWAY_RATE_LIMIT_BURST", 20),
		RateLimitRefill: getenvInt("GATEWAY_RATE_LIMIT_REFILL", 60),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: GATEWAY_REDIS_PASSWORD is required when GATEWAY_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
