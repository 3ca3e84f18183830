package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	MappingsLoaded *int   `json:"mappings_loaded,omitempty"`
	LastSync       string `json:"last_sync,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Error          string `json:"error,omitempty"`
}

type infraResponse struct {
	RoutingMode string                     `json:"routing_mode"`
	Components  map[string]componentStatus `json:"components"`
}

// Infra reports the health of the gateway's moving parts: the mapping
// index, the Redis registry store, and the forwarding mode derived from
// them.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingsCount := d.MemoryIndex.Count()
		lastSync := d.MemoryIndex.GetLastReload()
		lastSyncStr := "never"
		if !lastSync.IsZero() {
			lastSyncStr = lastSync.Format("2006-01-02 15:04:05")
		}

		redisStatus := checkRedis(d)

		components := map[string]componentStatus{
			"registry": {
				OK:             mappingsCount > 0,
				MappingsLoaded: &mappingsCount,
				LastSync:       lastSyncStr,
			},
			"redis": redisStatus,
		}

		writeJSON(w, http.StatusOK, infraResponse{
			RoutingMode: determineRoutingMode(components),
			Components:  components,
		})
	}
}

func determineRoutingMode(components map[string]componentStatus) string {
	// No mappings at all: every forward would 404.
	if reg, exists := components["registry"]; exists {
		if !reg.OK || (reg.MappingsLoaded != nil && *reg.MappingsLoaded == 0) {
			return "critical"
		}
	}

	// Redis down: lookups serve from the memory index only.
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}

	return "normal"
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "lookups-from-memory-only",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "lookups-from-memory-only",
			Error:  "timeout",
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "none",
		Error:  "none",
	}
}
