package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
	"github.com/Gknightt/tts-gateway/internal/httpserver/handlers"
	"github.com/Gknightt/tts-gateway/internal/httpserver/mw"
)

func init() { Register(registerService) }

// registerService mounts the administrative registry API. Not on the hot
// forwarding path; guarded by host/CIDR allow-lists and rate limiting.
func registerService(r chi.Router, d deps.Deps) {
	admin := r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateLimit.Burst,
			RefillPerIPPerMin: d.RateLimit.RefillPerIPPerMin,
			TrustProxy:        d.TrustProxy,
		}),
	)

	admin.Get("/service", handlers.ListMappings(d))
	admin.Post("/service", handlers.UpsertMapping(d))
	admin.Get("/service/{system}/{service}", handlers.GetMapping(d))
	admin.Delete("/service/{system}/{service}", handlers.DeleteMapping(d))
}
