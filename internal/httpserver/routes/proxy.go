package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
	"github.com/Gknightt/tts-gateway/internal/httpserver/handlers"
)

func init() { Register(registerProxy) }

// registerProxy mounts the forwarding routes for every HTTP method:
// an explicit /api-prefixed form and a bare form of lower specificity.
// The tail-less variants let /{system}/{service} forward with an empty
// tail path.
func registerProxy(r chi.Router, d deps.Deps) {
	h := handlers.Proxy(d)

	r.Handle("/api/{system}/{service}", h)
	r.Handle("/api/{system}/{service}/*", h)
	r.Handle("/{system}/{service}", h)
	r.Handle("/{system}/{service}/*", h)
}
