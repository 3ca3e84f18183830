package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
	"github.com/Gknightt/tts-gateway/internal/httpserver/routes"
	"github.com/Gknightt/tts-gateway/internal/index"
	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/proxy"
	"github.com/Gknightt/tts-gateway/internal/registry"
	redisstore "github.com/Gknightt/tts-gateway/internal/store/redis"
)

// newGateway assembles the full router the way the server does, backed
// by a throwaway Redis. Returns the gateway test server.
func newGateway(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisstore.NewStore(client)
	idx := index.NewMemoryIndex()
	reg := registry.New(store, idx, logger.NewNop())
	fwd := proxy.NewForwarder(reg, proxy.WithLogger(logger.NewNop()))

	d := deps.Deps{
		Logger:      logger.NewNop(),
		StartTime:   time.Now(),
		Version:     "test",
		RedisClient: client,
		MemoryIndex: idx,
		Registry:    reg,
		Forwarder:   fwd,
		RateLimit:   deps.RateLimitSettings{Burst: 100, RefillPerIPPerMin: 6000},
	}

	r := chi.NewRouter()
	routes.RegisterAll(r, d)

	gw := httptest.NewServer(r)
	t.Cleanup(gw.Close)
	return gw
}

func registerMapping(t *testing.T, gw *httptest.Server, system, service, baseURL string) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"system":   system,
		"service":  service,
		"base_url": baseURL,
	})
	require.NoError(t, err)

	resp, err := http.Post(gw.URL+"/service", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Contains(t, []int{http.StatusCreated, http.StatusOK}, resp.StatusCode)
}

// TestGatewayRoundTrip registers a backend through the admin API, then
// forwards requests to it over both route forms.
func TestGatewayRoundTrip(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path": %q, "method": %q}`, r.URL.Path, r.Method)
	}))
	defer backend.Close()

	gw := newGateway(t)
	registerMapping(t, gw, "TTS", "Ticket", backend.URL)

	for _, prefix := range []string{"", "/api"} {
		resp, err := http.Get(gw.URL + prefix + "/TTS/Ticket/tickets/42")
		require.NoError(t, err)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "/tickets/42", body["path"], "prefix %q", prefix)
		assert.Equal(t, http.MethodGet, body["method"])
	}
}

// TestGatewayStaticRoutesWinOverProxy checks that the operational routes
// are not swallowed by the catch-all forwarding patterns.
func TestGatewayStaticRoutesWinOverProxy(t *testing.T) {
	gw := newGateway(t)

	resp, err := http.Get(gw.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestGatewayUnknownServiceReturns404(t *testing.T) {
	gw := newGateway(t)

	resp, err := http.Get(gw.URL + "/TTS/Nope/anything")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Service not found for TTS/Nope", body["error"])
}

func TestGatewayAdminLifecycle(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	gw := newGateway(t)
	registerMapping(t, gw, "TTS", "Workflow", backend.URL)

	// Visible in the listing.
	resp, err := http.Get(gw.URL + "/service")
	require.NoError(t, err)
	var listing struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	_ = resp.Body.Close()
	assert.Equal(t, 1, listing.Count)

	// Forwarding works while registered.
	resp, err = http.Get(gw.URL + "/TTS/Workflow/steps")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Remove the pair; forwarding reports it as unknown afterwards.
	req, err := http.NewRequest(http.MethodDelete, gw.URL+"/service/TTS/Workflow", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(gw.URL + "/TTS/Workflow/steps")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGatewayReloadWithoutSeedFile(t *testing.T) {
	gw := newGateway(t) // ReloadTrigger nil: seeding disabled

	resp, err := http.Post(gw.URL+"/reload", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGatewayMetricsExposed(t *testing.T) {
	gw := newGateway(t)

	resp, err := http.Get(gw.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
