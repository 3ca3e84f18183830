package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gknightt/tts-gateway/internal/domain"
	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
	"github.com/Gknightt/tts-gateway/internal/index"
	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/proxy"
	"github.com/Gknightt/tts-gateway/internal/registry"
	redisstore "github.com/Gknightt/tts-gateway/internal/store/redis"
)

func newTestDeps(t *testing.T) (deps.Deps, *registry.Registry) {
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
		RedisClient: client,
		MemoryIndex: idx,
		Registry:    reg,
		Forwarder:   fwd,
	}
	return d, reg
}

func newProxyRouter(d deps.Deps) *chi.Mux {
	r := chi.NewRouter()
	h := Proxy(d)
	r.Handle("/api/{system}/{service}", h)
	r.Handle("/api/{system}/{service}/*", h)
	r.Handle("/{system}/{service}", h)
	r.Handle("/{system}/{service}/*", h)
	return r
}

func registerBackend(t *testing.T, reg *registry.Registry, system, service, baseURL string) {
	t.Helper()
	_, err := reg.Upsert(context.Background(), &domain.ServiceMapping{
		System:  system,
		Service: service,
		BaseURL: baseURL,
	}, domain.SourceAPI)
	require.NoError(t, err)
}

func TestProxyForwardsToRegisteredBackend(t *testing.T) {
	var gotPath, gotQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 42, "status": "open"}`))
	}))
	defer backend.Close()

	d, reg := newTestDeps(t)
	registerBackend(t, reg, "TTS", "Ticket", backend.URL)
	router := newProxyRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/TTS/Ticket/tickets/42?verbose=1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/tickets/42", gotPath)
	assert.Equal(t, "verbose=1", gotQuery)
	assert.JSONEq(t, `{"id": 42, "status": "open"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestProxyAPIPrefixRoute(t *testing.T) {
	var gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	d, reg := newTestDeps(t)
	registerBackend(t, reg, "TTS", "Ticket", backend.URL)
	router := newProxyRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/api/TTS/Ticket/tickets/42", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/tickets/42", gotPath)
}

func TestProxyUnknownPairReturns404(t *testing.T) {
	d, _ := newTestDeps(t)
	router := newProxyRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/TTS/Nope/tickets", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error": "Service not found for TTS/Nope"}`, rr.Body.String())
}

func TestProxyBackendErrorStatusRelayedVerbatim(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"title": ["This field is required."]}`))
	}))
	defer backend.Close()

	d, reg := newTestDeps(t)
	registerBackend(t, reg, "TTS", "Ticket", backend.URL)
	router := newProxyRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/TTS/Ticket/tickets", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// A backend 422 is the backend's answer, not a gateway failure.
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"title": ["This field is required."]}`, rr.Body.String())
}

func TestProxyBackendDownReturns500Envelope(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := backend.URL
	backend.Close() // connection refused from here on

	d, reg := newTestDeps(t)
	registerBackend(t, reg, "TTS", "Ticket", base)
	router := newProxyRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/TTS/Ticket/tickets/42", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp proxyErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Service request failed", resp.Error)
	assert.NotEmpty(t, resp.Details)
	assert.Equal(t, base+"/tickets/42", resp.TargetURL)
	assert.Empty(t, resp.Traceback)
}

func TestProxyCSRFCookieBecomesHeader(t *testing.T) {
	var gotCSRF, gotMarker string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCSRF = r.Header.Get("X-CSRFToken")
		gotMarker = r.Header.Get("X-API-Gateway")
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	d, reg := newTestDeps(t)
	registerBackend(t, reg, "TTS", "Ticket", backend.URL)
	router := newProxyRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/TTS/Ticket/tickets", strings.NewReader(`{"title":"x"}`))
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: "tok123"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "tok123", gotCSRF)
	assert.Equal(t, "true", gotMarker)
}

func TestProxyEmptyTailPath(t *testing.T) {
	var gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	d, reg := newTestDeps(t)
	registerBackend(t, reg, "TTS", "Ticket", backend.URL)
	router := newProxyRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/TTS/Ticket", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/", gotPath)
}

func TestWriteInternalErrorTracebackGating(t *testing.T) {
	stack := []byte("goroutine 1 [running]:\nmain.main()")
	cases := []struct {
		name   string
		expose bool
	}{
		{"hidden by default", false},
		{"exposed when enabled", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newTestDeps(t)
			d.ExposeInternalErrors = tc.expose

			rr := httptest.NewRecorder()
			writeInternalError(rr, d, assert.AnError, stack)

			assert.Equal(t, http.StatusInternalServerError, rr.Code)

			var resp proxyErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "Unexpected gateway error", resp.Error)
			if tc.expose {
				assert.Equal(t, string(stack), resp.Traceback)
			} else {
				assert.Empty(t, resp.Traceback)
			}
		})
	}
}
