package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/proxy"
)

// csrfCookieName is the session cookie the CSRF token is derived from.
const csrfCookieName = "csrftoken"

// proxyErrorResponse is the stable error envelope for forwarding failures.
type proxyErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	TargetURL string `json:"target_url,omitempty"`
	Traceback string `json:"traceback,omitempty"`
}

// Proxy handles ANY /{system}/{service}/* (and the /api-prefixed twin):
// it builds a forwarding request from the inbound call, hands it to the
// Forwarder and relays the backend response.
func Proxy(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		system := chi.URLParam(r, "system")
		service := chi.URLParam(r, "service")
		tail := chi.URLParam(r, "*")

		defer func() {
			if rec := recover(); rec != nil {
				d.Logger.Error("panic while forwarding",
					logger.String("system", system),
					logger.String("service", service))
				writeInternalError(w, d, fmt.Errorf("panic: %v", rec), debug.Stack())
			}
		}()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeInternalError(w, d, fmt.Errorf("read request body: %w", err), nil)
			return
		}

		csrfToken := ""
		if c, err := r.Cookie(csrfCookieName); err == nil {
			csrfToken = c.Value
		}

		res, err := d.Forwarder.Forward(r.Context(), &proxy.Request{
			System:    system,
			Service:   service,
			TailPath:  tail,
			Method:    r.Method,
			Header:    r.Header,
			RawQuery:  r.URL.RawQuery,
			Body:      body,
			CSRFToken: csrfToken,
		})
		if err != nil {
			writeForwardError(w, d, err)
			return
		}

		for key, values := range res.Header {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
		w.WriteHeader(res.StatusCode)
		if _, err := w.Write(res.Body); err != nil {
			d.Logger.Debug("failed to write relayed body", logger.Error(err))
		}
	}
}

// writeForwardError converts a forwarding failure into the JSON envelope
// the caller receives. Backend error statuses never reach this path; they
// are relayed verbatim.
func writeForwardError(w http.ResponseWriter, d deps.Deps, err error) {
	fe, ok := proxy.AsForwardError(err)
	if !ok {
		writeInternalError(w, d, err, nil)
		return
	}

	switch fe.Kind {
	case proxy.KindNotRegistered:
		writeJSON(w, http.StatusNotFound, proxyErrorResponse{
			Error: fmt.Sprintf("Service not found for %s/%s", fe.System, fe.Service),
		})

	case proxy.KindBackendUnreachable:
		target := fe.TargetURL
		if target == "" {
			target = "Unknown"
		}
		details := ""
		if fe.Cause != nil {
			details = fe.Cause.Error()
		}
		writeJSON(w, http.StatusInternalServerError, proxyErrorResponse{
			Error:     "Service request failed",
			Details:   details,
			TargetURL: target,
		})

	default:
		writeInternalError(w, d, fe.Cause, fe.Stack)
	}
}

func writeInternalError(w http.ResponseWriter, d deps.Deps, cause error, stack []byte) {
	resp := proxyErrorResponse{
		Error: "Unexpected gateway error",
	}
	if cause != nil {
		resp.Details = cause.Error()
	}
	if d.ExposeInternalErrors && stack != nil {
		resp.Traceback = string(stack)
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
