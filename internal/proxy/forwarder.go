package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/utils"
)

// hopHeaders are never relayed in either direction.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Registry resolves a (system, service) pair to a backend base URL.
// ok is false when the pair is not registered.
type Registry interface {
	Resolve(ctx context.Context, system, service string) (baseURL string, ok bool, err error)
}

// Request is one inbound call to forward. It is constructed per inbound
// HTTP request, consumed once by the Forwarder, then discarded.
type Request struct {
	System    string
	Service   string
	TailPath  string // remainder of the path, no leading slash
	Method    string
	Header    http.Header
	RawQuery  string
	Body      []byte
	CSRFToken string // session token from the inbound cookie, may be empty
}

// Result is the backend response to relay to the caller.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forwarder proxies requests to the backend named by the registry.
//
// It holds no mutable state of its own: every call performs one registry
// read and at most one outbound HTTP request, so concurrent forwards need
// no locking.
type Forwarder struct {
	registry Registry
	client   *http.Client
	policy   TrustHeaderPolicy
	logger   logger.Logger
	metrics  *forwardMetrics
}

// Option is a functional option for configuring the Forwarder.
type Option func(*Forwarder)

// WithHTTPClient sets the outbound HTTP client. The client's timeout is
// the only timeout applied to backend calls.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		f.client = client
	}
}

// WithLogger sets the logger for the forwarder.
func WithLogger(log logger.Logger) Option {
	return func(f *Forwarder) {
		f.logger = log
	}
}

// WithTrustHeaderPolicy sets the trust header injection policy.
func WithTrustHeaderPolicy(policy TrustHeaderPolicy) Option {
	return func(f *Forwarder) {
		f.policy = policy
	}
}

// NewForwarder creates a forwarder over the given registry.
func NewForwarder(reg Registry, opts ...Option) *Forwarder {
	f := &Forwarder{
		registry: reg,
		client:   &http.Client{},
		policy:   TrustHeaderPolicy{Enabled: true},
		logger:   logger.NewNop(),
		metrics:  getForwardMetrics(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Forward resolves the pair, issues a single outbound request and returns
// the backend response. Backend error statuses are relayed in the Result;
// only lookup misses, transport failures and unexpected errors come back
// as a *ForwardError.
func (f *Forwarder) Forward(ctx context.Context, req *Request) (*Result, error) {
	base, ok, err := f.registry.Resolve(ctx, req.System, req.Service)
	if err != nil {
		fe := newInternalError(req.System, req.Service, "", fmt.Errorf("registry lookup: %w", err), nil)
		f.metrics.observeError(fe.Kind)
		return nil, fe
	}
	if !ok {
		fe := newNotRegisteredError(req.System, req.Service)
		f.metrics.observeError(fe.Kind)
		f.logger.Warn("no mapping for pair",
			logger.String("system", req.System),
			logger.String("service", req.Service))
		return nil, fe
	}

	target := base + "/" + req.TailPath
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(req.Body))
	if err != nil {
		fe := newInternalError(req.System, req.Service, target, fmt.Errorf("build outbound request: %w", err), nil)
		f.metrics.observeError(fe.Kind)
		return nil, fe
	}

	out.Header = outboundHeaders(req.Header)
	f.policy.Apply(out, req.CSRFToken)

	start := time.Now()
	resp, err := f.client.Do(out)
	if err != nil {
		fe := newUnreachableError(req.System, req.Service, target, err)
		f.metrics.observeError(fe.Kind)
		f.logger.Error("backend unreachable",
			logger.String("method", req.Method),
			logger.String("target_url", target),
			logger.Error(err))
		return nil, fe
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fe := newUnreachableError(req.System, req.Service, target, fmt.Errorf("read backend response: %w", err))
		f.metrics.observeError(fe.Kind)
		return nil, fe
	}

	elapsed := time.Since(start)
	f.metrics.observeForward(req.System, req.Service, resp.StatusCode, elapsed)

	if resp.StatusCode >= http.StatusBadRequest {
		f.logger.Warn("backend returned error status",
			logger.String("method", req.Method),
			logger.String("target_url", target),
			logger.Int("status", resp.StatusCode),
			logger.String("body", utils.Truncate(string(body), 512)))
	} else {
		f.logger.Info("forwarded request",
			logger.String("method", req.Method),
			logger.String("target_url", target),
			logger.Int("status", resp.StatusCode),
			logger.Duration("duration", elapsed))
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     relayHeaders(resp.Header, body),
		Body:       body,
	}, nil
}

// outboundHeaders copies the inbound headers, dropping Host and
// Content-Length: both are owned by the outbound HTTP client. Hop-by-hop
// headers are dropped as well.
func outboundHeaders(in http.Header) http.Header {
	out := in.Clone()
	if out == nil {
		out = make(http.Header)
	}
	out.Del("Host")
	out.Del("Content-Length")
	for _, h := range hopHeaders {
		out.Del(h)
	}
	return out
}

// relayHeaders copies backend response headers for the relayed response.
// Content-Type is normalized: JSON-parseable bodies are relayed as JSON,
// anything else keeps the backend's content type, text/plain by default.
func relayHeaders(in http.Header, body []byte) http.Header {
	out := in.Clone()
	if out == nil {
		out = make(http.Header)
	}
	out.Del("Content-Length")
	for _, h := range hopHeaders {
		out.Del(h)
	}

	if len(body) > 0 && json.Valid(body) {
		out.Set("Content-Type", "application/json")
	} else if out.Get("Content-Type") == "" {
		out.Set("Content-Type", "text/plain")
	}

	return out
}
