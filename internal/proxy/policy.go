package proxy

import "net/http"

// Headers injected for requests that cross the gateway trust boundary.
const (
	HeaderGatewayMarker = "X-API-Gateway"
	HeaderRequestedWith = "X-Requested-With"
	HeaderCSRFToken     = "X-CSRFToken"
)

// mutatingMethods are the methods that receive trust headers.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// TrustHeaderPolicy marks outbound mutating requests as originating from
// the gateway so backends can skip same-origin/CSRF checks for calls
// forwarded on a user's behalf.
//
// This is a trust boundary: backends must honor these headers only when
// the network path guarantees the gateway is the sole caller. The policy
// is injected into the Forwarder and can be disabled per deployment.
type TrustHeaderPolicy struct {
	// Enabled toggles injection. When false no headers are added.
	Enabled bool
}

// Apply injects the trust headers into an outbound request. Only mutating
// methods (POST, PUT, PATCH, DELETE) are marked; csrfToken is forwarded
// only when present, never sent empty.
func (p TrustHeaderPolicy) Apply(req *http.Request, csrfToken string) {
	if !p.Enabled || !mutatingMethods[req.Method] {
		return
	}

	req.Header.Set(HeaderGatewayMarker, "true")
	req.Header.Set(HeaderRequestedWith, "XMLHttpRequest")
	if csrfToken != "" {
		req.Header.Set(HeaderCSRFToken, csrfToken)
	}
}
