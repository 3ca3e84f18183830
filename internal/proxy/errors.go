package proxy

import (
	"errors"
	"fmt"
)

// ErrorKind classifies forwarding failures. Backend responses with error
// status codes are not failures; they are relayed verbatim.
type ErrorKind int

const (
	// KindNotRegistered means the (system, service) pair has no mapping.
	KindNotRegistered ErrorKind = iota
	// KindBackendUnreachable means the backend could not be reached at the
	// transport level (connection refused, timeout, DNS failure).
	KindBackendUnreachable
	// KindInternal covers any other unexpected failure while forwarding.
	KindInternal
)

// String returns the metric label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotRegistered:
		return "not_registered"
	case KindBackendUnreachable:
		return "backend_unreachable"
	default:
		return "internal"
	}
}

// ForwardError is a failed forwarding attempt.
type ForwardError struct {
	Kind      ErrorKind
	System    string
	Service   string
	TargetURL string // empty when the target was never computed
	Cause     error
	Stack     []byte // populated for KindInternal when captured
}

func (e *ForwardError) Error() string {
	if e.TargetURL != "" {
		if e.Cause != nil {
			return fmt.Sprintf("forward %s/%s target=%s: %v", e.System, e.Service, e.TargetURL, e.Cause)
		}
		return fmt.Sprintf("forward %s/%s target=%s: %s", e.System, e.Service, e.TargetURL, e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("forward %s/%s: %v", e.System, e.Service, e.Cause)
	}
	return fmt.Sprintf("forward %s/%s: %s", e.System, e.Service, e.Kind)
}

// Unwrap returns the underlying error.
func (e *ForwardError) Unwrap() error {
	return e.Cause
}

// AsForwardError extracts a ForwardError from an error chain.
func AsForwardError(err error) (*ForwardError, bool) {
	var fe *ForwardError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func newNotRegisteredError(system, service string) *ForwardError {
	return &ForwardError{
		Kind:    KindNotRegistered,
		System:  system,
		Service: service,
	}
}

func newUnreachableError(system, service, target string, cause error) *ForwardError {
	return &ForwardError{
		Kind:      KindBackendUnreachable,
		System:    system,
		Service:   service,
		TargetURL: target,
		Cause:     cause,
	}
}

func newInternalError(system, service, target string, cause error, stack []byte) *ForwardError {
	return &ForwardError{
		Kind:      KindInternal,
		System:    system,
		Service:   service,
		TargetURL: target,
		Cause:     cause,
		Stack:     stack,
	}
}
