// Package errs defines the error kinds the engine distinguishes for
// propagation and logging purposes.
package errs

import "fmt"

// TransportError wraps a websocket/network-level failure.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError indicates a request exceeded its deadline without a
// terminal response.
type TimeoutError struct{ Operation string }

func (e *TimeoutError) Error() string { return fmt.Sprintf("timeout: %s", e.Operation) }

// BrokerError wraps a broker-reported error code/description pair.
type BrokerError struct {
	Code        string
	Description string
}

func (e *BrokerError) Error() string { return fmt.Sprintf("broker error %s: %s", e.Code, e.Description) }

// RateLimitError indicates the broker rejected a request for exceeding
// its request-frequency limit.
type RateLimitError struct{ Description string }

func (e *RateLimitError) Error() string { return fmt.Sprintf("rate limited: %s", e.Description) }

// AuthError indicates the authentication handshake failed.
type AuthError struct{ Reason string }

func (e *AuthError) Error() string { return fmt.Sprintf("auth failed: %s", e.Reason) }

// RiskDenied indicates the risk manager refused to open a position.
type RiskDenied struct{ Reason string }

func (e *RiskDenied) Error() string { return fmt.Sprintf("risk denied: %s", e.Reason) }

// InvariantViolation indicates an internal consistency check failed;
// these should never occur and are logged loudly when they do.
type InvariantViolation struct{ Detail string }

func (e *InvariantViolation) Error() string { return fmt.Sprintf("invariant violation: %s", e.Detail) }
