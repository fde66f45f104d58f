// Package security implements the gate every mutating portal operation
// passes through: password hashing, input sanitization, per-identity rate
// limiting, log obfuscation and a tracer probe.
package security

import (
	"strings"
	"time"

	"qala.org/internal/obs"
)

// Gate rejection and acceptance messages surfaced to callers.
const (
	MsgSafe        = "Safe"
	MsgTooLarge    = "Data size is too large."
	MsgInvalid     = "Invalid characters detected."
	MsgRateLimited = "You have sent too many requests. Please wait."
)

// GuestIdentity is charged for requests with no authenticated identity.
const GuestIdentity = "guest"

// Gate is the composite validation choke point.
type Gate struct {
	maxInput int
	limiter  *RateLimiter
}

// NewGate builds a gate with the given input cap and rate-limit parameters.
func NewGate(maxInput int, window time.Duration, maxRequests int) *Gate {
	return &Gate{
		maxInput: maxInput,
		limiter:  NewRateLimiter(window, maxRequests),
	}
}

// MaxInputLength returns the configured input cap.
func (g *Gate) MaxInputLength() int { return g.maxInput }

// Limiter exposes the underlying rate limiter (clock override in tests).
func (g *Gate) Limiter() *RateLimiter { return g.limiter }

// ValidateInput runs the composite check: size cap, sanitize-divergence
// heuristic, then the sliding-window rate limit. The divergence check
// compares the sanitized form against a plain quote-escaped original and
// rejects any difference; it is known to reject benign input containing a
// banned token, and that behavior is kept as-is.
func (g *Gate) ValidateInput(value, identity string) (bool, string) {
	if identity == "" {
		identity = GuestIdentity
	}

	if len(value) > g.maxInput {
		return false, MsgTooLarge
	}

	if Sanitize(value) != strings.ReplaceAll(value, "'", "''") {
		return false, MsgInvalid
	}

	if !g.limiter.Allow(identity) {
		obs.RateLimitedTotal.Inc()
		obs.Trace("security.rate_limited", map[string]any{"identity": identity})
		return false, MsgRateLimited
	}
	return true, MsgSafe
}
