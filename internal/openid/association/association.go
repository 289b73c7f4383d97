// Package association implements the shared-secret lifecycle between the
// relying party and one provider endpoint: the associate wire exchange, the
// single provider-hinted retry, and the store-backed manager that hands out
// only non-expired associations.
package association

import (
	"context"
	"time"
)

// Assoc types and session types from the protocol. DH session math is hidden
// behind the Client interface; the default client speaks no-encryption, which
// the protocol allows over TLS.
const (
	TypeHMACSHA1   = "HMAC-SHA1"
	TypeHMACSHA256 = "HMAC-SHA256"

	SessionNone     = "no-encryption"
	SessionDHSHA1   = "DH-SHA1"
	SessionDHSHA256 = "DH-SHA256"
)

// Association is the shared secret negotiated with one provider endpoint.
type Association struct {
	// Handle is the provider-issued opaque identifier sent back in
	// openid.assoc_handle.
	Handle string `json:"handle"`

	// Type is the MAC algorithm (HMAC-SHA1 or HMAC-SHA256).
	Type string `json:"type"`

	// Secret is the raw MAC key.
	Secret []byte `json:"secret"`

	// Expires is the absolute expiry instant.
	Expires time.Time `json:"expires"`
}

// Valid reports whether the association still has useful life left. An
// expired association must never be used; every consumer checks this before
// touching the handle.
func (a *Association) Valid() bool {
	return a != nil && a.Handle != "" && time.Now().Before(a.Expires)
}

// TTL returns the remaining lifetime, zero when expired.
func (a *Association) TTL() time.Duration {
	if a == nil {
		return 0
	}
	d := time.Until(a.Expires)
	if d < 0 {
		return 0
	}
	return d
}

// Store persists associations keyed by provider endpoint URL. A nil Store is
// a legal configuration (stateless mode: no caching, no liveness probing).
//
// Implementations must be safe for concurrent use; last-writer-wins on
// concurrent Put for the same endpoint is acceptable.
type Store interface {
	// Get returns the association for endpointURL, or nil when absent.
	// Implementations may return expired entries; callers filter.
	Get(ctx context.Context, endpointURL string) (*Association, error)

	// Put stores assoc under endpointURL, replacing any previous entry.
	Put(ctx context.Context, endpointURL string, assoc *Association) error
}
