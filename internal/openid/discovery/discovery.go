// Package discovery defines the endpoint descriptor produced by identifier
// discovery and the capability the engine consumes to obtain it.
//
// The discovery algorithm itself (Yadis/XRDS, HTML link rel) lives behind the
// Discoverer interface; this module only ships a static table implementation
// for tests and fixed-provider deployments.
package discovery

import (
	"context"

	"github.com/dropDatabas3/knockknock/internal/openid"
)

// Endpoint describes one provider able to authenticate a claimed identifier.
// Immutable once discovered; the engine copies, never mutates.
type Endpoint struct {
	// ClaimedID is the identifier the user typed, normalized.
	ClaimedID string

	// LocalID is the provider-local identifier, when it differs from the
	// claimed one (delegation). Empty means "same as ClaimedID".
	LocalID string

	// URL is the provider's authentication endpoint address. Associations
	// are keyed by this value.
	URL string

	// Version is the protocol generation the endpoint speaks.
	Version openid.Version

	// DirectedIdentity marks endpoints where the provider chooses the
	// identifier (the user typed the provider's URL, not their own).
	DirectedIdentity bool
}

// EffectiveLocalID returns the identifier to put in openid.identity:
// identifier_select for directed identity, the delegated local id when set,
// else the claimed id.
func (e Endpoint) EffectiveLocalID() string {
	if e.DirectedIdentity {
		return openid.IdentifierSelect
	}
	if e.LocalID != "" {
		return e.LocalID
	}
	return e.ClaimedID
}

// EffectiveClaimedID returns the identifier to put in openid.claimed_id.
func (e Endpoint) EffectiveClaimedID() string {
	if e.DirectedIdentity {
		return openid.IdentifierSelect
	}
	return e.ClaimedID
}

// Discoverer resolves a normalized identifier to candidate endpoints.
// Order of the result is unspecified; the selector imposes its own.
type Discoverer interface {
	Discover(ctx context.Context, identifier string) ([]Endpoint, error)
}

// DiscovererFunc adapts a function to the Discoverer interface.
type DiscovererFunc func(ctx context.Context, identifier string) ([]Endpoint, error)

func (f DiscovererFunc) Discover(ctx context.Context, identifier string) ([]Endpoint, error) {
	return f(ctx, identifier)
}

// Static is a fixed identifier→endpoints table. Useful in tests and in
// deployments that trust a known set of providers.
type Static map[string][]Endpoint

func (s Static) Discover(_ context.Context, identifier string) ([]Endpoint, error) {
	eps := s[identifier]
	out := make([]Endpoint, len(eps))
	copy(out, eps)
	return out, nil
}
