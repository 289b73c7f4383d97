package consumer

import (
	"context"
	"strings"

	"github.com/dropDatabas3/knockknock/internal/metrics"
	"github.com/dropDatabas3/knockknock/internal/observability/logger"
	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
	tokens "github.com/dropDatabas3/knockknock/internal/security/token"
)

// Consumer wires discovery, endpoint selection and the association manager
// into authentication-request construction. One Consumer serves many
// concurrent Create calls; all per-call state lives in the Request.
type Consumer struct {
	// Discovery resolves identifiers to candidate endpoints.
	Discovery discovery.Discoverer

	// Assoc manages the association lifecycle. Required.
	Assoc *association.Manager

	// Store caches associations. Nil disables caching and liveness
	// probing (stateless mode).
	Store association.Store

	// Filter and Order are the host policy over candidate endpoints.
	// Passed through to selection explicitly; both may be nil.
	Filter Filter
	Order  Order
}

// Create builds the authentication request for a user-supplied identifier.
//
// Configuration problems (missing inputs, return_to outside realm) fail
// before any network call. Discovery producing nothing usable returns
// ErrNoEndpoint. A failed association does NOT fail the call; the request
// just goes out without an assoc_handle.
func (c *Consumer) Create(ctx context.Context, identifier string, realm openid.Realm, returnTo string) (*Request, error) {
	if c.Discovery == nil || c.Assoc == nil {
		return nil, openid.NewConfigError("consumer needs Discovery and Assoc")
	}
	if identifier == "" {
		return nil, openid.NewConfigError("empty identifier")
	}
	if returnTo == "" {
		return nil, openid.NewConfigError("empty return_to")
	}
	// Same rule realms live by: a fragment would swallow any callback
	// argument appended to the query later.
	if strings.Contains(returnTo, "#") {
		return nil, openid.NewConfigError("return_to %q must not contain a fragment", returnTo)
	}
	if err := realm.Validate(); err != nil {
		return nil, openid.NewConfigError("%v", err)
	}
	// Checked eagerly: a return_to outside the realm can never work, so
	// fail before touching the network.
	if !realm.Contains(returnTo) {
		return nil, openid.NewConfigError("return_to %q not within realm %q", returnTo, string(realm))
	}

	id, err := openid.Normalize(identifier)
	if err != nil {
		return nil, openid.NewConfigError("%v", err)
	}

	log := logger.From(ctx)
	candidates, err := c.Discovery.Discover(ctx, id)
	if err != nil {
		return nil, &openid.ProtocolError{Message: "discovery failed: " + err.Error()}
	}
	metrics.DiscoveredEndpoints.Observe(float64(len(candidates)))

	ep := SelectEndpoint(ctx, candidates, c.Filter, c.Order, c.Store, c.Assoc)
	if ep == nil {
		return nil, openid.ErrNoEndpoint
	}

	nonce, err := tokens.GenerateOpaqueToken(16)
	if err != nil {
		return nil, err
	}

	// Selection already attempted creation; don't hammer the provider
	// again, just take whatever landed in the store.
	assoc, err := c.Assoc.Get(ctx, *ep, c.Store, false)
	if err != nil {
		log.Warn("association lookup after selection failed", logger.OPEndpoint(ep.URL), logger.Err(err))
		assoc = nil
	}

	log.Debug("auth request created",
		logger.ClaimedID(id),
		logger.OPEndpoint(ep.URL),
		logger.ReturnTo(returnTo),
		logger.ProtoVersion(ep.Version.String()),
		logger.Bool("with_association", assoc.Valid()))

	return newRequest(*ep, assoc, realm, returnTo, nonce), nil
}
