package association

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/knockknock/internal/metrics"
	"github.com/dropDatabas3/knockknock/internal/observability/logger"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
)

// Manager hands out usable associations for provider endpoints, creating and
// caching them on demand. Handshake failures are not errors here: a nil
// association with a nil error means "endpoint unreachable or unwilling",
// which the selector reads as a liveness miss.
type Manager struct {
	client Client

	// sf collapses concurrent handshakes against the same endpoint so two
	// parallel logins don't both pay for an associate round trip. The store
	// itself stays last-writer-wins.
	sf  singleflight.Group
	log *zap.Logger
}

// NewManager builds a manager around the given handshake client.
func NewManager(client Client) *Manager {
	return &Manager{client: client, log: logger.Named("association")}
}

// Get returns a valid (non-expired) association for ep from store, running
// the handshake when the cache misses and createIfNeeded allows it. The
// returned association is always non-expired; failure to obtain one returns
// (nil, nil).
func (m *Manager) Get(ctx context.Context, ep discovery.Endpoint, store Store, createIfNeeded bool) (*Association, error) {
	if store == nil {
		return nil, nil
	}

	cached, err := store.Get(ctx, ep.URL)
	if err != nil {
		return nil, err
	}
	if cached.Valid() {
		metrics.StoreHit()
		return cached, nil
	}
	metrics.StoreMiss()
	if !createIfNeeded {
		return nil, nil
	}

	v, err, _ := m.sf.Do(ep.URL, func() (any, error) {
		return m.establish(ctx, ep, store), nil
	})
	if err != nil {
		return nil, err
	}
	assoc, _ := v.(*Association)
	if !assoc.Valid() {
		return nil, nil
	}
	return assoc, nil
}

// establish runs the two-phase handshake: one attempt with the default
// parameters, plus at most one retry with whatever the provider suggested.
// Exhausted retries yield nil, never an error.
func (m *Manager) establish(ctx context.Context, ep discovery.Endpoint, store Store) *Association {
	res := m.client.Handshake(ctx, ep, DefaultParams)
	if res.Assoc == nil && res.RetryWith != nil {
		metrics.HandshakeRetry()
		m.log.Debug("retrying handshake with provider-suggested params",
			logger.OPEndpoint(ep.URL),
			logger.AssocType(res.RetryWith.AssocType),
			zap.String("session_type", res.RetryWith.SessionType))
		res = m.client.Handshake(ctx, ep, *res.RetryWith)
	}
	if res.Assoc == nil {
		m.log.Debug("handshake failed", logger.OPEndpoint(ep.URL), zap.Error(res.Err))
		return nil
	}
	if err := store.Put(ctx, ep.URL, res.Assoc); err != nil {
		// A broken cache is not fatal; the association is still usable
		// for this request.
		m.log.Warn("failed to persist association",
			logger.OPEndpoint(ep.URL),
			logger.AssocHandle(res.Assoc.Handle),
			zap.Error(err))
	}
	return res.Assoc
}
