// Package consumer is the relying-party engine: it selects a provider
// endpoint from discovery output, acquires an association for it, and builds
// the signed-capable redirect that sends the browser to the provider.
package consumer

import (
	"context"
	"sort"

	"github.com/dropDatabas3/knockknock/internal/metrics"
	"github.com/dropDatabas3/knockknock/internal/observability/logger"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
)

// Filter is a caller-supplied predicate over candidate endpoints. A nil
// Filter passes everything.
type Filter func(discovery.Endpoint) bool

// Order is a caller-supplied "less" comparator; the endpoint ordered first
// is tried first. A nil Order keeps discovery order.
type Order func(a, b discovery.Endpoint) bool

// SelectEndpoint picks the provider endpoint to authenticate against.
//
// Candidates are filtered, stably sorted, then probed in order by asking the
// association manager for a usable association (creation allowed): the first
// endpoint that yields one is alive and wins. Without a store no probing is
// possible and the best-sorted candidate is returned as-is.
//
// When every sorted candidate is unreachable the selection degrades to the
// first candidate of the ORIGINAL, unfiltered input — a provider whose
// associate endpoint is down can still authenticate the user, so an
// unreachable endpoint is a weaker signal than "no endpoint at all". The
// filtered list is deliberately not consulted for this fallback.
//
// The input slice is never mutated. Returns nil when nothing survives the
// filter and the input is empty.
func SelectEndpoint(ctx context.Context, candidates []discovery.Endpoint, filter Filter, order Order, store association.Store, assoc *association.Manager) *discovery.Endpoint {
	if len(candidates) == 0 {
		return nil
	}

	eligible := make([]discovery.Endpoint, 0, len(candidates))
	for _, c := range candidates {
		if filter == nil || filter(c) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	if order != nil {
		sort.SliceStable(eligible, func(i, j int) bool { return order(eligible[i], eligible[j]) })
	}

	if store == nil || assoc == nil {
		ep := eligible[0]
		return &ep
	}

	log := logger.From(ctx)
	for _, c := range eligible {
		a, err := assoc.Get(ctx, c, store, true)
		if err != nil {
			log.Warn("association store error during selection", logger.OPEndpoint(c.URL), logger.Err(err))
			continue
		}
		if a != nil {
			ep := c
			return &ep
		}
		log.Debug("endpoint not responding, skipping", logger.OPEndpoint(c.URL))
	}

	// Degraded mode: nobody answered the associate probe. Fall back to the
	// first raw candidate, exactly as discovered.
	metrics.SelectorFallback()
	log.Info("no endpoint answered association probe, using first discovered candidate",
		logger.OPEndpoint(candidates[0].URL), logger.Candidates(len(candidates)))
	ep := candidates[0]
	return &ep
}
