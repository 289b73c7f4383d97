package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relying-party Prometheus metrics. Defined in a standalone package to avoid
// import cycles between the association/consumer packages and HTTP handlers.

var (
	HandshakeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openid_handshake_latency_ms",
		Help:    "Latencia del intercambio associate en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"outcome"})

	HandshakeRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openid_handshake_retries_total",
		Help: "Reintentos de handshake con parámetros sugeridos por el provider",
	})

	AssociationStoreHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openid_association_store_hits_total",
		Help: "Asociaciones válidas servidas desde el store",
	})

	AssociationStoreMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openid_association_store_misses_total",
		Help: "Lookups sin asociación válida en el store",
	})

	SelectorFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openid_selector_fallbacks_total",
		Help: "Selecciones degradadas al primer candidato crudo (ningún endpoint respondió)",
	})

	DiscoveredEndpoints = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "openid_discovered_endpoints",
		Help:    "Cantidad de endpoints descubiertos por identificador",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})
)

// Register registers the relying-party metrics on the given registry (or
// default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		HandshakeLatency,
		HandshakeRetries,
		AssociationStoreHits,
		AssociationStoreMisses,
		SelectorFallbacks,
		DiscoveredEndpoints,
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveHandshake records one associate exchange.
func ObserveHandshake(d time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "fail"
	}
	HandshakeLatency.WithLabelValues(outcome).Observe(float64(d.Milliseconds()))
}

// HandshakeRetry records a provider-hinted second attempt.
func HandshakeRetry() { HandshakeRetries.Inc() }

// StoreHit records a valid association served from the store.
func StoreHit() { AssociationStoreHits.Inc() }

// StoreMiss records a lookup that found nothing usable.
func StoreMiss() { AssociationStoreMisses.Inc() }

// SelectorFallback records a degraded selection.
func SelectorFallback() { SelectorFallbacks.Inc() }
