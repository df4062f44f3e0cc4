// Package metrics exposes Prometheus counters for the pricing pipeline. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "card_pricer"

// Metrics groups the collectors registered for one process.
type Metrics struct {
	pricingRequests  *prometheus.CounterVec
	pricingDuration  prometheus.Histogram
	marketplaceCalls *prometheus.CounterVec
	listingsDropped  *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	batchCards       *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		pricingRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_requests_total",
			Help:      "Card pricing requests by outcome.",
		}, []string{"outcome"}),
		pricingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_duration_seconds",
			Help:      "Wall time of a single card pricing request.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		marketplaceCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marketplace_searches_total",
			Help:      "Marketplace searches by feed and outcome.",
		}, []string{"feed", "outcome"}),
		listingsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_dropped_total",
			Help:      "Listings removed from the working set, by pipeline stage.",
		}, []string{"stage"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome.",
		}, []string{"outcome"}),
		batchCards: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_cards_total",
			Help:      "Cards processed in batch runs by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObservePricing(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pricingRequests.WithLabelValues(outcome).Inc()
	m.pricingDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) MarketplaceSearch(feed, outcome string) {
	if m == nil {
		return
	}
	m.marketplaceCalls.WithLabelValues(feed, outcome).Inc()
}

func (m *Metrics) Dropped(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.listingsDropped.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) CacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BatchCard(outcome string) {
	if m == nil {
		return
	}
	m.batchCards.WithLabelValues(outcome).Inc()
}
