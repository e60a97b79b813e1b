// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ProductSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_product_saves_total",
			Help: "Product saves by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	GiftSetUnresolvedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_gift_set_unresolved_items_total",
			Help: "Gift-set items priced at zero because the referenced product could not be resolved",
		},
		[]string{"reason"},
	)

	GiftSetAuditStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_gift_set_audit_stale",
			Help: "Gift sets whose stored totals differ from a fresh derivation, as of the last audit",
		},
	)

	ProductCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_product_cache_requests_total",
			Help: "Product cache lookups by result",
		},
		[]string{"result"},
	)
)

const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeConflict   = "conflict"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"

	ReasonMissing     = "missing"
	ReasonLookupError = "lookup_error"
)
