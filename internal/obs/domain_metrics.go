package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ComparisonsTotal counts basket engine invocations by operation and outcome.
	ComparisonsTotal *prometheus.CounterVec
	// ComparisonDuration records engine compute latency in milliseconds.
	ComparisonDuration *prometheus.HistogramVec
	// SnapshotProducts records how many products a catalog snapshot carried.
	SnapshotProducts prometheus.Histogram
	// SnapshotStores records how many stores a catalog snapshot carried.
	SnapshotStores prometheus.Histogram
	// PriceIngestTotal counts price record ingestion outcomes.
	PriceIngestTotal *prometheus.CounterVec
	// PriceSweepDeleted counts expired price records removed by the worker.
	PriceSweepDeleted prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ComparisonsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basket_comparisons_total",
			Help:      "Count of basket engine invocations by operation and result.",
		}, []string{"op", "result"})
		ComparisonDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "basket_comparison_duration_ms",
			Help:      "Basket engine compute latency in milliseconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}, []string{"op"})
		SnapshotProducts = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_snapshot_products",
			Help:      "Products carried per catalog snapshot.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		})
		SnapshotStores = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_snapshot_stores",
			Help:      "Stores carried per catalog snapshot.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50},
		})
		PriceIngestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_ingest_total",
			Help:      "Count of price record ingestion outcomes.",
		}, []string{"result"})
		PriceSweepDeleted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_sweep_deleted_total",
			Help:      "Expired price records removed by the maintenance sweep.",
		})

		mustRegisterCollector(reg, ComparisonsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ComparisonsTotal = v
			}
		})
		mustRegisterCollector(reg, ComparisonDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				ComparisonDuration = v
			}
		})
		mustRegisterCollector(reg, SnapshotProducts, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SnapshotProducts = v
			}
		})
		mustRegisterCollector(reg, SnapshotStores, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SnapshotStores = v
			}
		})
		mustRegisterCollector(reg, PriceIngestTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceIngestTotal = v
			}
		})
		mustRegisterCollector(reg, PriceSweepDeleted, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PriceSweepDeleted = v
			}
		})
	})
}

// ObserveComparison records one engine invocation. Safe before registration.
func ObserveComparison(op, result string, elapsed time.Duration) {
	if ComparisonsTotal != nil {
		ComparisonsTotal.WithLabelValues(op, result).Inc()
	}
	if ComparisonDuration != nil {
		ComparisonDuration.WithLabelValues(op).Observe(DurationMillis(elapsed))
	}
}

// ObserveSnapshotSize records the dimensions of a fetched catalog snapshot.
func ObserveSnapshotSize(products, stores int) {
	if SnapshotProducts != nil {
		SnapshotProducts.Observe(float64(products))
	}
	if SnapshotStores != nil {
		SnapshotStores.Observe(float64(stores))
	}
}

// ObservePriceIngest records one ingestion outcome. Safe before registration.
func ObservePriceIngest(result string) {
	if PriceIngestTotal != nil {
		PriceIngestTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
