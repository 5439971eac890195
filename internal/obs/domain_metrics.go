package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart store mutations by operation and outcome.
	CartMutationsTotal *prometheus.CounterVec
	// CartLoadFallbackTotal counts loads that degraded to an empty cart.
	CartLoadFallbackTotal prometheus.Counter
	// CheckoutTotal counts checkout submissions by outcome.
	CheckoutTotal *prometheus.CounterVec
	// BackendRequestLatency records backend call latency in milliseconds.
	BackendRequestLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers terminal-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart store mutations by operation and result.",
		}, []string{"op", "result"})
		CartLoadFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_load_fallback_total",
			Help:      "Number of cart loads that fell back to an empty cart.",
		})
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout submissions by outcome.",
		}, []string{"result"})
		BackendRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_ms",
			Help:      "Latency of POS backend calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"endpoint", "result"})

		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartLoadFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartLoadFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, BackendRequestLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				BackendRequestLatency = v
			}
		})
	})
}

// IncCartMutation records a cart mutation when domain metrics are registered.
func IncCartMutation(op string, err error) {
	if CartMutationsTotal == nil {
		return
	}
	CartMutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// IncCartLoadFallback records a degraded cart load when domain metrics are registered.
func IncCartLoadFallback() {
	if CartLoadFallbackTotal == nil {
		return
	}
	CartLoadFallbackTotal.Inc()
}

// IncCheckout records a checkout outcome when domain metrics are registered.
func IncCheckout(result string) {
	if CheckoutTotal == nil {
		return
	}
	CheckoutTotal.WithLabelValues(result).Inc()
}

// ObserveBackend records the latency of a backend call when domain metrics are registered.
func ObserveBackend(endpoint string, ms float64, err error) {
	if BackendRequestLatency == nil {
		return
	}
	BackendRequestLatency.WithLabelValues(endpoint, resultLabel(err)).Observe(ms)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
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
