package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	// BreakerState exposes the current breaker state per target.
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pos",
			Name:      "backend_breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	// BreakerTransitions counts breaker state transitions.
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "backend_breaker_transition_total",
			Help:      "Count of breaker state transitions",
		},
		[]string{"target", "from", "to"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions)
}
