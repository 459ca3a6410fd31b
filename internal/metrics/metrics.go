package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Attempts *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on reg; tests pass
// their own registry to avoid duplicate registration.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "duration_seconds",
		Help:      "Checkout transaction latency in seconds.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	reg.MustRegister(attempts, duration)
	return &CheckoutMetrics{Attempts: attempts, Duration: duration}
}

func (m *CheckoutMetrics) Observe(outcome string, started time.Time) {
	m.Attempts.WithLabelValues(outcome).Inc()
	m.Duration.Observe(time.Since(started).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
