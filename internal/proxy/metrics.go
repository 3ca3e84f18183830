package proxy

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// forwardMetrics contains Prometheus metrics for forwarding operations.
type forwardMetrics struct {
	forwardsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

var (
	forwardMetricsInstance *forwardMetrics
	forwardMetricsOnce     sync.Once
)

// getForwardMetrics returns the singleton metrics instance, registering
// the collectors with the default registerer on first use.
func getForwardMetrics() *forwardMetrics {
	forwardMetricsOnce.Do(func() {
		factory := promauto.With(prometheus.DefaultRegisterer)
		forwardMetricsInstance = &forwardMetrics{
			forwardsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "proxy",
					Name:      "forwards_total",
					Help:      "Total number of forwarded requests by backend status code",
				},
				[]string{"system", "service", "code"},
			),
			errorsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "proxy",
					Name:      "errors_total",
					Help:      "Total number of forwarding failures",
				},
				[]string{"error_type"},
			),
			backendDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "gateway",
					Subsystem: "proxy",
					Name:      "backend_duration_seconds",
					Help:      "Duration of backend requests",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"system", "service"},
			),
		}
	})
	return forwardMetricsInstance
}

func (m *forwardMetrics) observeForward(system, service string, code int, elapsed time.Duration) {
	m.forwardsTotal.WithLabelValues(system, service, strconv.Itoa(code)).Inc()
	m.backendDuration.WithLabelValues(system, service).Observe(elapsed.Seconds())
}

func (m *forwardMetrics) observeError(kind ErrorKind) {
	m.errorsTotal.WithLabelValues(kind.String()).Inc()
}
