package httpcore

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the per-method/status request counters this library
// exposes, mirroring the request-counter style the teacher's interceptor
// stack registers against the default prometheus registry. The
// collectors are package-level singletons, registered once in init,
// since the prometheus default registry panics on a second
// registration of the same metric name — a Server only ever needs one
// set of these per process, however many *Server instances it runs.
type Metrics struct {
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lanternd",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed, by method and status code.",
	}, []string{"method", "status"})

	connectionsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lanternd",
		Subsystem: "http",
		Name:      "connections_in_flight",
		Help:      "Number of connections currently being served.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, connectionsInFlight)
}

// NewMetrics returns a Metrics wrapping this process's singleton
// collectors.
func NewMetrics() *Metrics {
	return &Metrics{requests: requestsTotal, inFlight: connectionsInFlight}
}

// Observe records one completed exchange.
func (m *Metrics) Observe(method string, status int) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ConnOpened/ConnClosed track the in-flight connection gauge.
func (m *Metrics) ConnOpened() { m.inFlight.Inc() }
func (m *Metrics) ConnClosed() { m.inFlight.Dec() }
