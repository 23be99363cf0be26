package coordinator

import "github.com/prometheus/client_golang/prometheus"

// Counter and Gauge wrap prometheus vectors in a thin label-aware type.
// NewMetrics registers them on a registry owned by the Metrics value
// instead of the package-global default registry, so tests can build a
// Metrics value without touching the default registry.
type Counter struct {
	metric *prometheus.CounterVec
}

func (c *Counter) Inc(labels ...string) {
	c.metric.WithLabelValues(labels...).Inc()
}

type Gauge struct {
	metric *prometheus.GaugeVec
}

func (g *Gauge) Set(value float64, labels ...string) {
	g.metric.WithLabelValues(labels...).Set(value)
}

// Metrics holds the counters and gauges SCMNodeManager exposed as
// incNumHBProcessed/incNumHBProcessingFailed and the per-state node-count
// getters. This core owns no scrape endpoint; an external exporter serves
// the registry returned by Registry(), on which all four are registered.
type Metrics struct {
	registry *prometheus.Registry

	HeartbeatsProcessed *Counter
	HeartbeatsFailed    *Counter
	NodesByHealth       *Gauge
	NodesByOpState       *Gauge
}

// NewMetrics builds a fresh, unregistered-with-the-default-registry
// Metrics value bound to its own prometheus.Registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	hbProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scmcore_heartbeats_processed_total",
		Help: "Heartbeats successfully processed.",
	}, nil)
	hbFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scmcore_heartbeats_failed_total",
		Help: "Heartbeats rejected because the sender was not registered.",
	}, nil)
	byHealth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scmcore_nodes_by_health",
		Help: "Current datanode count per health state.",
	}, []string{"health"})
	byOpState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scmcore_nodes_by_opstate",
		Help: "Current datanode count per operational state.",
	}, []string{"op_state"})

	reg.MustRegister(hbProcessed, hbFailed, byHealth, byOpState)

	return &Metrics{
		registry:            reg,
		HeartbeatsProcessed: &Counter{metric: hbProcessed},
		HeartbeatsFailed:    &Counter{metric: hbFailed},
		NodesByHealth:       &Gauge{metric: byHealth},
		NodesByOpState:      &Gauge{metric: byOpState},
	}
}

// Registry exposes the bound prometheus.Registry for an external exporter
// to serve.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
