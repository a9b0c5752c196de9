package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus instruments used by the service.
type Metrics struct {
	ChatTurns       *prometheus.CounterVec
	Generations     *prometheus.CounterVec
	SweptRecords    *prometheus.CounterVec
	OracleLatencyMs prometheus.Histogram
}

// NewMetrics registers the service instruments under the namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ChatTurns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by outcome.",
		}, []string{"outcome"}),
		Generations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Recommendation generations by path and outcome.",
		}, []string{"path", "outcome"}),
		SweptRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_records_total",
			Help:      "Records reclaimed by sweeps, by kind.",
		}, []string{"kind"}),
		OracleLatencyMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_ms",
			Help:      "Oracle call latency in milliseconds.",
			Buckets:   []float64{100, 300, 700, 1500, 3000, 6000, 10000},
		}),
	}
}

func (m *Metrics) observeOracleLatency(d time.Duration) {
	m.OracleLatencyMs.Observe(float64(d.Milliseconds()))
}
