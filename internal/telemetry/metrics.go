package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"ibovselic/internal/exporter"
)

const namespace = "ibovselic"

// Metrics records export events on its own prometheus registry.
type Metrics struct {
	Registry *prometheus.Registry

	exports       *prometheus.CounterVec
	chunkRequests *prometheus.CounterVec
	records       *prometheus.CounterVec
	chunkDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports attempted, by series and outcome.",
		}, []string{"series", "status"}),
		chunkRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_requests_total",
			Help:      "Year chunks requested from a provider.",
		}, []string{"series"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records written to export files.",
		}, []string{"series"}),
		chunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Time spent fetching one year chunk.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"series"}),
	}
	m.Registry.MustRegister(m.exports, m.chunkRequests, m.records, m.chunkDuration)
	return m
}

func (m *Metrics) Observe(e exporter.Event) {
	switch e.Type {
	case exporter.ChunkStarted:
		m.chunkRequests.WithLabelValues(e.Label).Inc()
	case exporter.ChunkFinished:
		m.chunkDuration.WithLabelValues(e.Label).Observe(e.Elapsed.Seconds())
	case exporter.ExportFinished:
		m.exports.WithLabelValues(e.Label, "success").Inc()
		m.records.WithLabelValues(e.Label).Add(float64(e.Records))
	case exporter.ExportFailed:
		m.exports.WithLabelValues(e.Label, "failure").Inc()
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
