// Package metrics exposes the migration engine's live throughput as
// Prometheus collectors: a histogram of chunk durations and counters of
// rows written and rows skipped, scraped via an optional debug HTTP
// listener started by the CLI (spec.md §4.6/§6.2, [DOMAIN]).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the Data Migrator (C8) updates once per
// chunk. A Metrics value with all fields nil is still safe to call methods
// on (they become no-ops), so components can be constructed without
// metrics wired in tests.
type Metrics struct {
	ChunkDuration *prometheus.HistogramVec
	RowsWritten   *prometheus.CounterVec
	RowsSkipped   *prometheus.CounterVec
	TablesActive  prometheus.Gauge
}

// New registers and returns the engine's collectors against reg. Passing a
// fresh prometheus.NewRegistry() (rather than the global default registry)
// keeps repeated construction in tests from panicking on duplicate
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pgmysqlmigrate",
			Name:      "chunk_duration_seconds",
			Help:      "Duration of one fetch-convert-write-advance chunk cycle.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgmysqlmigrate",
			Name:      "rows_written_total",
			Help:      "Rows successfully written to the target, per table.",
		}, []string{"table"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgmysqlmigrate",
			Name:      "rows_skipped_total",
			Help:      "Rows that failed conversion or insertion and were skipped, per table.",
		}, []string{"table"}),
		TablesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pgmysqlmigrate",
			Name:      "tables_active",
			Help:      "Number of tables currently being streamed by a worker.",
		}),
	}

	reg.MustRegister(m.ChunkDuration, m.RowsWritten, m.RowsSkipped, m.TablesActive)
	return m
}

// ObserveChunk records one chunk's duration and outcome for a table.
func (m *Metrics) ObserveChunk(table string, seconds float64, written, skipped int) {
	if m == nil {
		return
	}
	m.ChunkDuration.WithLabelValues(table).Observe(seconds)
	m.RowsWritten.WithLabelValues(table).Add(float64(written))
	if skipped > 0 {
		m.RowsSkipped.WithLabelValues(table).Add(float64(skipped))
	}
}

// Handler returns the promhttp handler for the registry m was built
// against, for the CLI's optional --metrics-addr debug listener.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
