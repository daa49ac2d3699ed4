// Package metrics counts what a run did. Runs are short lived, so the counters
// are written to a node_exporter textfile at the end instead of being scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contentexport"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is nil safe, a nil *Metrics records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	pagesDiscovered   prometheus.Counter
	exports           *prometheus.CounterVec
	documentsIngested prometheus.Counter
	documentsSkipped  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pagesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_discovered_total",
			Help:      "Unique pages found while walking the page hierarchy.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_exports_total",
			Help:      "PDF exports by outcome.",
		}, []string{"outcome"}),
		documentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents added to the vector store.",
		}),
		documentsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_skipped_total",
			Help:      "Documents skipped because they were already ingested.",
		}),
	}
	m.registry.MustRegister(m.pagesDiscovered, m.exports, m.documentsIngested, m.documentsSkipped)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AddDiscovered(n int) {
	if m == nil {
		return
	}
	m.pagesDiscovered.Add(float64(n))
}

func (m *Metrics) ObserveExport(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.exports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddIngested(added, skipped int) {
	if m == nil {
		return
	}
	m.documentsIngested.Add(float64(added))
	m.documentsSkipped.Add(float64(skipped))
}

// WriteTextfile writes all counters in the text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
