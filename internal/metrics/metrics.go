// Package metrics exposes Prometheus collectors for the catalog API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the process-wide collectors.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	UploadsTotal    *prometheus.CounterVec
	UploadBytes     prometheus.Counter
	StatActions     *prometheus.CounterVec
}

// New builds a registry with the catalog collectors plus the standard Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_uploads_total",
			Help: "Asset uploads by kind and outcome.",
		}, []string{"kind", "outcome"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_upload_bytes_total",
			Help: "Total bytes accepted for asset upload.",
		}),
		StatActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_stat_actions_total",
			Help: "Engagement stat actions by entity and action.",
		}, []string{"entity", "action"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.UploadsTotal,
		m.UploadBytes,
		m.StatActions,
	)
	return m
}
