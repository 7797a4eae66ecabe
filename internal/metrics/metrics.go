package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the converter
type Metrics struct {
	registry *prometheus.Registry

	// Upload metrics
	UploadsTotal       prometheus.Counter
	UploadedFilesTotal prometheus.Counter

	// Conversion metrics
	ConversionsTotal   *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec

	// Archive metrics
	ArchivesTotal prometheus.Counter
	ArchiveBytes  prometheus.Histogram

	// Session metrics
	SessionsExpiredTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		UploadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "uploads_total",
				Help: "Total number of upload requests accepted",
			},
		),
		UploadedFilesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "uploaded_files_total",
				Help: "Total number of files stored by uploads",
			},
		),

		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversions_total",
				Help: "Total number of single image conversions",
			},
			[]string{"format", "status"},
		),
		ConversionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conversion_duration_seconds",
				Help:    "Duration of single image conversions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),

		ArchivesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "archives_total",
				Help: "Total number of zip archives produced",
			},
		),
		ArchiveBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "archive_bytes",
				Help:    "Size of produced zip archives in bytes",
				Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
			},
		),

		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_expired_total",
				Help: "Total number of sessions removed by the expiry sweeper",
			},
		),
	}

	m.registry.MustRegister(
		m.UploadsTotal,
		m.UploadedFilesTotal,
		m.ConversionsTotal,
		m.ConversionDuration,
		m.ArchivesTotal,
		m.ArchiveBytes,
		m.SessionsExpiredTotal,
	)

	return m
}

// TrackSessions exposes the number of live sessions as the sessions_active gauge.
// It must be called at most once per Metrics.
func (m *Metrics) TrackSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	))
}

// ObserveUpload records one accepted upload carrying files images
func (m *Metrics) ObserveUpload(files int) {
	m.UploadsTotal.Inc()
	m.UploadedFilesTotal.Add(float64(files))
}

// ObserveConversion records the outcome of a single image conversion
func (m *Metrics) ObserveConversion(format string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ConversionsTotal.WithLabelValues(format, status).Inc()
	m.ConversionDuration.WithLabelValues(format).Observe(d.Seconds())
}

// ObserveArchive records a produced archive of size bytes
func (m *Metrics) ObserveArchive(size int) {
	m.ArchivesTotal.Inc()
	m.ArchiveBytes.Observe(float64(size))
}

// ObserveExpired records sessions dropped by the sweeper
func (m *Metrics) ObserveExpired(n int) {
	m.SessionsExpiredTotal.Add(float64(n))
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
