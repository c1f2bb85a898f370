package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Conversion outcome labels.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
	StatusError  = "error"
)

// Metrics holds the Prometheus collectors for conversions.
type Metrics struct {
	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	rowsParsed         prometheus.Counter
	activeConversions  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests use to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		conversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "csvtable",
				Name:      "conversions_total",
				Help:      "Total number of conversions by output format and outcome",
			},
			[]string{"format", "status"},
		),
		conversionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "csvtable",
				Name:      "conversion_duration_seconds",
				Help:      "Time spent parsing and rendering one input",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"format"},
		),
		rowsParsed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "csvtable",
				Name:      "rows_parsed_total",
				Help:      "Total number of non-blank rows parsed",
			},
		),
		activeConversions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "csvtable",
				Name:      "active_conversions",
				Help:      "Conversions currently holding a limiter slot",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.conversionsTotal,
			m.conversionDuration,
			m.rowsParsed,
			m.activeConversions,
		)
	}
	return m
}

// RecordConversion records one finished conversion.
func (m *Metrics) RecordConversion(format, status string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.conversionsTotal.WithLabelValues(format, status).Inc()
	m.conversionDuration.WithLabelValues(format).Observe(elapsed.Seconds())
	if rows > 0 {
		m.rowsParsed.Add(float64(rows))
	}
}

// ConversionStarted increments the active gauge.
func (m *Metrics) ConversionStarted() {
	if m != nil {
		m.activeConversions.Inc()
	}
}

// ConversionFinished decrements the active gauge.
func (m *Metrics) ConversionFinished() {
	if m != nil {
		m.activeConversions.Dec()
	}
}
