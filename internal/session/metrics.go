package session

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alanbriolat/nowplaying-dl"
)

// Metrics counts download outcomes and delivery attempts.
type Metrics struct {
	Outcomes *prometheus.CounterVec
	Attempts *prometheus.CounterVec
	Cancels  prometheus.Counter
	Duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, if it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nowplaying_downloads_total",
				Help: "Download requests by outcome and failure reason.",
			},
			[]string{"outcome", "reason"},
		),
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nowplaying_delivery_attempts_total",
				Help: "Delivery strategy attempts by strategy and result.",
			},
			[]string{"strategy", "result"},
		),
		Cancels: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nowplaying_downloads_cancelled_total",
				Help: "In-flight downloads abandoned by a cancel request.",
			},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nowplaying_download_duration_seconds",
				Help:    "Time from accepting a download request to its outcome.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Outcomes, m.Attempts, m.Cancels, m.Duration)
	}
	return m
}

func (m *Metrics) observeAttempt(strategy string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Attempts.WithLabelValues(strategy, result).Inc()
}

func (m *Metrics) observeOutcome(o Outcome) {
	m.Outcomes.WithLabelValues(string(o.Kind), failureReason(o.Err)).Inc()
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, nowplaying_dl.ErrCancelled):
		return "cancelled"
	case errors.Is(err, nowplaying_dl.ErrAlreadyInProgress):
		return "busy"
	case errors.Is(err, nowplaying_dl.ErrNoTrack):
		return "no_track"
	case errors.Is(err, nowplaying_dl.ErrNoSource):
		return "no_source"
	case errors.Is(err, nowplaying_dl.ErrAllMethodsFailed):
		return "delivery"
	default:
		return "other"
	}
}
