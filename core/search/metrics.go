package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation outcomes, used as the status label.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusCached  = "cached"
)

// Metrics records candidate evaluations. A nil *Metrics records nothing.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	FitDuration prometheus.Histogram
}

// NewMetrics registers the evaluation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autostat_evaluations_total",
			Help: "Total number of candidate kernel evaluations by status",
		}, []string{"status"}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "autostat_fit_duration_seconds",
			Help:    "Time spent fitting and scoring one candidate",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

func (m *Metrics) recordEvaluation(status string) {
	if m == nil || m.Evaluations == nil {
		return
	}
	m.Evaluations.WithLabelValues(status).Inc()
}

func (m *Metrics) observeFit(d time.Duration) {
	if m == nil || m.FitDuration == nil {
		return
	}
	m.FitDuration.Observe(d.Seconds())
}
