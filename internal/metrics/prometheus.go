package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	inFlight        prometheus.Gauge
	activityStarted prometheus.Counter
	activitySettled *prometheus.CounterVec
	signupAttempts  *prometheus.CounterVec
	validations     *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder whose collectors are registered
// with reg. Pass prometheus.DefaultRegisterer to expose them globally, or a
// fresh prometheus.NewRegistry() to keep them isolated.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "signupflow_activity_in_flight",
				Help: "Number of tracked asynchronous operations currently in flight",
			},
		),
		activityStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "signupflow_activity_started_total",
				Help: "Total number of tracked asynchronous operations started",
			},
		),
		activitySettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signupflow_activity_settled_total",
				Help: "Total number of tracked asynchronous operations settled, by outcome",
			},
			[]string{"outcome"},
		),
		signupAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signupflow_signup_attempts_total",
				Help: "Total number of signup attempts, by result",
			},
			[]string{"result"},
		),
		validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signupflow_validation_results_total",
				Help: "Total number of validation results, by field and kind",
			},
			[]string{"field", "kind"},
		),
	}
}

// ActivityStarted increments the in-flight gauge.
func (p *PrometheusRecorder) ActivityStarted() {
	p.inFlight.Inc()
	p.activityStarted.Inc()
}

// ActivitySettled decrements the in-flight gauge.
func (p *PrometheusRecorder) ActivitySettled(outcome string) {
	p.inFlight.Dec()
	p.activitySettled.WithLabelValues(outcome).Inc()
}

// SignupAttempt counts a finished signup attempt.
func (p *PrometheusRecorder) SignupAttempt(result string) {
	p.signupAttempts.WithLabelValues(result).Inc()
}

// ValidationResult counts a validation result.
func (p *PrometheusRecorder) ValidationResult(field, kind string) {
	p.validations.WithLabelValues(field, kind).Inc()
}
