// Package metrics exports Prometheus metrics for the signup wizard and its
// live sessions.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

const namespace = "signup"

// Submission outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeEmailTaken  = "email_taken"
	OutcomeUnavailable = "unavailable"
	OutcomeCanceled    = "canceled"
)

var breakerStates = []string{"closed", "open", "half-open"}

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive     prometheus.Gauge
	SessionsTotal      *prometheus.CounterVec
	SessionDuration    prometheus.Histogram
	StepTransitions    *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	BreakerState       *prometheus.GaugeVec

	classify func(error) string
}

// Option configures Metrics.
type Option func(*Metrics)

// WithOutcomeClassifier maps submission errors to outcome labels. The
// default labels every error "failure" except context cancellation.
func WithOutcomeClassifier(fn func(error) string) Option {
	return func(m *Metrics) { m.classify = fn }
}

var _ registration.Observer = (*Metrics)(nil)

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New(opts ...Option) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live wizard sessions currently connected",
		}),
		SessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Live sessions ended, by termination reason",
		}, []string{"reason"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Lifetime of live sessions",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		StepTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_transitions_total",
			Help:      "Wizard step changes",
		}, []string{"from", "to"}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Fields rejected by step validation",
		}, []string{"step", "field"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Account creation attempts by outcome",
		}, []string{"outcome"}),
		SubmissionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Time from submit to account creation result",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 2.5, 5, 10},
		}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_store_circuit_state",
			Help:      "1 for the account store breaker's current state",
		}, []string{"state"}),

		classify: defaultClassify,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.BreakerChanged("closed")
	return m
}

func defaultClassify(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeCanceled
	}
	return OutcomeFailure
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StepChanged implements registration.Observer.
func (m *Metrics) StepChanged(from, to registration.Step) {
	m.StepTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// ValidationFailed implements registration.Observer.
func (m *Metrics) ValidationFailed(step registration.Step, errs forms.ErrorMap) {
	for _, field := range errs.Fields() {
		m.ValidationFailures.WithLabelValues(step.String(), field).Inc()
	}
}

// SubmissionFinished implements registration.Observer.
func (m *Metrics) SubmissionFinished(err error, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = m.classify(err)
	}
	m.Submissions.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.Observe(elapsed.Seconds())
}

// SessionStarted records a new live session.
func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
}

// SessionEnded records a finished live session.
func (m *Metrics) SessionEnded(reason core.TerminateReason, lifetime time.Duration) {
	m.SessionsActive.Dec()
	m.SessionsTotal.WithLabelValues(reason.String()).Inc()
	m.SessionDuration.Observe(lifetime.Seconds())
}

// BreakerChanged marks state as the breaker's current state.
func (m *Metrics) BreakerChanged(state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.BreakerState.WithLabelValues(s).Set(v)
	}
}
