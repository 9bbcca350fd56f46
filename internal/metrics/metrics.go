// Package metrics exposes Prometheus instrumentation for the storefront
// core: authentication outcomes, try-on generations, and credit movement.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors registered for the service.
type Metrics struct {
	signIns         *prometheus.CounterVec
	signUps         *prometheus.CounterVec
	generations     *prometheus.CounterVec
	creditsDebited  prometheus.Counter
	creditsGranted  prometheus.Counter
	refreshDiscards prometheus.Counter
	inFlight        prometheus.Gauge
	generationTime  prometheus.Histogram
}

// New creates the collector set and registers it on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "auth",
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "auth",
			Name:      "sign_ups_total",
			Help:      "Sign-up attempts by outcome.",
		}, []string{"outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "tryon",
			Name:      "generations_total",
			Help:      "Try-on generations by outcome.",
		}, []string{"outcome"}),
		creditsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "credits",
			Name:      "debited_total",
			Help:      "Credits consumed by successful generations.",
		}),
		creditsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "credits",
			Name:      "granted_total",
			Help:      "Credits granted through purchases and provisioning.",
		}),
		refreshDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "auth",
			Name:      "refresh_discards_total",
			Help:      "Stale session refreshes discarded after sign-out.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "tryon",
			Name:      "in_flight",
			Help:      "Generations currently in flight.",
		}),
		generationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "tryon",
			Name:      "generation_seconds",
			Help:      "Wall-clock duration of try-on generations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(
		m.signIns,
		m.signUps,
		m.generations,
		m.creditsDebited,
		m.creditsGranted,
		m.refreshDiscards,
		m.inFlight,
		m.generationTime,
	)
	return m
}

// Outcome labels used across the counters.
const (
	OutcomeOK                = "ok"
	OutcomeInvalid           = "invalid_credentials"
	OutcomeTimeout           = "timeout"
	OutcomeError             = "error"
	OutcomeAlreadyRegistered = "already_registered"
	OutcomeNoProfile         = "no_profile"
	OutcomeNoCredits         = "insufficient_credits"
	OutcomePending           = "pending"
)

func (m *Metrics) SignIn(outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SignUp(outcome string) {
	if m == nil {
		return
	}
	m.signUps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Generation(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.creditsDebited.Inc()
	}
	m.generationTime.Observe(seconds)
}

func (m *Metrics) CreditsGranted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.creditsGranted.Add(float64(n))
}

func (m *Metrics) RefreshDiscarded() {
	if m == nil {
		return
	}
	m.refreshDiscards.Inc()
}

func (m *Metrics) GenerationStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) GenerationFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
