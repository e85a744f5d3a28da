package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registration collectors. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	Registry    *prometheus.Registry
	Submissions *prometheus.CounterVec
	Uploads     *prometheus.CounterVec
	Sessions    prometheus.Counter
	SignIns     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "registration",
			Name:      "submissions_total",
			Help:      "Registration submissions by account type and final stage.",
		}, []string{"account_type", "stage", "failed_stage"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "registration",
			Name:      "uploads_total",
			Help:      "Document uploads by slot and outcome.",
		}, []string{"slot", "outcome"}),
		Sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "registration",
			Name:      "sessions_started_total",
			Help:      "Registration form sessions started.",
		}),
		SignIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "signin",
			Name:      "attempts_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.Submissions,
		m.Uploads,
		m.Sessions,
		m.SignIns,
	)
	return m
}

func (m *Metrics) ObserveSubmission(accountType, stage, failedStage string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(accountType, stage, failedStage).Inc()
}

func (m *Metrics) ObserveUpload(slot string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.Uploads.WithLabelValues(slot, outcome).Inc()
}

func (m *Metrics) ObserveSession() {
	if m == nil {
		return
	}
	m.Sessions.Inc()
}

func (m *Metrics) ObserveSignIn(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.SignIns.WithLabelValues(outcome).Inc()
}
