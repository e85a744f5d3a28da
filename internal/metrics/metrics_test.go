package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveSubmission("LAWYER", "failed", "signing_in")
	m.ObserveSubmission("LAWYER", "failed", "signing_in")
	m.ObserveUpload("photo", false)
	m.ObserveSession()
	m.ObserveSignIn(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("LAWYER", "failed", "signing_in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("photo", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Uploads.WithLabelValues("photo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignIns.WithLabelValues("ok")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission("CLIENT", "done", "")
		m.ObserveUpload("id", true)
		m.ObserveSession()
		m.ObserveSignIn(false)
	})
}
