package collector

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSubmission(t *testing.T) {
	c := New()
	c.ObserveSubmission("http", "200", 0.5, 1700000000)
	c.ObserveSubmission("http", "200", 0.25, 1700000001)
	c.ObserveSubmission("http", OutcomeTransportError, 1, 1700000002)

	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	expected := `
# HELP sensorconfig_submissions_total sensorconfig_submissions_total
# TYPE sensorconfig_submissions_total counter
sensorconfig_submissions_total{outcome="200",transport="http"} 2
sensorconfig_submissions_total{outcome="transport_error",transport="http"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "sensorconfig_submissions_total"); err != nil {
		t.Error(err)
	}

	expected = `
# HELP sensorconfig_last_submission_duration_seconds sensorconfig_last_submission_duration_seconds
# TYPE sensorconfig_last_submission_duration_seconds gauge
sensorconfig_last_submission_duration_seconds{outcome="200",transport="http"} 0.25
sensorconfig_last_submission_duration_seconds{outcome="transport_error",transport="http"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "sensorconfig_last_submission_duration_seconds"); err != nil {
		t.Error(err)
	}
}
