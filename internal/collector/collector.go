package collector

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

func New() *Collector {
	return &Collector{
		data: map[metricName]map[string]map[string]float64{
			metricNameSubmissions:      {},
			metricNameDuration:         {},
			metricNameLastSubmissionTS: {},
		},
	}
}

type metricName string

const (
	metricPrefix               metricName = "sensorconfig_"
	metricNameSubmissions      metricName = metricPrefix + "submissions_total"
	metricNameDuration         metricName = metricPrefix + "last_submission_duration_seconds"
	metricNameLastSubmissionTS metricName = metricPrefix + "last_submission_timestamp_seconds"
)

const (
	OutcomeTransportError = "transport_error"
	OutcomePublished      = "published"
)

var metricTypes = map[metricName]prometheus.ValueType{
	metricNameSubmissions:      prometheus.CounterValue,
	metricNameDuration:         prometheus.GaugeValue,
	metricNameLastSubmissionTS: prometheus.GaugeValue,
}

type Collector struct {
	// data maps metricName -> transport -> outcome -> value
	data     map[metricName]map[string]map[string]float64
	dataLock sync.Mutex
}

// ObserveSubmission records one finished submission. Outcome is the HTTP
// status code, OutcomePublished or OutcomeTransportError.
func (c *Collector) ObserveSubmission(transport, outcome string, durationSeconds, unixSeconds float64) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	c.ensure(metricNameSubmissions, transport)[outcome]++
	c.ensure(metricNameDuration, transport)[outcome] = durationSeconds
	c.ensure(metricNameLastSubmissionTS, transport)[outcome] = unixSeconds
}

func (c *Collector) ensure(name metricName, transport string) map[string]float64 {
	if c.data[name] == nil {
		c.data[name] = make(map[string]map[string]float64, 1)
	}
	if c.data[name][transport] == nil {
		c.data[name][transport] = make(map[string]float64, 1)
	}
	return c.data[name][transport]
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	for metricName := range c.data {
		ch <- desc(metricName)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()

	for metricName, transports := range c.data {
		for transport, outcomes := range transports {
			for outcome, value := range outcomes {
				ch <- prometheus.MustNewConstMetric(
					desc(metricName), metricTypes[metricName], value, transport, outcome,
				)
			}
		}
	}
}

func desc(name metricName) *prometheus.Desc {
	return prometheus.NewDesc(string(name), string(name), []string{"transport", "outcome"}, nil)
}
