// Package metrics exports equipment controller counters to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/go-equiptest/equipment"
)

// Namespace prefixes every exported metric name.
const Namespace = "equiptest"

// Source is what the collector reads. *equipment.Controller implements it.
type Source interface {
	Metrics() *equipment.ControllerMetrics
	Status() equipment.Status
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(m *equipment.ControllerMetrics) *atomic.Uint64
}

// ControllerCollector is a prometheus.Collector over one controller.
//
// Values are read at scrape time, so the controller pays no cost for exporting them.
type ControllerCollector struct {
	src      Source
	counters []counterDesc
	status   *prometheus.Desc
}

var _ prometheus.Collector = (*ControllerCollector)(nil)

// NewControllerCollector creates a collector labelled controller=name.
func NewControllerCollector(name string, src Source) *ControllerCollector {
	labels := prometheus.Labels{"controller": name}
	counter := func(metric, help string, value func(m *equipment.ControllerMetrics) *atomic.Uint64) counterDesc {
		return counterDesc{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", metric), help, nil, labels),
			value: value,
		}
	}

	return &ControllerCollector{
		src: src,
		counters: []counterDesc{
			counter("tests_run_total", "Tests executed while running.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.TestRunCount }),
			counter("tests_passed_total", "Passed tests.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.TestPassCount }),
			counter("tests_failed_total", "Failed tests, including tests rejected outside the running status.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.TestFailCount }),
			counter("protocol_errors_total", "Missing or malformed instrument responses.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.ProtocolErrCount }),
			counter("transport_errors_total", "Instrument channel read or write errors.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.TransportErrCount }),
			counter("transitions_total", "Applied status transitions.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.TransitionCount }),
			counter("rejected_transitions_total", "Operations rejected by the status machine.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.RejectedTransitionCount }),
			counter("calibrations_total", "Started calibrations.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.CalibrationCount }),
			counter("calibration_failures_total", "Failed calibrations.",
				func(m *equipment.ControllerMetrics) *atomic.Uint64 { return &m.CalibrationFailCount }),
		},
		status: prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", "status"),
			"Current equipment status, 1 for the active status.", []string{"status"}, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.status
}

// Collect implements prometheus.Collector.
func (c *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Metrics()
	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.value(m).Load()))
	}

	cur := c.src.Status()
	for _, s := range equipment.AllStatuses {
		v := 0.0
		if s == cur {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, v, s.String())
	}
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
