package report

import (
	"slices"
	"time"

	"github.com/arloliu/go-equiptest/equipment"
)

// Summary holds the overall counts of a report.
type Summary struct {
	TotalTests int `json:"total_tests" cbor:"total_tests"`
	Passed     int `json:"passed" cbor:"passed"`
	Failed     int `json:"failed" cbor:"failed"`
	// PassRate is passed/total*100, or 0 without results.
	PassRate    float64   `json:"pass_rate" cbor:"pass_rate"`
	GeneratedAt time.Time `json:"generated_at" cbor:"generated_at"`
}

// DeviceStatistics holds the counts of one device.
type DeviceStatistics struct {
	TotalTests int     `json:"total_tests" cbor:"total_tests"`
	Passed     int     `json:"passed" cbor:"passed"`
	Failed     int     `json:"failed" cbor:"failed"`
	PassRate   float64 `json:"pass_rate" cbor:"pass_rate"`
	// AvgMeasurement is the mean of the present measurements; nil when there are none.
	AvgMeasurement *float64 `json:"avg_measurement" cbor:"avg_measurement"`
}

// Report is the aggregated view of a result list.
type Report struct {
	Summary          Summary                     `json:"summary" cbor:"summary"`
	DeviceStatistics map[string]DeviceStatistics `json:"device_statistics" cbor:"device_statistics"`
	DetailedResults  []equipment.TestResult      `json:"detailed_results" cbor:"detailed_results"`

	// devices keeps the order in which devices first appear.
	devices []string
}

// Devices returns the device ids in order of first appearance.
func (r *Report) Devices() []string {
	if r.devices == nil {
		ids := make([]string, 0, len(r.DeviceStatistics))
		for id := range r.DeviceStatistics {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		return ids
	}

	return slices.Clone(r.devices)
}

// Option configures Generate.
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock sets the time source for the generation timestamp.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// Generate aggregates results into a Report. results is not modified.
func Generate(results []equipment.TestResult, opts ...Option) *Report {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	rep := &Report{
		DeviceStatistics: make(map[string]DeviceStatistics),
		DetailedResults:  make([]equipment.TestResult, len(results)),
		devices:          []string{},
	}

	type acc struct {
		total, passed int
		sum           float64
		measured      int
	}
	perDevice := make(map[string]*acc)

	for i, res := range results {
		if res.MeasurementValue != nil {
			res.MeasurementValue = equipment.Value(*res.MeasurementValue)
		}
		rep.DetailedResults[i] = res

		a, ok := perDevice[res.DeviceID]
		if !ok {
			a = &acc{}
			perDevice[res.DeviceID] = a
			rep.devices = append(rep.devices, res.DeviceID)
		}

		a.total++
		if res.Passed {
			a.passed++
			rep.Summary.Passed++
		}
		if v, ok := res.Measurement(); ok {
			a.sum += v
			a.measured++
		}
	}

	rep.Summary.TotalTests = len(results)
	rep.Summary.Failed = rep.Summary.TotalTests - rep.Summary.Passed
	rep.Summary.PassRate = passRate(rep.Summary.Passed, rep.Summary.TotalTests)
	rep.Summary.GeneratedAt = o.clock()

	for id, a := range perDevice {
		stats := DeviceStatistics{
			TotalTests: a.total,
			Passed:     a.passed,
			Failed:     a.total - a.passed,
			PassRate:   passRate(a.passed, a.total),
		}
		if a.measured > 0 {
			stats.AvgMeasurement = equipment.Value(a.sum / float64(a.measured))
		}
		rep.DeviceStatistics[id] = stats
	}

	return rep
}

func passRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(passed) * 100 / float64(total)
}
