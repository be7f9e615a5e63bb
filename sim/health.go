package sim

// Health metric names.
const (
	MetricTemperature      = "temperature"
	MetricVibration        = "vibration"
	MetricPowerConsumption = "power_consumption"
	MetricUptimeHours      = "uptime_hours"
	MetricErrorRate        = "error_rate"
)

// Health telemetry distributions.
const (
	TemperatureMean   = 23.5
	TemperatureStdDev = 1.0
	VibrationMean     = 0.02
	PowerMean         = 125.3
	PowerStdDev       = 5.0
	ErrorRateMean     = 0.001
)

// HealthMetrics maps a metric name to its value.
type HealthMetrics map[string]float64

// HealthMetrics generates a fresh set of placeholder telemetry.
//
// The values are synthetic; no device is queried even when one is attached.
func (env *Environment) HealthMetrics() HealthMetrics {
	return HealthMetrics{
		MetricTemperature:      env.rng.normal(TemperatureMean, TemperatureStdDev),
		MetricVibration:        env.rng.exponential(VibrationMean),
		MetricPowerConsumption: env.rng.normal(PowerMean, PowerStdDev),
		MetricUptimeHours:      env.clock().Sub(env.startedAt).Hours(),
		MetricErrorRate:        env.rng.exponential(ErrorRateMean),
	}
}
