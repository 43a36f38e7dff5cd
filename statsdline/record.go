package statsdline

// Record is the typed result of a successfully validated StatsD line.
type Record struct {
	Key              string
	Value            float64
	Type             MetricType
	PresamplingValue float64
}
