package statsdline

// MetricType identifies the kind of a parsed StatsD line. The ordinal of
// each known value matches the source table's enum: ms is ordinal 1 and is
// used elsewhere as the timer tag, so the numbering below is load-bearing
// and must not be reordered.
type MetricType int

const (
	// MetricUnknown is -1 so the six known types keep ordinals 0..5. The
	// zero value of MetricType is therefore MetricCounter, and an
	// uninitialized Record reads as a counter.
	MetricUnknown MetricType = iota - 1
	MetricCounter
	MetricTimer
	MetricKeyValue
	MetricGauge
	MetricHistogram
	MetricSet
)

func (t MetricType) String() string {
	switch t {
	case MetricCounter:
		return "counter"
	case MetricTimer:
		return "timer"
	case MetricKeyValue:
		return "kv"
	case MetricGauge:
		return "gauge"
	case MetricHistogram:
		return "histogram"
	case MetricSet:
		return "set"
	default:
		return "unknown"
	}
}

// typeTags maps the closed set of wire tags to their MetricType, in the
// order the grammar defines them: c, ms, kv, g, h, s.
var typeTags = map[string]MetricType{
	"c":  MetricCounter,
	"ms": MetricTimer,
	"kv": MetricKeyValue,
	"g":  MetricGauge,
	"h":  MetricHistogram,
	"s":  MetricSet,
}
