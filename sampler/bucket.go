package sampler

import (
	"math"

	"github.com/statsrelay/relaycore/statsdline"
)

// sentinelUpperUnset is DBL_MIN, the smallest positive normalized
// double, used as the "no observation yet" value for a timer's upper
// extremum. It is deliberately not -Inf: the first positive observation
// trivially exceeds it, but the first negative observation does not.
// Preserved verbatim from the source's numeric quirk.
const sentinelUpperUnset = 2.2250738585072014e-308

// sentinelLowerUnset is DBL_MAX, the "no observation yet" value for a
// timer's lower extremum.
const sentinelLowerUnset = math.MaxFloat64

// bucket is the per-key state the Sampler owns. It follows the teacher's
// own texture for a small fixed set of variants: the metric struct in
// statsd.go mixes intvalue/floatvalue/strvalue fields behind a single
// mtype discriminant rather than a sum type, and bucket does the same
// with a kind discriminant plus timer-only fields that sit unused for
// counter and gauge buckets.
type bucket struct {
	kind            statsdline.MetricType
	sampling        bool
	lastWindowCount uint64
	lastModifiedAt  int64
	sum             float64
	count           float64

	// Timer-only.
	reservoir       []float64
	reservoirIndex  int
	upper           float64
	lower           float64
	upperSampleRate float64
	lowerSampleRate float64
}

func newBucket(kind statsdline.MetricType, now int64, reservoirSize int64) *bucket {
	b := &bucket{kind: kind, lastModifiedAt: now}
	if kind == statsdline.MetricTimer {
		b.reservoir = make([]float64, reservoirSize)
		for i := range b.reservoir {
			b.reservoir[i] = math.NaN()
		}
		b.upper = sentinelUpperUnset
		b.lower = sentinelLowerUnset
	}
	return b
}

// presamplingWeight returns the inverse of the client-side sample rate
// when one was applied (0 < p < 1), and 1 otherwise. It is used
// identically as both a value multiplier and a count increment for
// counters and timers; gauges never call it.
func presamplingWeight(p float64) float64 {
	if p > 0 && p < 1 {
		return 1 / p
	}
	return 1
}
