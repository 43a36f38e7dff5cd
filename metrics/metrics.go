// Package metrics exposes the sampler and elider's self-observability
// counters. It stands in for the teacher's selfstat-backed
// internalStats, grounded instead on github.com/prometheus/client_golang
// (the self-observability library the rest of the example corpus reaches
// for) since telegraf's own selfstat package is private to its module and
// cannot be imported here.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the self-observability collaborator the sampler reports
// into. It is optional everywhere it's accepted: a nil Recorder means
// "don't bother counting."
type Recorder interface {
	IncFlagged()
	IncParseError()
	IncEncodingOverflow()
	IncFlushedLines()
	AddExpiredBuckets(n int)
	IncSamplingTransition()
}

// PrometheusRecorder is the default, production Recorder.
type PrometheusRecorder struct {
	flagged             prometheus.Counter
	parseErrors         prometheus.Counter
	encodingOverflows   prometheus.Counter
	flushedLines        prometheus.Counter
	expiredBuckets      prometheus.Counter
	samplingTransitions prometheus.Counter
}

// NewPrometheusRecorder builds a PrometheusRecorder and registers its
// counters against reg. Pass prometheus.DefaultRegisterer to publish on
// the process-wide /metrics endpoint, or a fresh *prometheus.Registry in
// tests to avoid collisions between runs.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		flagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaycore",
			Subsystem: "sampler",
			Name:      "flagged_total",
			Help:      "Keys rejected by consider_* because the cardinality cap or a bucket allocation failed.",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaycore",
			Subsystem: "statsdline",
			Name:      "parse_errors_total",
			Help:      "Lines rejected by the validator.",
		}),
		encodingOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaycore",
			Subsystem: "sampler",
			Name:      "encoding_overflows_total",
			Help:      "Flush lines skipped because they exceeded the UDP payload cap.",
		}),
		flushedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaycore",
			Subsystem: "sampler",
			Name:      "flushed_lines_total",
			Help:      "Lines successfully emitted by flush.",
		}),
		expiredBuckets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaycore",
			Subsystem: "sampler",
			Name:      "expired_buckets_total",
			Help:      "Idle buckets removed by the expiry sweep.",
		}),
		samplingTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaycore",
			Subsystem: "sampler",
			Name:      "sampling_transitions_total",
			Help:      "Number of times a bucket flipped into sampling mode.",
		}),
	}
	reg.MustRegister(
		r.flagged,
		r.parseErrors,
		r.encodingOverflows,
		r.flushedLines,
		r.expiredBuckets,
		r.samplingTransitions,
	)
	return r
}

func (r *PrometheusRecorder) IncFlagged()             { r.flagged.Inc() }
func (r *PrometheusRecorder) IncParseError()          { r.parseErrors.Inc() }
func (r *PrometheusRecorder) IncEncodingOverflow()    { r.encodingOverflows.Inc() }
func (r *PrometheusRecorder) IncFlushedLines()        { r.flushedLines.Inc() }
func (r *PrometheusRecorder) AddExpiredBuckets(n int) { r.expiredBuckets.Add(float64(n)) }
func (r *PrometheusRecorder) IncSamplingTransition()  { r.samplingTransitions.Inc() }
