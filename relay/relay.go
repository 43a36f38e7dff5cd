// Package relay wires the validator, elider, and sampler together behind
// the same Start/Gather/Stop-shaped lifecycle the teacher's Statsd input
// plugin uses, except every collaborator (clock, scheduler, log sink,
// random source) is injected rather than owned directly, and socket I/O
// is replaced by a plain Ingest(line []byte) call the host is expected
// to drive from its own listener.
package relay

import (
	"time"

	"github.com/statsrelay/relaycore/collab"
	"github.com/statsrelay/relaycore/config"
	"github.com/statsrelay/relaycore/elide"
	"github.com/statsrelay/relaycore/metrics"
	"github.com/statsrelay/relaycore/sampler"
	"github.com/statsrelay/relaycore/statsdline"
)

// Relay is the top-level orchestrator: it owns a Sampler and an Elider,
// schedules their periodic work, and exposes Ingest for the host's line
// source.
type Relay struct {
	sampler *sampler.Sampler
	elider  *elide.Elider
	log     collab.LogSink
	clock   collab.Clock
	sched   collab.Scheduler
	record  metrics.Recorder

	windowSeconds int64
	elideTTL      int64
	elideGCFreq   int64

	flushHandle collab.Handle
	gcHandle    collab.Handle

	onLine func(line []byte)
}

// New builds a Relay. onLine is called once per flushed StatsD line, the
// emitted interface the core hands back to its host.
func New(
	cfg config.RelayConfig,
	clock collab.Clock,
	rand collab.RandSource,
	log collab.LogSink,
	sched collab.Scheduler,
	record metrics.Recorder,
	onLine func(line []byte),
) (*Relay, error) {
	s, err := sampler.New(cfg.Sampler, clock, rand, log, sched, record)
	if err != nil {
		return nil, err
	}

	r := &Relay{
		sampler:       s,
		elider:        elide.New(cfg.Elide.Skip, log),
		log:           log,
		clock:         clock,
		sched:         sched,
		record:        record,
		windowSeconds: cfg.Sampler.Window,
		elideTTL:      cfg.Elide.TTLSeconds,
		elideGCFreq:   cfg.Elide.GCFrequencySeconds,
		onLine:        onLine,
	}

	if sched != nil && cfg.Sampler.Window > 0 {
		r.scheduleFlush()
	}
	if sched != nil && cfg.Elide.GCFrequencySeconds > 0 {
		r.scheduleElideGC()
	}

	return r, nil
}

func (r *Relay) scheduleFlush() {
	h, err := r.sched.Schedule(time.Duration(r.windowSeconds)*time.Second, func() {
		r.sampler.Flush(r.onLine)
		r.scheduleFlush()
	})
	if err != nil {
		if r.log != nil {
			r.log.Errorf("relay: schedule flush: %v", err)
		}
		return
	}
	r.flushHandle = h
}

func (r *Relay) scheduleElideGC() {
	h, err := r.sched.Schedule(time.Duration(r.elideGCFreq)*time.Second, func() {
		cutoff := r.clock.Now().Add(-time.Duration(r.elideTTL) * time.Second)
		r.elider.GC(cutoff)
		r.scheduleElideGC()
	})
	if err != nil {
		if r.log != nil {
			r.log.Errorf("relay: schedule elide gc: %v", err)
		}
		return
	}
	r.gcHandle = h
}

// Ingest validates and dispatches a single raw StatsD line. Parse
// failures are reported to the log and counted, then dropped; they are
// never fatal.
func (r *Relay) Ingest(line []byte) {
	rec, err := statsdline.Parse(line)
	if err != nil {
		if r.record != nil {
			r.record.IncParseError()
		}
		if r.log != nil {
			r.log.Debugf("relay: dropping invalid line: %v", err)
		}
		return
	}

	switch rec.Type {
	case statsdline.MetricCounter:
		r.sampler.ConsiderCounter(rec.Key, rec.Value, rec.PresamplingValue)
	case statsdline.MetricGauge:
		r.sampler.ConsiderGauge(rec.Key, rec.Value, rec.PresamplingValue)
	case statsdline.MetricTimer:
		r.sampler.ConsiderTimer(rec.Key, rec.Value, rec.PresamplingValue)
	default:
		if r.log != nil {
			r.log.Debugf("relay: no sampler handling for metric type %s (key %s)", rec.Type, rec.Key)
		}
	}
}

// Mark and Unmark expose the Elider to callers that want to suppress
// repeated values for a key before even reaching the sampler.
func (r *Relay) Mark(key string) int64   { return r.elider.Mark(key, r.clock.Now()) }
func (r *Relay) Unmark(key string) int64 { return r.elider.Unmark(key, r.clock.Now()) }

// Stop cancels both periodic timers and releases every bucket and elide
// entry.
func (r *Relay) Stop() {
	if r.sched != nil {
		if r.flushHandle != nil {
			_ = r.sched.Cancel(r.flushHandle)
		}
		if r.gcHandle != nil {
			_ = r.sched.Cancel(r.gcHandle)
		}
	}
	r.sampler.Destroy()
	r.elider.Destroy()
}
