// Package sampler implements the per-metric reservoir sampler: admission
// control by cardinality, a counter/gauge/timer state machine that flips
// into sampling mode once a window gets hot, and flush/expiry sweeps
// driven by an injected scheduler. It is grounded on the teacher's
// cachedcounter/cachedgauge/cachedtimings aggregation in
// plugins/inputs/statsd/statsd.go, generalized from telegraf's
// accumulate-everything model to the source's admit-or-flag,
// sample-when-hot design.
package sampler

import (
	"fmt"
	"math"
	"time"

	"github.com/statsrelay/relaycore/bucketmap"
	"github.com/statsrelay/relaycore/collab"
	"github.com/statsrelay/relaycore/metrics"
	"github.com/statsrelay/relaycore/statsdline"
)

// Result is the outcome of a consider_* call or an is_sampling query.
type Result int

const (
	NotSampling Result = iota
	Sampling
	Flagged
)

func (r Result) String() string {
	switch r {
	case Sampling:
		return "sampling"
	case Flagged:
		return "flagged"
	default:
		return "not_sampling"
	}
}

const maxUDPLineBytes = 1472

// Sampler owns one keyed map of buckets plus every collaborator it needs
// to run: a clock, a PRNG, a log sink, a scheduler for the recurring
// expiry sweep, and an optional metrics recorder.
type Sampler struct {
	cfg     Config
	buckets *bucketmap.Map[*bucket]

	clock  collab.Clock
	rand   collab.RandSource
	log    collab.LogSink
	sched  collab.Scheduler
	record metrics.Recorder

	expiryHandle collab.Handle
}

// New validates cfg and constructs a Sampler. It fails if threshold is
// negative or reservoir_size is smaller than threshold. record may be
// nil. If expiry is enabled (ttl_seconds != -1), New schedules the first
// recurring expiry sweep via sched.
func New(cfg Config, clock collab.Clock, rand collab.RandSource, log collab.LogSink, sched collab.Scheduler, record metrics.Recorder) (*Sampler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Sampler{
		cfg:     cfg,
		buckets: bucketmap.New[*bucket](32768),
		clock:   clock,
		rand:    rand,
		log:     log,
		sched:   sched,
		record:  record,
	}

	if cfg.expiryEnabled() && sched != nil {
		s.scheduleExpiry()
	}

	return s, nil
}

// Destroy cancels the expiry timer, if any, and releases every bucket.
func (s *Sampler) Destroy() {
	if s.expiryHandle != nil {
		if err := s.sched.Cancel(s.expiryHandle); err != nil && s.log != nil {
			s.log.Errorf("sampler: cancel expiry timer: %v", err)
		}
	}
	s.buckets.Destroy()
}

func (s *Sampler) scheduleExpiry() {
	h, err := s.sched.Schedule(time.Duration(s.cfg.ExpiryFrequencySeconds)*time.Second, func() {
		s.ExpireOnce()
		s.scheduleExpiry()
	})
	if err != nil {
		if s.log != nil {
			s.log.Errorf("sampler: schedule expiry sweep: %v", err)
		}
		return
	}
	s.expiryHandle = h
}

// ExpiryActive reports whether the expiry timer handle is currently
// running its callback.
func (s *Sampler) ExpiryActive() bool {
	return s.expiryHandle != nil && s.sched.IsActive(s.expiryHandle)
}

// ExpiryPending reports whether an expiry sweep is scheduled but not yet
// fired.
func (s *Sampler) ExpiryPending() bool {
	return s.expiryHandle != nil && s.sched.IsPending(s.expiryHandle)
}

// Size returns the number of distinct keys currently admitted.
func (s *Sampler) Size() int {
	return s.buckets.Size()
}

// getOrCreate returns the bucket for key, creating one of the given kind
// if absent. It enforces the cardinality cap: a brand new key is
// admitted only while buckets.Size() < Cardinality.
func (s *Sampler) getOrCreate(key string, kind statsdline.MetricType) (*bucket, bool) {
	if b, ok := s.buckets.Get(key); ok {
		return b, false
	}
	if int64(s.buckets.Size()) >= s.cfg.Cardinality {
		if s.record != nil {
			s.record.IncFlagged()
		}
		return nil, false
	}
	b := newBucket(kind, s.clock.NowSeconds(), s.cfg.ReservoirSize)
	s.buckets.Put(key, b, nil)
	return b, true
}

func (s *Sampler) enterSamplingIfTransitioning(key string, b *bucket) {
	if !b.sampling && b.lastWindowCount > uint64(s.cfg.Threshold) {
		b.sampling = true
		if s.log != nil {
			s.log.Debugf("sampler: key %q entered sampling mode", key)
		}
		if s.record != nil {
			s.record.IncSamplingTransition()
		}
	}
}

// ConsiderCounter admits a counter observation. See package sampler's
// component design docs for the state machine this implements.
func (s *Sampler) ConsiderCounter(key string, value, presampling float64) Result {
	b, isNew := s.getOrCreate(key, statsdline.MetricCounter)
	if b == nil {
		return Flagged
	}
	now := s.clock.NowSeconds()

	if isNew {
		// The creating call primes last_window_count directly and never
		// participates in the window-count/accumulate step below; a
		// freshly created bucket cannot be in sampling mode yet anyway.
		b.lastWindowCount = 1
		b.lastModifiedAt = now
		return NotSampling
	}

	b.lastWindowCount++
	b.lastModifiedAt = now
	s.enterSamplingIfTransitioning(key, b)
	if !b.sampling {
		return NotSampling
	}

	weight := presamplingWeight(presampling)
	b.sum += value * weight
	b.count += weight
	return Sampling
}

// ConsiderGauge admits a gauge observation. Unlike counter and timer,
// gauge has no special-cased creation branch: a brand-new bucket still
// runs the window-count/accumulate step on its very first call. Bucket
// creation (and the cardinality admission check that comes with it) and
// the last_modified_at refresh both happen before the threshold guard,
// so a zero-or-negative threshold still counts the key against
// cardinality and keeps its expiry clock current.
func (s *Sampler) ConsiderGauge(key string, value, _ float64) Result {
	b, _ := s.getOrCreate(key, statsdline.MetricGauge)
	if b == nil {
		return Flagged
	}
	b.lastModifiedAt = s.clock.NowSeconds()

	if s.cfg.Threshold <= 0 {
		return NotSampling
	}

	b.lastWindowCount++
	s.enterSamplingIfTransitioning(key, b)
	if !b.sampling {
		return NotSampling
	}

	// Presampling weight is never applied to gauges.
	b.sum += value
	b.count++
	return Sampling
}

// ConsiderTimer admits a timer observation, maintaining true running
// extrema alongside a threshold-sized reservoir sample (Algorithm R).
func (s *Sampler) ConsiderTimer(key string, value, presampling float64) Result {
	b, isNew := s.getOrCreate(key, statsdline.MetricTimer)
	if b == nil {
		return Flagged
	}
	now := s.clock.NowSeconds()

	if isNew {
		b.lastWindowCount = 1
		b.lastModifiedAt = now
		return NotSampling
	}

	b.lastWindowCount++
	b.lastModifiedAt = now
	s.enterSamplingIfTransitioning(key, b)
	if !b.sampling {
		return NotSampling
	}

	// Upper and lower are maintained independently: a value can be a new
	// maximum and, in the same call, the first-ever value seen (hence
	// also a new minimum). Each extremum only supplies a reservoir
	// candidate on its "swap" path; the first observation of either
	// extremum (still at its sentinel) skips reservoir insertion
	// entirely for this call.
	insertValue := value
	skipReservoir := false

	if value > b.upper {
		b.upperSampleRate = presampling
		if b.upper == sentinelUpperUnset {
			b.upper = value
			skipReservoir = true
		} else {
			prev := b.upper
			b.upper = value
			insertValue = prev
		}
	}
	if value < b.lower {
		b.lowerSampleRate = presampling
		if b.lower == sentinelLowerUnset {
			b.lower = value
			skipReservoir = true
		} else {
			prev := b.lower
			b.lower = value
			insertValue = prev
		}
	}

	if !skipReservoir {
		if b.reservoirIndex < int(s.cfg.Threshold) {
			b.reservoir[b.reservoirIndex] = insertValue
			b.reservoirIndex++
		} else if b.lastWindowCount > 0 {
			i := s.rand.Uint64()
			k := i % b.lastWindowCount
			if k < uint64(s.cfg.Threshold) {
				b.reservoir[k] = insertValue
			}
		}
	}

	weight := presamplingWeight(presampling)
	b.sum += value * weight
	b.count += weight
	return Sampling
}

// IsSampling reports whether key is currently sampling as the given
// metric type.
func (s *Sampler) IsSampling(key string, kind statsdline.MetricType) Result {
	b, ok := s.buckets.Get(key)
	if !ok || !b.sampling || b.kind != kind {
		return NotSampling
	}
	return Sampling
}

// Flush emits the synthesized StatsD lines of every populated bucket via
// cb (one line for a counter or gauge; for a timer, the optional upper
// and lower lines plus one line per filled reservoir slot), then performs the window rollover for every bucket regardless of
// whether it emitted.
func (s *Sampler) Flush(cb func(line []byte)) {
	s.buckets.Iter(func(key string, b *bucket, _ any) collab.IterDecision {
		s.flushBucket(key, b, cb)
		s.rollover(b)
		return collab.Continue
	})
}

func (s *Sampler) flushBucket(key string, b *bucket, cb func(line []byte)) {
	if !b.sampling || b.count == 0 {
		return
	}

	switch b.kind {
	case statsdline.MetricCounter:
		avg := b.sum / b.count
		rate := 1 / b.count
		s.emitLine(cb, key, fmt.Sprintf("%s:%s|c@%s", key, formatDouble(avg), formatDouble(rate)))
	case statsdline.MetricGauge:
		avg := b.sum / b.count
		s.emitLine(cb, key, fmt.Sprintf("%s:%s|g", key, formatDouble(avg)))
	case statsdline.MetricTimer:
		s.flushTimer(key, b, cb)
	}

	b.count = 0
	b.sum = 0
}

func (s *Sampler) flushTimer(key string, b *bucket, cb func(line []byte)) {
	if s.cfg.TimerFlushMinMax {
		if b.upper > sentinelUpperUnset {
			s.emitLine(cb, key, fmt.Sprintf("%s:%s|ms@%s", key, formatDouble(b.upper), formatDouble(b.upperSampleRate)))
			b.upper = sentinelUpperUnset
		}
		if b.lower < sentinelLowerUnset {
			s.emitLine(cb, key, fmt.Sprintf("%s:%s|ms@%s", key, formatDouble(b.lower), formatDouble(b.lowerSampleRate)))
			b.lower = sentinelLowerUnset
		}
	}

	numSamples := 0
	for _, v := range b.reservoir {
		if !math.IsNaN(v) {
			numSamples++
		}
	}
	sampleRate := float64(numSamples) / b.count
	for i, v := range b.reservoir {
		if math.IsNaN(v) {
			continue
		}
		s.emitLine(cb, key, fmt.Sprintf("%s:%s|ms@%s", key, formatDouble(v), formatDouble(sampleRate)))
		b.reservoir[i] = math.NaN()
	}
}

func (s *Sampler) emitLine(cb func(line []byte), key, line string) {
	if len(line) > maxUDPLineBytes {
		if s.log != nil {
			s.log.Errorf("sampler: dropping oversized flush line for key %q (%d bytes)", key, len(line))
		}
		if s.record != nil {
			s.record.IncEncodingOverflow()
		}
		return
	}
	cb([]byte(line))
	if s.record != nil {
		s.record.IncFlushedLines()
	}
}

// rollover applies the per-bucket window-end transition: a bucket whose
// window stayed hot remains (or becomes) sampling; one that cooled off
// exits sampling and resets its reservoir cursor. last_window_count is
// always zeroed.
func (s *Sampler) rollover(b *bucket) {
	switch {
	case b.lastWindowCount > uint64(s.cfg.Threshold):
		b.sampling = true
	case b.sampling && b.lastWindowCount <= uint64(s.cfg.Threshold):
		b.sampling = false
		b.reservoirIndex = 0
	}
	b.lastWindowCount = 0
}

// ExpireOnce runs a single expiry pass, deleting every non-sampling
// bucket whose last_modified_at is older than ttl_seconds. It returns
// the number of buckets removed.
func (s *Sampler) ExpireOnce() int {
	if !s.cfg.expiryEnabled() {
		return 0
	}

	now := s.clock.NowSeconds()
	removed := 0
	s.buckets.Iter(func(_ string, b *bucket, _ any) collab.IterDecision {
		if b.sampling {
			return collab.Continue
		}
		if now-b.lastModifiedAt > s.cfg.TTLSeconds {
			removed++
			return collab.Delete
		}
		return collab.Continue
	})

	if removed > 0 && s.log != nil {
		s.log.Debugf("sampler: expiry sweep removed %d idle buckets", removed)
	}
	if s.record != nil {
		s.record.AddExpiredBuckets(removed)
	}
	return removed
}
