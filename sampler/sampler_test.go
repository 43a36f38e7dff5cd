package sampler

import (
	"math"
	"testing"

	"github.com/statsrelay/relaycore/statsdline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		Threshold:              2,
		Window:                 10,
		Cardinality:            1000,
		ReservoirSize:          2,
		TimerFlushMinMax:       true,
		ExpiryFrequencySeconds: 60,
		TTLSeconds:             -1,
	}
}

func newTestSampler(t *testing.T, cfg Config) (*Sampler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{seconds: 1000}
	s, err := New(cfg, clock, &fakeRand{}, nil, nil, nil)
	require.NoError(t, err)
	return s, clock
}

// Scenario 1: counter in steady-state sampling mode (already hot from a
// prior window) receives 3 events of value 10.0 with no presampling.
func TestScenario1Counter(t *testing.T) {
	s, _ := newTestSampler(t, baseConfig())

	// Prime the bucket into sampling mode, then flush once so
	// last_window_count rolls over to 0 while sampling stays true.
	s.ConsiderCounter("m1", 1, 1.0)
	s.ConsiderCounter("m1", 1, 1.0)
	s.ConsiderCounter("m1", 1, 1.0)
	s.Flush(func([]byte) {})

	assert.Equal(t, Sampling, s.ConsiderCounter("m1", 10.0, 1.0))
	assert.Equal(t, Sampling, s.ConsiderCounter("m1", 10.0, 1.0))
	assert.Equal(t, Sampling, s.ConsiderCounter("m1", 10.0, 1.0))

	var lines []string
	s.Flush(func(line []byte) { lines = append(lines, string(line)) })

	require.Len(t, lines, 1)
	assert.Equal(t, "m1:10|c@0.3333333333333333", lines[0])

	b, ok := s.buckets.Get("m1")
	require.True(t, ok)
	assert.Equal(t, 0.0, b.sum)
	assert.Equal(t, 0.0, b.count)
	assert.True(t, b.sampling)
}

// Scenario 2: gauge receives 3 events (5, 7, 9); only the event that
// triggers the sampling transition accumulates.
func TestScenario2Gauge(t *testing.T) {
	s, _ := newTestSampler(t, baseConfig())

	assert.Equal(t, NotSampling, s.ConsiderGauge("m2", 5, 1.0))
	assert.Equal(t, NotSampling, s.ConsiderGauge("m2", 7, 1.0))
	assert.Equal(t, Sampling, s.ConsiderGauge("m2", 9, 1.0))

	b, ok := s.buckets.Get("m2")
	require.True(t, ok)
	assert.True(t, b.sampling)
	assert.Equal(t, 9.0, b.sum)
	assert.Equal(t, 1.0, b.count)

	var lines []string
	s.Flush(func(line []byte) { lines = append(lines, string(line)) })
	require.Len(t, lines, 1)
	assert.Equal(t, "m2:9|g", lines[0])
}

// Scenario 3: timer with timer_flush_min_max receives 1,2,3,4,5; only
// 3,4,5 arrive in sampling mode. Flush emits the upper and lower seen in
// sampling mode (5 and 3) plus the reservoir slots (3 and 4, the values
// displaced from upper), at num_samples/count.
func TestScenario3Timer(t *testing.T) {
	s, _ := newTestSampler(t, baseConfig())

	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.ConsiderTimer("m3", v, 1.0)
	}

	b, ok := s.buckets.Get("m3")
	require.True(t, ok)
	assert.Equal(t, 5.0, b.upper)
	assert.Equal(t, 3.0, b.lower)
	assert.Equal(t, 12.0, b.sum)
	assert.Equal(t, 3.0, b.count)

	var lines []string
	s.Flush(func(line []byte) { lines = append(lines, string(line)) })

	require.Len(t, lines, 4)
	assert.Equal(t, "m3:5|ms@1", lines[0])
	assert.Equal(t, "m3:3|ms@1", lines[1])
	assert.Equal(t, "m3:3|ms@0.6666666666666666", lines[2])
	assert.Equal(t, "m3:4|ms@0.6666666666666666", lines[3])
}

// Scenario 4: a cardinality cap of 1 flags the second distinct key.
func TestScenario4CardinalityCap(t *testing.T) {
	cfg := baseConfig()
	cfg.Cardinality = 1
	s, _ := newTestSampler(t, cfg)

	assert.NotEqual(t, Flagged, s.ConsiderCounter("a", 1, 1.0))
	assert.Equal(t, Flagged, s.ConsiderCounter("b", 1, 1.0))
	assert.Equal(t, 1, s.Size())
}

func TestIsSamplingReflectsBucketState(t *testing.T) {
	s, _ := newTestSampler(t, baseConfig())
	assert.Equal(t, NotSampling, s.IsSampling("m1", statsdline.MetricCounter))

	s.ConsiderCounter("m1", 1, 1.0)
	s.ConsiderCounter("m1", 1, 1.0)
	s.ConsiderCounter("m1", 1, 1.0)

	assert.Equal(t, Sampling, s.IsSampling("m1", statsdline.MetricCounter))
	assert.Equal(t, NotSampling, s.IsSampling("m1", statsdline.MetricGauge))
}

func TestGaugeThresholdZeroGuard(t *testing.T) {
	cfg := baseConfig()
	cfg.Threshold = 0
	cfg.ReservoirSize = 0
	s, _ := newTestSampler(t, cfg)

	// Even with threshold<=0 rejecting the window-count/accumulate step,
	// the bucket is still created and still counts against cardinality.
	assert.Equal(t, NotSampling, s.ConsiderGauge("m", 1, 1.0))
	assert.Equal(t, 1, s.Size())
}

func TestExpiryRemovesOnlyIdleNonSamplingBuckets(t *testing.T) {
	cfg := baseConfig()
	cfg.TTLSeconds = 10
	s, clock := newTestSampler(t, cfg)

	// "idle" never reaches sampling mode (single event, threshold 2).
	s.ConsiderCounter("idle", 1, 1.0)
	// "hot" reaches sampling mode and should survive expiry regardless
	// of age.
	s.ConsiderCounter("hot", 1, 1.0)
	s.ConsiderCounter("hot", 1, 1.0)
	s.ConsiderCounter("hot", 1, 1.0)

	clock.advance(11)
	removed := s.ExpireOnce()

	assert.Equal(t, 1, removed)
	_, idleStillThere := s.buckets.Get("idle")
	assert.False(t, idleStillThere)
	_, hotStillThere := s.buckets.Get("hot")
	assert.True(t, hotStillThere)
}

func TestExpiryDisabledWhenTTLIsMinusOne(t *testing.T) {
	s, clock := newTestSampler(t, baseConfig())
	s.ConsiderCounter("idle", 1, 1.0)
	clock.advance(100000)
	assert.Equal(t, 0, s.ExpireOnce())
	assert.Equal(t, 1, s.Size())
}

func TestNewRejectsNegativeThreshold(t *testing.T) {
	cfg := baseConfig()
	cfg.Threshold = -1
	_, err := New(cfg, &fakeClock{}, &fakeRand{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNegativeThreshold)
}

func TestNewRejectsUndersizedReservoir(t *testing.T) {
	cfg := baseConfig()
	cfg.ReservoirSize = 1
	_, err := New(cfg, &fakeClock{}, &fakeRand{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrReservoirTooSmall)
}

func TestReservoirOverwriteUsesModuloOfWindowCount(t *testing.T) {
	cfg := baseConfig()
	cfg.Threshold = 2
	cfg.ReservoirSize = 2
	clock := &fakeClock{seconds: 1000}
	// Force the PRNG to select slot 0 on the overwrite draw.
	s, err := New(cfg, clock, &fakeRand{values: []uint64{0}}, nil, nil, nil)
	require.NoError(t, err)

	for _, v := range []float64{1, 2, 3, 4, 5, 6} {
		s.ConsiderTimer("m", v, 1.0)
	}

	b, ok := s.buckets.Get("m")
	require.True(t, ok)
	// The fill phase puts 3 and 4 (displaced from upper) in slots 0 and 1.
	// The sixth event's candidate 5 is then placed by the PRNG draw: with
	// i=0, k = i%lastWindowCount = 0 selects slot 0, and slot 1 is left as
	// it was.
	assert.Equal(t, 5.0, b.reservoir[0])
	assert.False(t, math.IsNaN(b.reservoir[1]))
	assert.Equal(t, 4.0, b.reservoir[1])
}
