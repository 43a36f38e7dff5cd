// Package randsource is the default collab.RandSource: a PCG generator
// seeded from wall-clock seconds, mixed through
// github.com/cespare/xxhash/v2 so that two samplers started in the same
// second still diverge. The source's own PRNG is seeded straight from
// wall-clock seconds, which is low-entropy and racy across instances
// started together; that caveat is preserved here, just mitigated by
// salting the seed per instance rather than eliminated.
package randsource

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/statsrelay/relaycore/collab"
)

// Source is the default, non-cryptographic uniform u64 generator.
type Source struct {
	gen *rand.Rand
}

// New seeds a Source from clock's current wall-clock seconds and an
// instance-specific salt, so concurrently-started samplers do not share
// a PRNG stream.
func New(clock collab.Clock, instanceSalt uint64) *Source {
	now := uint64(clock.NowSeconds())
	seed1 := mix(now, instanceSalt, 0x1)
	seed2 := mix(now, instanceSalt, 0x2)
	return &Source{gen: rand.New(rand.NewPCG(seed1, seed2))}
}

func mix(seconds, salt, tag uint64) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], seconds)
	binary.LittleEndian.PutUint64(buf[8:16], salt)
	binary.LittleEndian.PutUint64(buf[16:24], tag)
	return xxhash.Sum64(buf[:])
}

// Uint64 returns the next pseudo-random value in the stream.
func (s *Source) Uint64() uint64 {
	return s.gen.Uint64()
}
