// Package collab declares the abstract collaborators the sampler and
// elider consume. Production code wires in the logrus/gocron/xxhash
// backed implementations from the sibling logsink/scheduler/randsource
// packages; tests wire in fakes.
package collab

import "time"

// Clock supplies the current time, split into a precise timeval-style
// reading and a coarser seconds-only reading for cheap bookkeeping.
type Clock interface {
	Now() time.Time
	NowSeconds() int64
}

// LogSink is a leveled, printf-style logger, matching the teacher's
// injected telegraf.Logger field.
type LogSink interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// RandSource produces uniform pseudo-random 64-bit values for reservoir
// sampling. It need not be cryptographically secure.
type RandSource interface {
	Uint64() uint64
}

// IterDecision is returned by the function passed to Map.Iter to tell the
// map whether to keep or remove the entry just visited.
type IterDecision int

const (
	Continue IterDecision = iota
	Delete
)

// Handle identifies a scheduled, cancellable timer.
type Handle interface{}

// Scheduler abstracts the host event loop's periodic callback facility.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (Handle, error)
	Cancel(h Handle) error
	IsActive(h Handle) bool
	IsPending(h Handle) bool
}

// EntropyGatherer reads n bytes from an OS randomness source, for
// collaborators outside the sampling/elision core that need it (e.g.
// seeding a RandSource with more than wall-clock entropy).
type EntropyGatherer interface {
	Gather(n int) ([]byte, error)
}
