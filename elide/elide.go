// Package elide tracks, per metric key, how many consecutive times a
// caller has observed an unchanged ("boring") value, so the caller can
// decide when to stop re-emitting it. It is grounded on the teacher's
// own per-key cache-with-TTL pattern (cachedgauge.expiresAt and
// expireCachedMetrics), generalized from a time.Time deadline to an
// explicit generation counter plus whole-second GC cutoff.
package elide

import (
	"time"

	"github.com/statsrelay/relaycore/bucketmap"
	"github.com/statsrelay/relaycore/collab"
)

// Entry is the per-key state the Elider owns.
type Entry struct {
	Generations int64
	LastSeen    time.Time
}

// Elider implements the elision collaborator described in the component
// design: mark/unmark/gc/destroy over a keyed map of Entry.
type Elider struct {
	skip    int64
	entries *bucketmap.Map[*Entry]
	log     collab.LogSink
}

// New creates an Elider whose reported generations are offset by skip.
func New(skip int64, log collab.LogSink) *Elider {
	return &Elider{
		skip:    skip,
		entries: bucketmap.New[*Entry](1024),
		log:     log,
	}
}

// Mark records that key was observed with an unchanged value at now. It
// returns the entry's pre-increment generation count: the first call for
// a key returns skip, the second skip+1, and so on.
func (e *Elider) Mark(key string, now time.Time) int64 {
	entry, ok := e.entries.Get(key)
	if !ok {
		entry = &Entry{Generations: e.skip, LastSeen: now}
		e.entries.Put(key, entry, nil)
	}

	generation := entry.Generations
	entry.Generations++
	entry.LastSeen = now
	return generation
}

// Unmark records that key's value changed, resetting its generation back
// to skip and updating last_seen. It returns skip. A missing entry is
// created.
func (e *Elider) Unmark(key string, now time.Time) int64 {
	entry, ok := e.entries.Get(key)
	if !ok {
		entry = &Entry{}
		e.entries.Put(key, entry, nil)
	}

	entry.Generations = e.skip
	entry.LastSeen = now
	return e.skip
}

// GC removes every entry whose last_seen, truncated to whole seconds, is
// at or before cutoff's whole-second value. It returns the number of
// entries removed. Sub-second precision is intentionally ignored here to
// batch the work across a periodic sweep.
func (e *Elider) GC(cutoff time.Time) int {
	removed := 0
	cutoffSec := cutoff.Unix()
	e.entries.Filter(func(_ string, entry *Entry, _ any) bool {
		if entry.LastSeen.Unix() <= cutoffSec {
			removed++
			return false
		}
		return true
	})
	if removed > 0 && e.log != nil {
		e.log.Debugf("elide: gc removed %d entries older than %d", removed, cutoffSec)
	}
	return removed
}

// Destroy releases every tracked entry.
func (e *Elider) Destroy() {
	e.entries.Destroy()
}

// Size reports the number of keys currently tracked.
func (e *Elider) Size() int {
	return e.entries.Size()
}
