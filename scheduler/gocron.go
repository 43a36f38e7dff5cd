// Package scheduler wraps github.com/go-co-op/gocron/v2 behind the
// collab.Scheduler interface, the way ClusterCockpit-cc-backend's
// taskManager schedules its periodic housekeeping jobs
// (s.NewJob(gocron.DurationJob(d), gocron.NewTask(fn))), but injected per
// Sampler instance instead of driven off a single process-wide default
// scheduler.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/statsrelay/relaycore/collab"
)

type jobState struct {
	job     gocron.Job
	running bool
}

// GoCron is the default collab.Scheduler.
type GoCron struct {
	sched gocron.Scheduler

	mu   sync.Mutex
	jobs map[uuid.UUID]*jobState
}

// New starts a gocron scheduler and returns the GoCron wrapper around it.
func New() (*GoCron, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: start gocron: %w", err)
	}
	sched.Start()
	return &GoCron{sched: sched, jobs: make(map[uuid.UUID]*jobState)}, nil
}

// Shutdown stops the underlying gocron scheduler.
func (g *GoCron) Shutdown() error {
	return g.sched.Shutdown()
}

// Schedule runs fn once after delay, the way the core's single-shot
// expiry timer works (the sampler reschedules a fresh one-shot after
// every sweep rather than relying on a recurring job).
func (g *GoCron) Schedule(delay time.Duration, fn func()) (collab.Handle, error) {
	state := &jobState{}
	wrapped := func() {
		g.mu.Lock()
		state.running = true
		g.mu.Unlock()

		fn()

		g.mu.Lock()
		state.running = false
		g.mu.Unlock()
	}

	job, err := g.sched.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(delay))),
		gocron.NewTask(wrapped),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: schedule job: %w", err)
	}
	state.job = job

	g.mu.Lock()
	g.jobs[job.ID()] = state
	g.mu.Unlock()

	return job.ID(), nil
}

// Cancel removes a previously scheduled job.
func (g *GoCron) Cancel(h collab.Handle) error {
	id, ok := h.(uuid.UUID)
	if !ok {
		return fmt.Errorf("scheduler: invalid handle %v", h)
	}

	g.mu.Lock()
	delete(g.jobs, id)
	g.mu.Unlock()

	return g.sched.RemoveJob(id)
}

// IsActive reports whether the job's task is currently executing.
func (g *GoCron) IsActive(h collab.Handle) bool {
	id, ok := h.(uuid.UUID)
	if !ok {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.jobs[id]
	return ok && state.running
}

// IsPending reports whether the job is still scheduled to run in the
// future.
func (g *GoCron) IsPending(h collab.Handle) bool {
	id, ok := h.(uuid.UUID)
	if !ok {
		return false
	}

	g.mu.Lock()
	state, ok := g.jobs[id]
	g.mu.Unlock()
	if !ok {
		return false
	}

	next, err := state.job.NextRun()
	return err == nil && !next.IsZero()
}
