package field

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingState is the lifecycle stage of a Pending computation.
type PendingState uint8

const (
	StateQueued    PendingState = iota // waiting for the running computation to finish
	StateRunning                       // kernel executing in the background
	StateCompleted                     // result ready, not yet polled
	StateConsumed                      // result handed out by Poll
)

func (s PendingState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateConsumed:
		return "consumed"
	}
	return "unknown"
}

// Pending is a handle to one background field computation. All fields are
// guarded by the owning Scheduler's mutex.
type Pending struct {
	id        uuid.UUID
	state     PendingState
	region    Region
	snap      Snapshot
	triggers  int
	obstacles int

	result   *Field
	started  time.Time
	finished time.Time
	done     chan struct{}
}

// ID identifies the computation in logs and telemetry.
func (p *Pending) ID() uuid.UUID {
	return p.id
}

// Done is closed once the computation has produced its field.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// ComputeFunc produces a field for a region and snapshot.
type ComputeFunc func(Region, Snapshot) *Field

// Scheduler runs field computations off the caller's goroutine, one at a
// time. Triggers that arrive while a computation is running coalesce into a
// single queued computation that carries the most recent snapshot; it starts
// on the first Poll or Trigger after the running one completes.
type Scheduler struct {
	compute ComputeFunc
	log     *slog.Logger

	mu      sync.Mutex
	running *Pending
	queued  *Pending
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger used for computation lifecycle messages.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithComputeFunc replaces the kernel, mostly for tests that need a slow worker.
func WithComputeFunc(fn ComputeFunc) SchedulerOption {
	return func(s *Scheduler) {
		if fn != nil {
			s.compute = fn
		}
	}
}

// NewScheduler creates an idle scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		compute: Compute,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger requests a computation of snap over region and returns its handle
// without blocking. If a computation is already running, the returned handle
// is the queued one; repeated triggers return the same queued handle with its
// request replaced by the newest snapshot.
func (s *Scheduler) Trigger(snap Snapshot, region Region) (*Pending, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()

	if s.running == nil {
		p := newPending(snap, region)
		s.running = p
		s.launchLocked(p)
		return p, nil
	}

	if s.queued == nil {
		s.queued = newPending(snap, region)
	} else {
		s.queued.snap = snap
		s.queued.obstacles = snap.Len()
		s.queued.region = region
		s.queued.triggers++
	}
	s.log.Debug("field computation coalesced",
		"id", s.queued.id,
		"running", s.running.id,
		"triggers", s.queued.triggers,
	)
	return s.queued, nil
}

// Poll returns the finished field of h exactly once. It returns false while h
// is queued or running, and on every call after the field was handed out.
// Poll never blocks on the kernel.
func (s *Scheduler) Poll(h *Pending) (*Field, bool) {
	if h == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()

	if h.state != StateCompleted {
		return nil, false
	}
	f := h.result
	h.state = StateConsumed
	h.result = nil
	h.snap = Snapshot{}
	return f, true
}

// Busy reports whether a computation is running or queued.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return s.running != nil || s.queued != nil
}

// Wait blocks until no computation is running or queued, or ctx is done.
// It is meant for tools and tests; the tick loop should use Poll.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		s.advanceLocked()
		p := s.running
		s.mu.Unlock()
		if p == nil {
			return nil
		}
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Info describes a handle for telemetry.
type Info struct {
	ID        uuid.UUID
	State     PendingState
	Region    Region
	Obstacles int
	Triggers  int
	Duration  time.Duration
}

// Info returns a description of h.
func (s *Scheduler) Info(h *Pending) Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:        h.id,
		State:     h.state,
		Region:    h.region,
		Obstacles: h.obstacles,
		Triggers:  h.triggers,
	}
	if !h.finished.IsZero() {
		info.Duration = h.finished.Sub(h.started)
	}
	return info
}

func newPending(snap Snapshot, region Region) *Pending {
	return &Pending{
		id:        uuid.New(),
		state:     StateQueued,
		region:    region,
		snap:      snap,
		triggers:  1,
		obstacles: snap.Len(),
		done:      make(chan struct{}),
	}
}

// advanceLocked retires a finished running computation and starts the queued
// one in its place.
func (s *Scheduler) advanceLocked() {
	if s.running != nil && s.running.state >= StateCompleted {
		s.running = nil
	}
	if s.running == nil && s.queued != nil {
		p := s.queued
		s.queued = nil
		s.running = p
		s.launchLocked(p)
	}
}

func (s *Scheduler) launchLocked(p *Pending) {
	p.state = StateRunning
	p.started = time.Now()
	region, snap := p.region, p.snap

	s.log.Debug("field computation started",
		"id", p.id,
		"obstacles", snap,
		"width", region.Width,
		"height", region.Height,
	)

	go func() {
		f := s.compute(region, snap)

		s.mu.Lock()
		p.result = f
		p.finished = time.Now()
		p.state = StateCompleted
		elapsed := p.finished.Sub(p.started)
		s.mu.Unlock()
		close(p.done)

		s.log.Info("field computation finished",
			"id", p.id,
			"obstacles", snap.Len(),
			"cells", region.Cells(),
			"duration_ms", elapsed.Milliseconds(),
		)
	}()
}
