package jobs

import (
	"sync"
	"time"
)

// State describes where a job is in its lifecycle.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is a point-in-time view of a tracked job.
type Status struct {
	ID         string
	Type       string
	State      State
	Attempt    int
	Result     interface{}
	Err        error
	EnqueuedAt time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Tracker keeps job statuses in memory. Finished jobs are dropped once older than the TTL.
type Tracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*Status
}

// NewTracker builds a tracker retaining finished jobs for ttl.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{ttl: ttl, now: func() time.Time { return time.Now().UTC() }, items: make(map[string]*Status)}
}

// Get returns a copy of the job status.
func (t *Tracker) Get(id string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	st, ok := t.items[id]
	if !ok {
		return Status{}, false
	}
	return *st, true
}

// Len reports how many jobs are tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	return len(t.items)
}

func (t *Tracker) queued(job Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	st, ok := t.items[job.ID]
	if !ok {
		st = &Status{ID: job.ID, Type: job.Type, EnqueuedAt: job.Enqueued}
		t.items[job.ID] = st
	}
	st.State = StateQueued
	st.Attempt = job.Attempt
}

func (t *Tracker) running(job Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.items[job.ID]
	if !ok {
		st = &Status{ID: job.ID, Type: job.Type, EnqueuedAt: job.Enqueued}
		t.items[job.ID] = st
	}
	now := t.now()
	st.State = StateRunning
	st.Attempt = job.Attempt
	st.StartedAt = &now
}

func (t *Tracker) finish(id string, state State, result interface{}, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.items[id]
	if !ok {
		return
	}
	now := t.now()
	st.State = state
	st.Result = result
	st.Err = err
	st.FinishedAt = &now
}

func (t *Tracker) pruneLocked() {
	cutoff := t.now().Add(-t.ttl)
	for id, st := range t.items {
		if st.FinishedAt != nil && st.FinishedAt.Before(cutoff) {
			delete(t.items, id)
		}
	}
}
