// Package operation tracks long-running robot commands.
//
// A command that outlives its HTTP request (walking presets, animations,
// sequences) is registered here, runs on its own goroutine, and stays
// observable through polling until the retention window evicts it.
package operation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davesnowdon/go-nao-bridge/internal/log"
)

// ErrNotFound is returned for unknown or evicted operation ids.
var ErrNotFound = errors.New("operation not found")

// Status is an operation lifecycle state.
type Status string

// Operation lifecycle: pending -> running -> {succeeded, failed}.
// Terminal states never transition further.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Kind names the class of work an operation performs.
type Kind string

const (
	KindWalk      Kind = "walk"
	KindAnimation Kind = "animation"
	KindSequence  Kind = "sequence"
	KindBehaviour Kind = "behaviour"
	KindSpeech    Kind = "speech"
)

// Operation is one tracked asynchronous robot command.
type Operation struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	Description string     `json:"description,omitempty"`
	Progress    string     `json:"progress,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Work is the body of an asynchronous operation. The result it returns is
// stored on the operation record; an error marks the operation failed.
// Calling progress updates the record's progress message mid-flight.
type Work func(ctx context.Context, progress func(string)) (any, error)

// Observer receives a copy of an operation after every status transition.
type Observer func(Operation)

// Tracker assigns ids to long-running commands and exposes their status.
type Tracker struct {
	retention time.Duration
	now       func() time.Time

	mu    sync.Mutex
	ops   map[string]*Operation
	order []string

	observers []Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a tracker. Terminal operations older than retention are
// evicted lazily on the next lookup or listing.
func NewTracker(retention time.Duration) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		retention: retention,
		now:       time.Now,
		ops:       make(map[string]*Operation),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OnUpdate registers an observer for status transitions. Must be called
// before the first Start.
func (t *Tracker) OnUpdate(fn Observer) {
	t.observers = append(t.observers, fn)
}

// Start allocates a unique id, records the operation as pending, and
// schedules work on a background goroutine. It never blocks on the work.
func (t *Tracker) Start(kind Kind, description string, work Work) string {
	id := uuid.NewString()
	now := t.now()
	op := &Operation{
		ID:          id,
		Kind:        kind,
		Status:      StatusPending,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	t.mu.Lock()
	t.ops[id] = op
	t.order = append(t.order, id)
	snapshot := *op
	t.mu.Unlock()
	t.notify(snapshot)

	t.wg.Add(1)
	go t.run(id, work)
	return id
}

func (t *Tracker) run(id string, work Work) {
	defer t.wg.Done()

	t.transition(id, StatusRunning, nil, nil)
	result, err := work(t.ctx, func(msg string) { t.setProgress(id, msg) })
	if err != nil {
		log.Warn("operation failed", "id", id, "err", err)
		t.transition(id, StatusFailed, nil, err)
		return
	}
	t.transition(id, StatusSucceeded, result, nil)
}

// transition moves an operation to a new status. Terminal states are final:
// a transition on an already-terminal operation is ignored.
func (t *Tracker) transition(id string, status Status, result any, opErr error) {
	t.mu.Lock()
	op, ok := t.ops[id]
	if !ok || op.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	op.Status = status
	op.UpdatedAt = t.now()
	if result != nil {
		op.Result = result
	}
	if opErr != nil {
		op.Error = opErr.Error()
	}
	if status.Terminal() {
		completed := op.UpdatedAt
		op.CompletedAt = &completed
	}
	snapshot := *op
	t.mu.Unlock()

	t.notify(snapshot)
}

// setProgress records a progress message on a non-terminal operation.
// Observers see progress updates like any other change.
func (t *Tracker) setProgress(id, msg string) {
	t.mu.Lock()
	op, ok := t.ops[id]
	if !ok || op.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	op.Progress = msg
	op.UpdatedAt = t.now()
	snapshot := *op
	t.mu.Unlock()

	t.notify(snapshot)
}

func (t *Tracker) notify(op Operation) {
	for _, fn := range t.observers {
		fn(op)
	}
}

// Get returns the operation for id, or ErrNotFound for unknown or evicted ids.
func (t *Tracker) Get(id string) (Operation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictLocked()
	op, ok := t.ops[id]
	if !ok {
		return Operation{}, ErrNotFound
	}
	return *op, nil
}

// List returns all retained operations in insertion order.
func (t *Tracker) List() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictLocked()
	out := make([]Operation, 0, len(t.order))
	for _, id := range t.order {
		if op, ok := t.ops[id]; ok {
			out = append(out, *op)
		}
	}
	return out
}

// Active returns all pending or running operations in insertion order.
func (t *Tracker) Active() []Operation {
	all := t.List()
	active := all[:0]
	for _, op := range all {
		if !op.Status.Terminal() {
			active = append(active, op)
		}
	}
	return active
}

// evictLocked drops terminal operations older than the retention window.
// Caller must hold t.mu.
func (t *Tracker) evictLocked() {
	if t.retention <= 0 {
		return
	}
	cutoff := t.now().Add(-t.retention)
	kept := t.order[:0]
	for _, id := range t.order {
		op, ok := t.ops[id]
		if !ok {
			continue
		}
		if op.Status.Terminal() && op.CompletedAt != nil && op.CompletedAt.Before(cutoff) {
			delete(t.ops, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

// Close stops accepting cancellable work and waits for in-flight operations
// to reach a terminal state.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}
