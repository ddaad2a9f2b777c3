// Package coordinator deduplicates overlapping fetches of one logical
// operation and tells callers whether their result is still the one to keep.
package coordinator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/bizlens/internal/model"
)

// Generation identifies one fetch attempt. Zero is never minted.
type Generation uint64

// SkipReason explains why Begin declined to start a fetch.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipDuplicate SkipReason = "duplicate_key"
	SkipInFlight  SkipReason = "in_flight"
)

// Status is a read-only view of an operation.
type Status struct {
	Operation    model.Operation  `json:"operation"`
	CommittedKey model.RequestKey `json:"committed_key"`
	HasCommitted bool             `json:"has_committed"`
	InFlight     bool             `json:"in_flight"`
	Current      Generation       `json:"current_generation"`
}

// Operation is the request state machine of one logical fetch. At most one
// generation is current; only the current generation may commit.
type Operation struct {
	name model.Operation

	mu           sync.Mutex
	committedKey model.RequestKey
	hasCommitted bool
	inFlight     bool
	current      Generation
	next         Generation

	// onSkip, when set, observes every skipped Begin. Called without the lock.
	onSkip func(op model.Operation, reason SkipReason)
}

// Option configures an Operation.
type Option func(*Operation)

// WithSkipObserver registers a callback invoked each time Begin skips.
func WithSkipObserver(fn func(op model.Operation, reason SkipReason)) Option {
	return func(o *Operation) {
		o.onSkip = fn
	}
}

// New creates an idle operation.
func New(name model.Operation, opts ...Option) *Operation {
	o := &Operation{name: name}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the operation name.
func (o *Operation) Name() model.Operation {
	return o.name
}

// Begin starts a fetch for key. It returns false when key equals the last
// committed key or another fetch is still in flight; the second trigger is
// dropped, not queued. On success key is committed immediately and is not
// rolled back if the fetch later fails.
func (o *Operation) Begin(key model.RequestKey) (Generation, bool) {
	gen, reason := o.begin(key)
	if reason != SkipNone {
		zap.L().Debug("coordinator: skip",
			zap.String("operation", string(o.name)),
			zap.String("key", key.String()),
			zap.String("reason", string(reason)),
		)
		if o.onSkip != nil {
			o.onSkip(o.name, reason)
		}
		return 0, false
	}
	return gen, true
}

func (o *Operation) begin(key model.RequestKey) (Generation, SkipReason) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.hasCommitted && o.committedKey.Equal(key) {
		return 0, SkipDuplicate
	}
	if o.inFlight {
		return 0, SkipInFlight
	}
	return o.mint(key), SkipNone
}

// Refresh starts a fetch for key unconditionally, superseding whatever is in
// flight. The superseded generation stays unable to commit or unlock.
func (o *Operation) Refresh(key model.RequestKey) Generation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mint(key)
}

func (o *Operation) mint(key model.RequestKey) Generation {
	o.next++
	o.current = o.next
	o.inFlight = true
	o.committedKey = key
	o.hasCommitted = true
	return o.current
}

// IsCurrent reports whether gen is still the current generation.
func (o *Operation) IsCurrent(gen Generation) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen != 0 && gen == o.current
}

// Commit runs fn only if gen is current, holding the operation lock so no
// newer generation can be minted between the check and the write. fn must
// not call back into o.
func (o *Operation) Commit(gen Generation, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == 0 || gen != o.current {
		return false
	}
	fn()
	return true
}

// Complete releases the in-flight lock if gen is current. A stale
// completion is a no-op and returns false.
func (o *Operation) Complete(gen Generation) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == 0 || gen != o.current {
		return false
	}
	o.inFlight = false
	return true
}

// Invalidate forgets the committed key so the next Begin with the same key
// proceeds. It does not touch the in-flight lock.
func (o *Operation) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committedKey = model.RequestKey{}
	o.hasCommitted = false
}

// Snapshot returns the current status.
func (o *Operation) Snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		Operation:    o.name,
		CommittedKey: o.committedKey,
		HasCommitted: o.hasCommitted,
		InFlight:     o.inFlight,
		Current:      o.current,
	}
}

// Set holds one Operation per logical operation. Operations never share a
// lock, so different operations may run concurrently.
type Set struct {
	ops map[model.Operation]*Operation
}

// NewSet creates operations for every name in model.AllOperations.
func NewSet(opts ...Option) *Set {
	s := &Set{ops: make(map[model.Operation]*Operation)}
	for _, name := range model.AllOperations() {
		s.ops[name] = New(name, opts...)
	}
	return s
}

// Get returns the operation for name, or nil if unknown.
func (s *Set) Get(name model.Operation) *Operation {
	return s.ops[name]
}

// Snapshots returns every operation's status in model.AllOperations order.
func (s *Set) Snapshots() []Status {
	out := make([]Status, 0, len(s.ops))
	for _, name := range model.AllOperations() {
		out = append(out, s.ops[name].Snapshot())
	}
	return out
}
