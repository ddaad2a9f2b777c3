// Package dashboard runs the coordinated fetches that fill the shared state:
// competitors, search trends and the full business analysis.
package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bizlens/internal/coordinator"
	"github.com/sells-group/bizlens/internal/fallback"
	"github.com/sells-group/bizlens/internal/metrics"
	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/notify"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/internal/source"
	"github.com/sells-group/bizlens/internal/state"
)

// Outcome reports what one fetch trigger did.
type Outcome struct {
	Operation  model.Operation        `json:"operation"`
	Generation coordinator.Generation `json:"generation,omitempty"`
	Skipped    bool                   `json:"skipped"`
	Stale      bool                   `json:"stale"`
	Provenance model.Provenance       `json:"provenance,omitempty"`
}

// Committed reports whether the fetch wrote to state.
func (o Outcome) Committed() bool {
	return !o.Skipped && !o.Stale
}

// ParamChange signals that parameters changed outside the API, e.g. from
// another client. Empty Operations means every operation.
type ParamChange struct {
	Params     model.Params
	Operations []model.Operation
}

// Status is the read-only view served by the status endpoint.
type Status struct {
	Operations []coordinator.Status        `json:"operations"`
	Breakers   map[string]resilience.State `json:"breakers"`
}

// Service owns the operations and writes their results to the store.
type Service struct {
	sources  source.Set
	ops      *coordinator.Set
	store    *state.Store
	notifier *notify.Throttle
	fallback *fallback.Generator
	breakers *resilience.Breakers

	mu     sync.Mutex
	latest map[model.Operation]model.Params

	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithOperations replaces the default coordinator set.
func WithOperations(ops *coordinator.Set) Option {
	return func(s *Service) {
		s.ops = ops
	}
}

// WithStore replaces the default empty store.
func WithStore(st *state.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithNotifier sets the notification throttle. Without one, notifications
// are logged only.
func WithNotifier(n *notify.Throttle) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithBreakers exposes breaker states in Status.
func WithBreakers(b *resilience.Breakers) Option {
	return func(s *Service) {
		s.breakers = b
	}
}

// New creates a Service over sources, falling back to gen.
func New(sources source.Set, gen *fallback.Generator, opts ...Option) *Service {
	s := &Service{sources: sources, fallback: gen, latest: map[model.Operation]model.Params{}}
	for _, o := range opts {
		o(s)
	}
	if s.ops == nil {
		s.ops = coordinator.NewSet(coordinator.WithSkipObserver(metrics.ObserveSkip))
	}
	if s.store == nil {
		s.store = state.New()
	}
	if s.notifier == nil {
		s.notifier = notify.New(notify.NewMemoryRecorder(), notify.LogSink{})
	}
	return s
}

// Store returns the shared state.
func (s *Service) Store() *state.Store {
	return s.store
}

// Fetch triggers op for p through the coordinator's dedupe path.
func (s *Service) Fetch(ctx context.Context, op model.Operation, p model.Params) Outcome {
	s.remember(op, p)
	return s.trigger(ctx, op, p, false)
}

// Refresh triggers op for p unconditionally, superseding any fetch in
// flight.
func (s *Service) Refresh(ctx context.Context, op model.Operation, p model.Params) Outcome {
	s.remember(op, p)
	return s.trigger(ctx, op, p, true)
}

// FetchCompetitors triggers the competitors operation.
func (s *Service) FetchCompetitors(ctx context.Context, p model.Params) Outcome {
	return s.Fetch(ctx, model.OpCompetitors, p)
}

// FetchTrends triggers the trends operation.
func (s *Service) FetchTrends(ctx context.Context, p model.Params) Outcome {
	return s.Fetch(ctx, model.OpTrends, p)
}

// AnalyzeBusiness triggers the full analysis operation.
func (s *Service) AnalyzeBusiness(ctx context.Context, p model.Params) Outcome {
	return s.Fetch(ctx, model.OpAnalysis, p)
}

// Invalidate forgets the committed key of op so the next Fetch with the
// same parameters runs.
func (s *Service) Invalidate(op model.Operation) {
	if o := s.ops.Get(op); o != nil {
		o.Invalidate()
	}
}

// Status returns coordinator and breaker state.
func (s *Service) Status() Status {
	st := Status{Operations: s.ops.Snapshots(), Breakers: map[string]resilience.State{}}
	if s.breakers != nil {
		st.Breakers = s.breakers.States()
	}
	return st
}

// Submit triggers ops (every operation when empty) for p in the background
// through the dedupe path. A change dropped because a fetch was in flight is
// fetched once that fetch completes.
func (s *Service) Submit(ctx context.Context, p model.Params, ops ...model.Operation) {
	if len(ops) == 0 {
		ops = model.AllOperations()
	}
	for _, op := range ops {
		s.remember(op, p)
		s.wg.Go(func() {
			s.trigger(ctx, op, p, false)
		})
	}
}

// remember records p as the latest params requested for op.
func (s *Service) remember(op model.Operation, p model.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[op] = p
}

func (s *Service) latestParams(op model.Operation) (model.Params, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.latest[op]
	return p, ok
}

// trigger runs one fetch. When it did not skip and newer params arrived
// while it was in flight, a follow-up fetch for them starts in the
// background.
func (s *Service) trigger(ctx context.Context, op model.Operation, p model.Params, refresh bool) Outcome {
	out := s.run(ctx, op, p, refresh)
	if !out.Skipped && s.behind(op) {
		s.wg.Go(func() {
			s.follow(ctx, op)
		})
	}
	return out
}

// behind reports whether the latest params for op differ from its
// committed key.
func (s *Service) behind(op model.Operation) bool {
	p, ok := s.latestParams(op)
	o := s.ops.Get(op)
	if !ok || o == nil {
		return false
	}
	st := o.Snapshot()
	return !st.HasCommitted || !st.CommittedKey.Equal(model.NewRequestKey(p))
}

// follow fetches the latest params for op until a fetch is skipped. A
// duplicate skip means they are committed; an in-flight skip leaves the
// re-check to the fetch holding the lock, which runs behind after its
// Complete.
func (s *Service) follow(ctx context.Context, op model.Operation) {
	for ctx.Err() == nil {
		p, ok := s.latestParams(op)
		if !ok {
			return
		}
		if out := s.run(ctx, op, p, false); out.Skipped {
			return
		}
	}
}

// Listen consumes parameter changes until ctx ends or changes closes, then
// waits for the fetches it started.
func (s *Service) Listen(ctx context.Context, changes <-chan ParamChange) error {
	defer s.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			s.Submit(ctx, c.Params, c.Operations...)
		}
	}
}

// Wait blocks until every background fetch has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// fetchFunc does the work of one generation. It checks currency after every
// await and returns the state write to run on commit, or nil when the
// generation went stale.
type fetchFunc func(ctx context.Context, f *fetch) *result

// result is the outcome of a generation's work, applied on commit.
type result struct {
	provenance model.Provenance
	apply      func(st *state.Store)
	notice     func(ctx context.Context)
}

// fetch carries one generation through its work.
type fetch struct {
	op     *coordinator.Operation
	gen    coordinator.Generation
	params model.Params
	log    *zap.Logger
}

// current reports whether the generation may still commit, logging a stale
// discard at step when not.
func (f *fetch) current(step string) bool {
	if f.op.IsCurrent(f.gen) {
		return true
	}
	f.log.Debug("dashboard: stale result discarded", zap.String("step", step))
	metrics.StaleDiscards.WithLabelValues(string(f.op.Name())).Inc()
	return false
}

func (s *Service) work(op model.Operation) fetchFunc {
	switch op {
	case model.OpCompetitors:
		return s.competitors
	case model.OpTrends:
		return s.trends
	case model.OpAnalysis:
		return s.analysis
	}
	return nil
}

func (s *Service) run(ctx context.Context, name model.Operation, p model.Params, refresh bool) Outcome {
	out := Outcome{Operation: name}
	o := s.ops.Get(name)
	do := s.work(name)
	if o == nil || do == nil {
		out.Skipped = true
		return out
	}

	key := model.NewRequestKey(p)
	var gen coordinator.Generation
	if refresh {
		gen = o.Refresh(key)
	} else {
		var ok bool
		if gen, ok = o.Begin(key); !ok {
			out.Skipped = true
			return out
		}
	}
	out.Generation = gen
	defer o.Complete(gen)

	start := time.Now()
	f := &fetch{
		op:     o,
		gen:    gen,
		params: p.Display(),
		log: zap.L().With(
			zap.String("operation", string(name)),
			zap.Uint64("generation", uint64(gen)),
			zap.String("key", key.String()),
		),
	}

	if !o.Commit(gen, func() {
		s.store.SetParams(p)
		s.store.SetLoading(name, true)
	}) {
		f.log.Debug("dashboard: stale result discarded", zap.String("step", "begin"))
		metrics.StaleDiscards.WithLabelValues(string(name)).Inc()
		out.Stale = true
		return out
	}

	res := do(ctx, f)
	if res == nil {
		out.Stale = true
		return out
	}

	committed := o.Commit(gen, func() {
		res.apply(s.store)
		s.store.SetLoading(name, false)
	})
	if !committed {
		f.log.Debug("dashboard: stale result discarded", zap.String("step", "commit"))
		metrics.StaleDiscards.WithLabelValues(string(name)).Inc()
		out.Stale = true
		return out
	}

	out.Provenance = res.provenance
	metrics.FetchesCommitted.WithLabelValues(string(name), string(res.provenance)).Inc()
	metrics.FetchDuration.WithLabelValues(string(name)).Observe(time.Since(start).Seconds())
	f.log.Info("dashboard: committed", zap.String("provenance", string(res.provenance)))

	if res.notice != nil {
		res.notice(ctx)
	}
	return out
}

// fellBack records a source failure answered with synthetic data.
func (f *fetch) fellBack(src string, err error) {
	f.log.Warn("dashboard: source failed, using fallback",
		zap.String("source", src),
		zap.Error(err),
	)
	metrics.Fallbacks.WithLabelValues(string(f.op.Name()), src).Inc()
}
