package resilience

import "context"

// Guard combines the breaker and retry policy for one source.
type Guard struct {
	Source  string
	Breaker *Breaker
	Backoff Backoff
}

// NewGuard returns the guard for source, taking its breaker from reg.
func NewGuard(reg *Breakers, source string, b Backoff) *Guard {
	return &Guard{Source: source, Breaker: reg.For(source), Backoff: b}
}

// Run calls fn with retry inside the breaker. An exhausted retry counts as a
// single breaker failure.
func Run[T any](ctx context.Context, g *Guard, fn func(context.Context) (T, error)) (T, error) {
	return Call(ctx, g.Breaker, func(ctx context.Context) (T, error) {
		return Retry(ctx, g.Source, g.Backoff, fn)
	})
}
