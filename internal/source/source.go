// Package source adapts the wire clients in pkg/ to model records. Every
// adapter runs its calls through a resilience guard and reports missing
// configuration as ErrUnavailable and empty payloads as ErrEmpty.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/resilience"
)

// Sentinel errors. Compare with errors.Is.
var (
	ErrUnavailable = eris.New("source unavailable")
	ErrEmpty       = eris.New("source returned no usable data")
	ErrTimeout     = eris.New("summarizer timed out")
)

// Source names, used for breakers, logs and metrics.
const (
	NamePlaces     = "google"
	NameReviews    = "yelp"
	NameCensus     = "census"
	NameTrends     = "trends"
	NameSummarizer = "summarizer"
)

// Places searches for businesses near a location.
type Places interface {
	Search(ctx context.Context, query, location string) ([]model.PlaceRecord, error)
}

// Reviews searches a review aggregator and returns businesses with review
// excerpts.
type Reviews interface {
	Search(ctx context.Context, term, location string) ([]model.ReviewRecord, error)
}

// Census returns demographics for a district.
type Census interface {
	District(ctx context.Context, district string) (*model.CensusRecord, error)
}

// Trends returns relative search interest for keywords.
type Trends interface {
	Interest(ctx context.Context, keywords []string, geo, district string) ([]model.TrendItem, error)
}

// Summarizer turns a prompt into free text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Set bundles one adapter per source.
type Set struct {
	Places     Places
	Reviews    Reviews
	Census     Census
	Trends     Trends
	Summarizer Summarizer
}

func unavailable(name string) error {
	return eris.Wrapf(ErrUnavailable, "source: %s not configured", name)
}

func empty(name string) error {
	return eris.Wrapf(ErrEmpty, "source: %s", name)
}

// guarded runs fn through g, or directly when g is nil.
func guarded[T any](ctx context.Context, g *resilience.Guard, fn func(context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	return resilience.Run(ctx, g, fn)
}
