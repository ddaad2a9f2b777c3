package dashboard

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizlens/internal/fallback"
	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/notify"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/internal/source"
	"github.com/sells-group/bizlens/internal/summary"
)

type mockPlaces struct{ mock.Mock }

func (m *mockPlaces) Search(ctx context.Context, query, location string) ([]model.PlaceRecord, error) {
	args := m.Called(ctx, query, location)
	list, _ := args.Get(0).([]model.PlaceRecord)
	return list, args.Error(1)
}

type mockReviews struct{ mock.Mock }

func (m *mockReviews) Search(ctx context.Context, term, location string) ([]model.ReviewRecord, error) {
	args := m.Called(ctx, term, location)
	list, _ := args.Get(0).([]model.ReviewRecord)
	return list, args.Error(1)
}

type mockCensus struct{ mock.Mock }

func (m *mockCensus) District(ctx context.Context, district string) (*model.CensusRecord, error) {
	args := m.Called(ctx, district)
	rec, _ := args.Get(0).(*model.CensusRecord)
	return rec, args.Error(1)
}

type mockTrends struct{ mock.Mock }

func (m *mockTrends) Interest(ctx context.Context, keywords []string, geo, district string) ([]model.TrendItem, error) {
	args := m.Called(ctx, keywords, geo, district)
	list, _ := args.Get(0).([]model.TrendItem)
	return list, args.Error(1)
}

type mockSummarizer struct{ mock.Mock }

func (m *mockSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type fixture struct {
	places     *mockPlaces
	reviews    *mockReviews
	census     *mockCensus
	trends     *mockTrends
	summarizer *mockSummarizer
	feed       *notify.Feed
	svc        *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		places:     &mockPlaces{},
		reviews:    &mockReviews{},
		census:     &mockCensus{},
		trends:     &mockTrends{},
		summarizer: &mockSummarizer{},
		feed:       notify.NewFeed(20),
	}
	gen, err := fallback.New(fallback.WithRand(rand.New(rand.NewPCG(3, 5))))
	require.NoError(t, err)

	sources := source.Set{
		Places:     fx.places,
		Reviews:    fx.reviews,
		Census:     fx.census,
		Trends:     fx.trends,
		Summarizer: fx.summarizer,
	}
	fx.svc = New(sources, gen,
		WithNotifier(notify.New(notify.NewMemoryRecorder(), fx.feed)),
		WithBreakers(resilience.NewBreakers(resilience.BreakerConfig{})),
	)
	return fx
}

// unavailable registers catch-all expectations after the specific ones.
func (fx *fixture) unavailable() {
	down := eris.Wrap(source.ErrUnavailable, "test")
	fx.places.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, down).Maybe()
	fx.reviews.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, down).Maybe()
	fx.census.On("District", mock.Anything, mock.Anything).Return(nil, down).Maybe()
	fx.trends.On("Interest", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, down).Maybe()
	fx.summarizer.On("Summarize", mock.Anything, mock.Anything).Return("", down).Maybe()
}

func ptr[T any](v T) *T { return &v }

var brickell = model.Params{District: "Brickell", BusinessType: "restaurant"}

func TestFetchCompetitors_Fused(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	fx.places.On("Search", mock.Anything, "restaurant", "Brickell").
		Return([]model.PlaceRecord{{ID: "p1", Name: "Joe's Pizza", Rating: ptr(4.2), UserRatingsTotal: ptr(50)}}, nil).Once()
	fx.reviews.On("Search", mock.Anything, "restaurant", "Brickell").
		Return([]model.ReviewRecord{{Name: "Joe's", Reviews: []model.Review{{Rating: 5, Text: "great"}, {Rating: 2, Text: "meh"}}}}, nil).Once()

	out := fx.svc.FetchCompetitors(context.Background(), brickell)
	require.True(t, out.Committed())
	assert.Equal(t, model.ProvenanceFused, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	require.Len(t, snap.Competitors, 1)
	c := snap.Competitors[0]
	assert.Equal(t, "Joe's Pizza", c.Name)
	assert.Equal(t, model.Sentiments{Positive: 50, Neutral: 0, Negative: 50}, c.Sentiments)
	require.NotNil(t, c.ReviewHighlight)
	assert.Equal(t, "great", *c.ReviewHighlight)
	assert.False(t, snap.IsLoading)

	recent := fx.feed.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "success-restaurant-Brickell", recent[0].Key)
}

func TestFetchCompetitors_ReviewsDownStillLive(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	fx.places.On("Search", mock.Anything, "cuban restaurant", "1 SW 8th St, Little Havana").
		Return([]model.PlaceRecord{{ID: "p1", Name: "Versailles", Rating: ptr(4.6)}}, nil).Once()
	fx.unavailable()

	p := model.Params{District: "Little Havana", BusinessType: "restaurant", CuisineType: "cuban", Address: "1 SW 8th St"}
	out := fx.svc.FetchCompetitors(context.Background(), p)
	assert.Equal(t, model.ProvenanceLive, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	require.Len(t, snap.Competitors, 1)
	assert.Equal(t, model.Sentiments{Positive: 75, Neutral: 20, Negative: 5}, snap.Competitors[0].Sentiments)
}

func TestFetchCompetitors_Fallback(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.unavailable()

	out := fx.svc.FetchCompetitors(context.Background(), brickell)
	assert.Equal(t, model.ProvenanceSynthetic, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	require.Len(t, snap.Competitors, fallback.CompetitorCount)
	for _, c := range snap.Competitors {
		assert.Equal(t, 100, c.Sentiments.Total())
		assert.Contains(t, c.Name, "Brickell")
	}
	assert.Equal(t, model.ProvenanceSynthetic, snap.Sources["competitors"])

	recent := fx.feed.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "fallback-competitors", recent[0].Key)
	assert.Equal(t, model.VariantDefault, recent[0].Variant)
}

func TestFetchCompetitors_TwoRapidBeginsOneAdapterCall(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	wynwood := model.Params{District: "Wynwood", BusinessType: "restaurant"}

	fx.places.On("Search", mock.Anything, "restaurant", "Wynwood").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]model.PlaceRecord{{ID: "p1", Name: "Kyu"}}, nil).Once()
	fx.unavailable()

	done := make(chan Outcome, 1)
	go func() { done <- fx.svc.FetchCompetitors(context.Background(), wynwood) }()
	<-started

	second := fx.svc.FetchCompetitors(context.Background(), model.Params{District: " wynwood ", BusinessType: "Restaurant"})
	assert.True(t, second.Skipped)

	snap := fx.svc.Store().Snapshot()
	assert.True(t, snap.IsLoading)
	assert.Equal(t, model.NewRequestKey(wynwood), snap.Key, "skipped triggers leave the key alone")
	close(release)
	first := <-done
	fx.svc.Wait()

	assert.True(t, first.Committed())
	fx.places.AssertNumberOfCalls(t, "Search", 1)
	assert.False(t, fx.svc.Store().Snapshot().IsLoading)
}

func TestSubmit_ChangeDuringFlightIsFetchedAfter(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	wynwood := model.Params{District: "Wynwood", BusinessType: "restaurant"}

	fx.places.On("Search", mock.Anything, "restaurant", "Brickell").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]model.PlaceRecord{{ID: "b1", Name: "Brickell Pizza"}}, nil).Once()
	fx.places.On("Search", mock.Anything, "restaurant", "Wynwood").
		Return([]model.PlaceRecord{{ID: "w1", Name: "Wynwood Tacos"}}, nil).Once()
	fx.unavailable()

	ctx := context.Background()
	fx.svc.Submit(ctx, brickell, model.OpCompetitors)
	<-started

	fx.svc.Submit(ctx, wynwood, model.OpCompetitors)
	assert.Equal(t, model.NewRequestKey(brickell), fx.svc.Store().Snapshot().Key,
		"a dropped trigger does not advertise its key")

	close(release)
	fx.svc.Wait()

	fx.places.AssertCalled(t, "Search", mock.Anything, "restaurant", "Wynwood")
	snap := fx.svc.Store().Snapshot()
	assert.Equal(t, model.NewRequestKey(wynwood), snap.Key)
	assert.Equal(t, "Wynwood", snap.Params.District)
	require.Len(t, snap.Competitors, 1)
	assert.Equal(t, "Wynwood Tacos", snap.Competitors[0].Name)
	assert.False(t, snap.IsLoading)

	st := fx.svc.Status().Operations
	for _, op := range st {
		if op.Operation == model.OpCompetitors {
			assert.Equal(t, snap.Key, op.CommittedKey)
			assert.False(t, op.InFlight)
		}
	}
}

func TestFetch_DroppedTriggerCaughtUpAfterCompletion(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	doral := model.Params{District: "Doral", BusinessType: "gym"}

	fx.places.On("Search", mock.Anything, "gym", "Brickell").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]model.PlaceRecord{{ID: "b1", Name: "Brickell Gym"}}, nil).Once()
	fx.places.On("Search", mock.Anything, "gym", "Doral").
		Return([]model.PlaceRecord{{ID: "d1", Name: "Doral Gym"}}, nil).Once()
	fx.unavailable()

	gym := model.Params{District: "Brickell", BusinessType: "gym"}
	done := make(chan Outcome, 1)
	go func() { done <- fx.svc.FetchCompetitors(context.Background(), gym) }()
	<-started

	assert.True(t, fx.svc.FetchCompetitors(context.Background(), doral).Skipped)
	close(release)
	require.True(t, (<-done).Committed())
	fx.svc.Wait()

	snap := fx.svc.Store().Snapshot()
	assert.Equal(t, model.NewRequestKey(doral), snap.Key)
	require.Len(t, snap.Competitors, 1)
	assert.Equal(t, "Doral Gym", snap.Competitors[0].Name)
}

func TestRefresh_SupersededBeforeStartLeavesLoadingClear(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.unavailable()

	o := fx.svc.ops.Get(model.OpCompetitors)
	stale := o.Refresh(model.NewRequestKey(brickell))

	out := fx.svc.Refresh(context.Background(), model.OpCompetitors, brickell)
	require.True(t, out.Committed())

	assert.False(t, o.Commit(stale, func() { fx.svc.Store().SetLoading(model.OpCompetitors, true) }),
		"a superseded generation cannot write loading")
	assert.False(t, fx.svc.Store().Snapshot().IsLoading)
}

func TestRefresh_SupersededGenerationIsDiscarded(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	wynwood := model.Params{District: "Wynwood", BusinessType: "cafe"}
	doral := model.Params{District: "Doral", BusinessType: "cafe"}

	fx.places.On("Search", mock.Anything, "cafe", "Wynwood").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]model.PlaceRecord{{ID: "old", Name: "Old Cafe"}}, nil).Once()
	fx.places.On("Search", mock.Anything, "cafe", "Doral").
		Return([]model.PlaceRecord{{ID: "new", Name: "New Cafe"}}, nil).Once()
	fx.unavailable()

	done := make(chan Outcome, 1)
	go func() { done <- fx.svc.FetchCompetitors(context.Background(), wynwood) }()
	<-started

	g2 := fx.svc.Refresh(context.Background(), model.OpCompetitors, doral)
	require.True(t, g2.Committed())

	close(release)
	g1 := <-done
	assert.True(t, g1.Stale)
	assert.Less(t, g1.Generation, g2.Generation)

	snap := fx.svc.Store().Snapshot()
	require.Len(t, snap.Competitors, 1)
	assert.Equal(t, "New Cafe", snap.Competitors[0].Name)
	assert.Equal(t, model.NewRequestKey(doral), snap.Key)
	assert.False(t, snap.IsLoading)

	for _, n := range fx.feed.Recent() {
		assert.NotContains(t, n.Key, "Wynwood")
	}
}

func TestInvalidate_AllowsSameKeyAgain(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.unavailable()

	ctx := context.Background()
	require.True(t, fx.svc.FetchCompetitors(ctx, brickell).Committed())
	assert.True(t, fx.svc.FetchCompetitors(ctx, brickell).Skipped)

	fx.svc.Invalidate(model.OpCompetitors)
	assert.True(t, fx.svc.FetchCompetitors(ctx, brickell).Committed())
}

func TestFetchTrends_Live(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	fx.trends.On("Interest", mock.Anything, mock.MatchedBy(func(kw []string) bool {
		return len(kw) > 1 && kw[0] == "restaurant"
	}), "", "Brickell").Return([]model.TrendItem{
		{Label: "restaurant", Value: 80},
		{Label: "ristorante", Value: 40},
	}, nil).Once()

	out := fx.svc.FetchTrends(context.Background(), brickell)
	assert.Equal(t, model.ProvenanceLive, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	require.Len(t, snap.Trends, 2)
	require.Len(t, snap.Categories, 2)
	assert.Equal(t, "Restaurant", snap.Categories[0].Name)
	assert.Equal(t, "+33%", snap.Categories[0].Growth)
	assert.Equal(t, "-33%", snap.Categories[1].Growth)
}

func TestFetchTrends_Fallback(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.unavailable()

	out := fx.svc.FetchTrends(context.Background(), brickell)
	assert.Equal(t, model.ProvenanceSynthetic, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	assert.Len(t, snap.Trends, fallback.TrendCount)
	assert.NotEmpty(t, snap.Categories)
	assert.Equal(t, "fallback-trends", fx.feed.Recent()[0].Key)
}

func TestAnalyzeBusiness_Live(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	fx.census.On("District", mock.Anything, "Brickell").
		Return(&model.CensusRecord{District: "Brickell", Population: 40000}, nil).Once()
	fx.summarizer.On("Summarize", mock.Anything, mock.MatchedBy(func(p string) bool {
		return p != ""
	})).Return(`Some prose {"summary":"ok"} trailing`, nil).Once()
	fx.unavailable()

	p := brickell
	p.Name = "Casa Tua"
	out := fx.svc.AnalyzeBusiness(context.Background(), p)
	assert.Equal(t, model.ProvenanceLive, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	require.NotNil(t, snap.Analysis)
	c := summary.ContextFrom(p)
	want := summary.Defaults(c)
	want.Summary = "ok"
	assert.Equal(t, want, *snap.Analysis)

	prompt := fx.summarizer.Calls[0].Arguments.String(1)
	assert.Contains(t, prompt, "40000")
	assert.Contains(t, prompt, "Casa Tua")
}

func TestAnalyzeBusiness_Timeout(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	fx.summarizer.On("Summarize", mock.Anything, mock.Anything).
		Return("", eris.Wrap(source.ErrTimeout, "source: summarize")).Once()
	fx.unavailable()

	out := fx.svc.AnalyzeBusiness(context.Background(), brickell)
	assert.Equal(t, model.ProvenanceTimeout, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	require.NotNil(t, snap.Analysis)
	assert.Equal(t, summary.TimeoutResult(summary.ContextFrom(brickell)), *snap.Analysis)
	fx.summarizer.AssertNumberOfCalls(t, "Summarize", 1)

	recent := fx.feed.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.KeyTimeout, recent[0].Key)
	assert.Equal(t, model.VariantDestructive, recent[0].Variant)
}

func TestAnalyzeBusiness_SummarizerDown(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.unavailable()

	out := fx.svc.AnalyzeBusiness(context.Background(), brickell)
	assert.Equal(t, model.ProvenanceDefault, out.Provenance)

	snap := fx.svc.Store().Snapshot()
	require.NotNil(t, snap.Analysis)
	assert.True(t, summary.IsComplete(*snap.Analysis))
	assert.Equal(t, "fallback-analysis", fx.feed.Recent()[0].Key)
}

func TestListen_RoutesThroughFetch(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.unavailable()

	changes := make(chan ParamChange, 2)
	changes <- ParamChange{Params: brickell}
	changes <- ParamChange{Params: brickell, Operations: []model.Operation{model.OpCompetitors}}
	close(changes)

	require.NoError(t, fx.svc.Listen(context.Background(), changes))

	snap := fx.svc.Store().Snapshot()
	assert.Len(t, snap.Competitors, fallback.CompetitorCount)
	assert.Len(t, snap.Trends, fallback.TrendCount)
	assert.NotNil(t, snap.Analysis)
	assert.False(t, snap.IsLoading)
}

func TestListen_StopsOnContext(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fx.svc.Listen(ctx, make(chan ParamChange))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatus(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.unavailable()

	fx.svc.FetchTrends(context.Background(), brickell)
	st := fx.svc.Status()
	require.Len(t, st.Operations, 3)
	assert.Equal(t, model.OpTrends, st.Operations[1].Operation)
	assert.True(t, st.Operations[1].HasCommitted)
	assert.False(t, st.Operations[1].InFlight)
	assert.NotNil(t, st.Breakers)
}

func TestFetch_UnknownOperation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	assert.True(t, fx.svc.Fetch(context.Background(), model.Operation("nope"), brickell).Skipped)
}

func TestCategoriesFromTrends(t *testing.T) {
	t.Parallel()

	color := func(i int) string { return []string{"a", "b", "c", "d", "e"}[i] }
	tests := []struct {
		name  string
		items []model.TrendItem
		want  []model.Category
	}{
		{name: "empty", items: nil, want: nil},
		{
			name:  "all zero",
			items: []model.TrendItem{{Label: "x", Value: 0}},
			want:  []model.Category{{Name: "X", Growth: "+0%", Color: "a"}},
		},
		{
			name: "capped at four",
			items: []model.TrendItem{
				{Label: "pizza", Value: 100}, {Label: "pasta", Value: 50}, {Label: "vino", Value: 50},
				{Label: "tiramisù", Value: 0}, {Label: "antipasti", Value: 50},
			},
			want: []model.Category{
				{Name: "Pizza", Growth: "+100%", Color: "a"},
				{Name: "Pasta", Growth: "+0%", Color: "b"},
				{Name: "Vino", Growth: "+0%", Color: "c"},
				{Name: "Tiramisù", Growth: "-100%", Color: "d"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CategoriesFromTrends(tt.items, color))
		})
	}
}

func TestTrendKeywords(t *testing.T) {
	t.Parallel()

	got := trendKeywords(model.Params{BusinessType: "cafe"}, []string{"caffè", "Cafe", "espresso"})
	assert.Equal(t, []string{"cafe", "caffè", "espresso"}, got)

	got = trendKeywords(model.Params{}, []string{"a"})
	assert.Equal(t, []string{"a"}, got)
}
