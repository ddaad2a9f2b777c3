package source

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizlens/internal/config"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/pkg/anthropic"
	"github.com/sells-group/bizlens/pkg/census"
	"github.com/sells-group/bizlens/pkg/google"
	"github.com/sells-group/bizlens/pkg/perplexity"
	"github.com/sells-group/bizlens/pkg/trends"
	"github.com/sells-group/bizlens/pkg/yelp"
)

// BackoffFrom converts the resilience config to a retry policy. Unset
// values keep resilience.DefaultBackoff.
func BackoffFrom(c config.ResilienceConfig) resilience.Backoff {
	b := resilience.DefaultBackoff()
	if c.MaxAttempts > 0 {
		b.Attempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		b.Initial = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		b.Max = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	return b
}

// BreakerConfigFrom converts the resilience config to breaker settings.
func BreakerConfigFrom(c config.ResilienceConfig) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Threshold: c.FailureThreshold,
		Cooldown:  time.Duration(c.ResetTimeoutSecs) * time.Second,
	}
}

func limiter(perSec float64) (rate.Limit, int) {
	return rate.Limit(perSec), max(1, int(perSec))
}

// FromConfig builds every adapter. A source without an API key gets a nil
// client and reports ErrUnavailable, which callers answer with synthetic
// data.
func FromConfig(cfg *config.Config, reg *resilience.Breakers) Set {
	b := BackoffFrom(cfg.Resilience)
	guard := func(name string) *resilience.Guard {
		return resilience.NewGuard(reg, name, b)
	}

	var set Set

	var gc google.Client
	if cfg.Google.Key != "" {
		gc = google.NewClient(cfg.Google.Key,
			google.WithBaseURL(cfg.Google.BaseURL),
			google.WithLanguage(cfg.Google.Language),
		)
	}
	set.Places = NewGooglePlaces(gc, guard(NamePlaces))

	var yc yelp.Client
	if cfg.Yelp.Key != "" {
		r, burst := limiter(cfg.Yelp.RatePerSec)
		yc = yelp.NewClient(cfg.Yelp.Key,
			yelp.WithBaseURL(cfg.Yelp.BaseURL),
			yelp.WithRateLimit(r, burst),
		)
	}
	set.Reviews = NewYelpReviews(yc, guard(NameReviews), cfg.Yelp.ReviewsPerBusiness)

	var cc census.Client
	if cfg.Census.Key != "" {
		cc = census.NewClient(cfg.Census.Key,
			census.WithBaseURL(cfg.Census.BaseURL),
			census.WithDataset(cfg.Census.Dataset),
		)
	}
	districts := make(map[string]census.Geography, len(cfg.Census.Districts))
	for name, geo := range cfg.Census.Districts {
		districts[name] = census.Geography{For: geo.For, In: geo.In}
	}
	set.Census = NewACSCensus(cc, guard(NameCensus), districts,
		census.Geography{For: cfg.Census.Default.For, In: cfg.Census.Default.In})

	var tc trends.Client
	if cfg.Trends.Key != "" {
		r, burst := limiter(cfg.Trends.RatePerSec)
		tc = trends.NewClient(cfg.Trends.Key,
			trends.WithBaseURL(cfg.Trends.BaseURL),
			trends.WithTimeframe(cfg.Trends.Timeframe),
			trends.WithRateLimit(r, burst),
		)
	}
	set.Trends = NewGoogleTrends(tc, guard(NameTrends), cfg.Trends.Geo)

	timeout := cfg.Summarizer.Timeout()
	switch cfg.Summarizer.Provider {
	case config.ProviderAnthropic:
		var ac anthropic.Client
		if cfg.Anthropic.Key != "" {
			ac = anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithModel(cfg.Anthropic.Model))
		}
		set.Summarizer = NewAnthropicSummarizer(ac, guard(NameSummarizer), timeout)
	default:
		var pc perplexity.Client
		if cfg.Perplexity.Key != "" {
			pc = perplexity.NewClient(cfg.Perplexity.Key,
				perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
				perplexity.WithModel(cfg.Perplexity.Model),
			)
		}
		set.Summarizer = NewPerplexitySummarizer(pc, guard(NameSummarizer), timeout)
	}

	zap.L().Info("source: adapters configured",
		zap.Bool("google", gc != nil),
		zap.Bool("yelp", yc != nil),
		zap.Bool("census", cc != nil),
		zap.Bool("trends", tc != nil),
		zap.String("summarizer", cfg.Summarizer.Provider),
	)
	return set
}
