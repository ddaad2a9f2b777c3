// Package trends fetches relative search interest from the SerpApi Google
// Trends engine.
package trends

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizlens/internal/resilience"
)

const (
	defaultBaseURL = "https://serpapi.com"
	// maxQueries is the engine's limit on comma-separated queries.
	maxQueries = 5
)

// Interest is the mean relative interest of one query, 0..100.
type Interest struct {
	Query string
	Value float64
}

// Client performs Google Trends lookups.
type Client interface {
	InterestOverTime(ctx context.Context, queries []string, geo string) ([]Interest, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the client-side request rate.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithTimeframe sets the date range, e.g. "today 12-m".
func WithTimeframe(tf string) Option {
	return func(c *httpClient) {
		c.timeframe = tf
	}
}

type httpClient struct {
	apiKey    string
	baseURL   string
	timeframe string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a Trends client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		timeframe: "today 12-m",
		http:      &http.Client{Timeout: 20 * time.Second},
		limiter:   rate.NewLimiter(1, 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) InterestOverTime(ctx context.Context, queries []string, geo string) ([]Interest, error) {
	if len(queries) == 0 {
		return nil, eris.New("trends: no queries")
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "trends: rate limit wait")
	}

	q := url.Values{}
	q.Set("engine", "google_trends")
	q.Set("data_type", "TIMESERIES")
	q.Set("q", strings.Join(queries, ","))
	q.Set("date", c.timeframe)
	q.Set("api_key", c.apiKey)
	if geo != "" {
		q.Set("geo", geo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "trends: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "trends: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "trends: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Source: "trends", Status: resp.StatusCode, Body: string(body)}
	}
	return parseTimeline(body, queries)
}

// parseTimeline averages extracted_value per query across the timeline.
// Queries absent from the payload are omitted.
func parseTimeline(body []byte, queries []string) ([]Interest, error) {
	if !gjson.ValidBytes(body) {
		return nil, eris.New("trends: invalid json response")
	}
	doc := gjson.ParseBytes(body)
	if msg := doc.Get("error"); msg.Exists() {
		return nil, eris.Errorf("trends: api error: %s", msg.String())
	}

	sums := make(map[string]float64, len(queries))
	counts := make(map[string]int, len(queries))
	doc.Get("interest_over_time.timeline_data").ForEach(func(_, point gjson.Result) bool {
		point.Get("values").ForEach(func(_, v gjson.Result) bool {
			q := v.Get("query").String()
			sums[q] += v.Get("extracted_value").Float()
			counts[q]++
			return true
		})
		return true
	})

	out := make([]Interest, 0, len(queries))
	for _, q := range queries {
		if counts[q] == 0 {
			continue
		}
		out = append(out, Interest{Query: q, Value: sums[q] / float64(counts[q])})
	}
	return out, nil
}
