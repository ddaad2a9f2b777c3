// Package yelp is a small client for the Yelp Fusion business search and
// review endpoints.
package yelp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizlens/internal/resilience"
)

const (
	defaultBaseURL = "https://api.yelp.com/v3"
	defaultLimit   = 20
)

// Client performs Yelp Fusion API operations.
type Client interface {
	Search(ctx context.Context, term, location string) (*SearchResponse, error)
	Reviews(ctx context.Context, businessID string) (*ReviewsResponse, error)
}

// SearchResponse is the response from GET /businesses/search.
type SearchResponse struct {
	Total      int        `json:"total"`
	Businesses []Business `json:"businesses"`
}

// Business is a search hit.
type Business struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Rating      *float64   `json:"rating,omitempty"`
	ReviewCount *int       `json:"review_count,omitempty"`
	Price       string     `json:"price,omitempty"`
	Categories  []Category `json:"categories,omitempty"`
	Location    Location   `json:"location"`
}

// Category is a Yelp category tag.
type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// Location holds the business address.
type Location struct {
	Address1       string   `json:"address1"`
	City           string   `json:"city"`
	DisplayAddress []string `json:"display_address"`
}

// ReviewsResponse is the response from GET /businesses/{id}/reviews.
type ReviewsResponse struct {
	Total   int      `json:"total"`
	Reviews []Review `json:"reviews"`
}

// Review is a review excerpt.
type Review struct {
	ID     string `json:"id"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Yelp Fusion client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, term, location string) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("location", location)
	q.Set("limit", strconv.Itoa(defaultLimit))

	var out SearchResponse
	if err := c.get(ctx, "/businesses/search?"+q.Encode(), &out); err != nil {
		return nil, eris.Wrap(err, "yelp: search")
	}
	return &out, nil
}

func (c *httpClient) Reviews(ctx context.Context, businessID string) (*ReviewsResponse, error) {
	var out ReviewsResponse
	if err := c.get(ctx, "/businesses/"+url.PathEscape(businessID)+"/reviews", &out); err != nil {
		return nil, eris.Wrapf(err, "yelp: reviews %s", businessID)
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return &resilience.StatusError{Source: "yelp", Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
