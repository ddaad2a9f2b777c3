package yelp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizlens/internal/resilience"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "pizza", r.URL.Query().Get("term"))
		assert.Equal(t, "Brickell, Miami", r.URL.Query().Get("location"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`{"total":1,"businesses":[{
			"id":"joes-pizza-miami",
			"name":"Joe's Pizza",
			"rating":4.0,
			"review_count":88,
			"price":"$$",
			"categories":[{"alias":"pizza","title":"Pizza"}],
			"location":{"address1":"1 Main","city":"Miami","display_address":["1 Main","Miami, FL"]}
		}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(rate.Inf, 1))
	resp, err := c.Search(context.Background(), "pizza", "Brickell, Miami")
	require.NoError(t, err)
	require.Len(t, resp.Businesses, 1)

	b := resp.Businesses[0]
	assert.Equal(t, "joes-pizza-miami", b.ID)
	require.NotNil(t, b.Rating)
	assert.InDelta(t, 4.0, *b.Rating, 0.001)
	require.NotNil(t, b.ReviewCount)
	assert.Equal(t, 88, *b.ReviewCount)
	assert.Equal(t, "Pizza", b.Categories[0].Title)
	assert.Equal(t, []string{"1 Main", "Miami, FL"}, b.Location.DisplayAddress)
}

func TestReviews_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/joes pizza/reviews", r.URL.Path)
		_, _ = w.Write([]byte(`{"total":2,"reviews":[{"id":"r1","rating":5,"text":"great"},{"id":"r2","rating":1,"text":"bad"}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	resp, err := c.Reviews(context.Background(), "joes pizza")
	require.NoError(t, err)
	require.Len(t, resp.Reviews, 2)
	assert.Equal(t, 5, resp.Reviews[0].Rating)
	assert.Equal(t, "great", resp.Reviews[0].Text)
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"TOKEN_INVALID"}}`))
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "pizza", "Miami")
	require.Error(t, err)

	var se *resilience.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.False(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "yelp: search")
}

func TestSearch_RateLimitWaitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(rate.Every(1e12), 1))
	_, err := c.Search(context.Background(), "a", "b")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Search(ctx, "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}
