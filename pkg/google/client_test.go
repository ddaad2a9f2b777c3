package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizlens/internal/resilience"
)

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.priceLevel")

		var body TextSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "restaurant in Brickell", body.TextQuery)
		assert.Equal(t, defaultLimit, body.MaxResultCount)
		assert.Equal(t, "it", body.LanguageCode)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"places":[{
			"id":"ChIJ-1",
			"displayName":{"text":"Joe's Pizza"},
			"types":["pizza_restaurant","restaurant","food"],
			"formattedAddress":"1 Brickell Ave",
			"rating":4.5,
			"userRatingCount":127,
			"priceLevel":"PRICE_LEVEL_MODERATE"
		},{"id":"ChIJ-2","displayName":{"text":"No Stats"}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithLanguage("it"))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "restaurant in Brickell"})

	require.NoError(t, err)
	require.Len(t, resp.Places, 2)

	p := resp.Places[0]
	assert.Equal(t, "ChIJ-1", p.ID)
	assert.Equal(t, "Joe's Pizza", p.DisplayName.Text)
	assert.Equal(t, []string{"pizza_restaurant", "restaurant", "food"}, p.Types)
	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.5, *p.Rating, 0.001)
	require.NotNil(t, p.UserRatingCount)
	assert.Equal(t, 127, *p.UserRatingCount)
	require.NotNil(t, p.PriceTier())
	assert.Equal(t, 2, *p.PriceTier())

	assert.Nil(t, resp.Places[1].Rating)
	assert.Nil(t, resp.Places[1].UserRatingCount)
	assert.Nil(t, resp.Places[1].PriceTier())
}

func TestTextSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "nothing"})

	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limit exceeded"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "test query"})

	require.Error(t, err)
	assert.Nil(t, resp)

	var se *resilience.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
	assert.True(t, resilience.IsTransient(err))
}

func TestTextSearch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google: unmarshal response")
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(ctx, TextSearchRequest{TextQuery: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
}
