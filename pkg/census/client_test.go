package census

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestProfile_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2022/acs/acs5", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "tract:002402", q.Get("for"))
		assert.Equal(t, "state:12 county:086", q.Get("in"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Contains(t, q.Get("get"), varMedianIncome)

		_, _ = w.Write([]byte(`[
			["NAME","B01003_001E","B01002_001E","B19013_001E","B25010_001E","B25003_002E","B25003_001E","state","county","tract"],
			["Census Tract 24.02","5821","33.4","48210","2.41","600","2400","12","086","002402"]
		]`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(rate.Inf, 1))
	p, err := c.Profile(context.Background(), Geography{For: "tract:002402", In: "state:12 county:086"})
	require.NoError(t, err)

	assert.Equal(t, "Census Tract 24.02", p.Name)
	assert.Equal(t, 5821, p.Population)
	assert.InDelta(t, 33.4, p.MedianAge, 0.001)
	assert.Equal(t, 48210, p.MedianIncome)
	assert.InDelta(t, 2.41, p.HouseholdSize, 0.001)
	assert.InDelta(t, 25.0, p.OwnerOccupiedPct, 0.001)
}

func TestProfile_MissingEstimates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[["NAME","B01003_001E","B19013_001E","B25003_001E"],["X","100","-666666666","0"]]`))
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithDataset("2021/acs/acs5"))
	p, err := c.Profile(context.Background(), Geography{For: "county:086"})
	require.NoError(t, err)
	assert.Equal(t, 100, p.Population)
	assert.Zero(t, p.MedianIncome)
	assert.Zero(t, p.OwnerOccupiedPct)
}

func TestProfile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "status", status: http.StatusBadRequest, body: "error: unknown variable", want: "Bad Request"},
		{name: "bad json", status: http.StatusOK, body: "<html>", want: "census: unmarshal response"},
		{name: "header only", status: http.StatusOK, body: `[["NAME"]]`, want: "census: no data rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("", WithBaseURL(srv.URL))
			_, err := c.Profile(context.Background(), Geography{For: "county:086"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProfile_RequiresGeography(t *testing.T) {
	_, err := NewClient("").Profile(context.Background(), Geography{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geography is required")
}
