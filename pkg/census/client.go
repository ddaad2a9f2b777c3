// Package census queries the Census Bureau American Community Survey API.
package census

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizlens/internal/resilience"
)

const (
	defaultBaseURL = "https://api.census.gov/data"
	defaultDataset = "2022/acs/acs5"
)

// ACS variables requested for a profile.
const (
	varName          = "NAME"
	varPopulation    = "B01003_001E"
	varMedianAge     = "B01002_001E"
	varMedianIncome  = "B19013_001E"
	varHouseholdSize = "B25010_001E"
	varOwnerOccupied = "B25003_002E"
	varOccupiedUnits = "B25003_001E"
)

var profileVars = []string{
	varName, varPopulation, varMedianAge, varMedianIncome,
	varHouseholdSize, varOwnerOccupied, varOccupiedUnits,
}

// Geography selects the area to query, e.g. For "tract:002402" In
// "state:12 county:086".
type Geography struct {
	For string
	In  string
}

// Profile is the demographic summary of one geography.
type Profile struct {
	Name             string
	Population       int
	MedianAge        float64
	MedianIncome     int
	HouseholdSize    float64
	OwnerOccupiedPct float64
}

// Client performs ACS queries.
type Client interface {
	Profile(ctx context.Context, geo Geography) (*Profile, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithDataset overrides the ACS dataset path.
func WithDataset(ds string) Option {
	return func(c *httpClient) {
		c.dataset = ds
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
	dataset string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an ACS client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		dataset: defaultDataset,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Profile(ctx context.Context, geo Geography) (*Profile, error) {
	if geo.For == "" {
		return nil, eris.New("census: geography is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "census: rate limit wait")
	}

	q := url.Values{}
	q.Set("get", strings.Join(profileVars, ","))
	q.Set("for", geo.For)
	if geo.In != "" {
		q.Set("in", geo.In)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+c.dataset+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "census: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "census: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Source: "census", Status: resp.StatusCode, Body: string(body)}
	}
	return parseProfile(body)
}

// parseProfile reads the ACS table format: a header row followed by data
// rows, every cell a string.
func parseProfile(body []byte) (*Profile, error) {
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "census: unmarshal response")
	}
	if len(rows) < 2 {
		return nil, eris.New("census: no data rows")
	}

	col := make(map[string]string, len(rows[0]))
	for i, h := range rows[0] {
		if i < len(rows[1]) {
			col[h] = rows[1][i]
		}
	}

	p := &Profile{
		Name:          col[varName],
		Population:    atoi(col[varPopulation]),
		MedianAge:     atof(col[varMedianAge]),
		MedianIncome:  atoi(col[varMedianIncome]),
		HouseholdSize: atof(col[varHouseholdSize]),
	}
	if units := atof(col[varOccupiedUnits]); units > 0 {
		p.OwnerOccupiedPct = 100 * atof(col[varOwnerOccupied]) / units
	}
	return p, nil
}

// ACS uses large negative sentinels for missing estimates.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
