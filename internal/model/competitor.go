package model

// Sentiments splits review sentiment into percentages that sum to 100.
type Sentiments struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Total returns the sum of the three components.
func (s Sentiments) Total() int {
	return s.Positive + s.Neutral + s.Negative
}

// Competitor is a normalized business competing in the analyzed district.
type Competitor struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Location        string     `json:"location"`
	Rating          float64    `json:"rating"`
	ReviewCount     int        `json:"review_count"`
	PriceLevel      string     `json:"price_level"`
	Sentiments      Sentiments `json:"sentiments"`
	Strengths       []string   `json:"strengths,omitempty"`
	ReviewHighlight *string    `json:"review_highlight"`
	SourceMatched   bool       `json:"source_matched"`
}

// TrendItem is one search-interest data point, Value in [0,100].
type TrendItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Category is a business category with a display growth indicator.
type Category struct {
	Name   string `json:"name"`
	Growth string `json:"growth"`
	Color  string `json:"color"`
}

// PlaceRecord is a competitor as returned by the places source. Nil numeric
// fields were absent from the payload.
type PlaceRecord struct {
	ID               string   `json:"place_id"`
	Name             string   `json:"name"`
	Types            []string `json:"types,omitempty"`
	Address          string   `json:"address,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	PriceLevel       *int     `json:"price_level,omitempty"`
}

// Review is a single review excerpt.
type Review struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// ReviewRecord is a business as returned by the review source.
type ReviewRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	Price       string   `json:"price,omitempty"`
	Location    string   `json:"location,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Reviews     []Review `json:"reviews,omitempty"`
}

// CensusRecord holds demographic figures for a district.
type CensusRecord struct {
	District         string  `json:"district"`
	Population       int     `json:"population"`
	MedianAge        float64 `json:"median_age"`
	MedianIncome     int     `json:"median_income"`
	HouseholdSize    float64 `json:"household_size"`
	OwnerOccupiedPct float64 `json:"owner_occupied_pct"`
}
