// Package fusion merges the places and review sources into one competitor
// list.
package fusion

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/sells-group/bizlens/internal/model"
)

const defaultPriceLevel = "$$"

// maxStrengths caps the strengths attached to one competitor.
const maxStrengths = 3

// genericTags are place category tags too broad to describe a business.
var genericTags = map[string]bool{
	"point_of_interest": true,
	"establishment":     true,
	"food":              true,
	"store":             true,
}

// fold case-folds s. Casers are stateful, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Merge fuses primary (places) records with secondary (review) records.
// Output order follows primary. A secondary record may match more than one
// primary record.
func Merge(primary []model.PlaceRecord, secondary []model.ReviewRecord, searchTerm string) []model.Competitor {
	out := make([]model.Competitor, 0, len(primary))
	for i, p := range primary {
		match := findMatch(p.Name, secondary)
		out = append(out, build(i, p, match, searchTerm))
	}
	return out
}

func build(idx int, p model.PlaceRecord, match *model.ReviewRecord, searchTerm string) model.Competitor {
	rating, reviewCount := 0.0, 0
	switch {
	case p.Rating != nil:
		rating = *p.Rating
	case match != nil && match.Rating != nil:
		rating = *match.Rating
	}
	switch {
	case p.UserRatingsTotal != nil:
		reviewCount = *p.UserRatingsTotal
	case match != nil && match.ReviewCount != nil:
		reviewCount = *match.ReviewCount
	}
	rating = clamp(rating, 0, 5)
	if reviewCount < 0 {
		reviewCount = 0
	}

	var reviews []model.Review
	if match != nil {
		reviews = match.Reviews
	}

	id := p.ID
	if id == "" {
		id = fmt.Sprintf("place-%d", idx)
	}

	location := p.Address
	if location == "" && match != nil {
		location = match.Location
	}

	return model.Competitor{
		ID:              id,
		Name:            p.Name,
		Type:            competitorType(p.Types, searchTerm),
		Location:        location,
		Rating:          rating,
		ReviewCount:     reviewCount,
		PriceLevel:      priceLevel(p.PriceLevel, match),
		Sentiments:      sentiments(reviews, rating),
		Strengths:       strengths(p.Types, match),
		ReviewHighlight: highlight(reviews),
		SourceMatched:   match != nil,
	}
}

// findMatch returns the first secondary record whose name shares a first
// token with name, compared case-insensitively in both directions.
func findMatch(name string, secondary []model.ReviewRecord) *model.ReviewRecord {
	pName := fold(name)
	pToken := firstToken(pName)
	if pToken == "" {
		return nil
	}
	for i := range secondary {
		sName := fold(secondary[i].Name)
		sToken := firstToken(sName)
		if sToken == "" {
			continue
		}
		if strings.Contains(sName, pToken) || strings.Contains(pName, sToken) {
			return &secondary[i]
		}
	}
	return nil
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Sentiments computes a sentiment split from reviews, or from rating bands
// when there are no reviews. The result always sums to 100.
func Sentiments(reviews []model.Review, rating float64) model.Sentiments {
	return sentiments(reviews, rating)
}

func sentiments(reviews []model.Review, rating float64) model.Sentiments {
	if len(reviews) == 0 {
		return ratingBand(rating)
	}

	var pos, neu, neg int
	for _, r := range reviews {
		switch {
		case r.Rating >= 4:
			pos++
		case r.Rating == 3:
			neu++
		default:
			neg++
		}
	}
	total := float64(len(reviews))
	s := model.Sentiments{
		Positive: int(math.Round(100 * float64(pos) / total)),
		Neutral:  int(math.Round(100 * float64(neu) / total)),
		Negative: int(math.Round(100 * float64(neg) / total)),
	}
	// Rounding residue goes to positive. Only when positive is already zero
	// and the residue is negative (two halves rounded up) does it come out of
	// the larger of the other two.
	s.Positive += 100 - s.Total()
	if s.Positive < 0 {
		deficit := -s.Positive
		s.Positive = 0
		if s.Neutral >= s.Negative {
			s.Neutral -= deficit
		} else {
			s.Negative -= deficit
		}
	}
	return s
}

func ratingBand(rating float64) model.Sentiments {
	switch {
	case rating >= 4.5:
		return model.Sentiments{Positive: 75, Neutral: 20, Negative: 5}
	case rating >= 4.0:
		return model.Sentiments{Positive: 65, Neutral: 25, Negative: 10}
	case rating >= 3.5:
		return model.Sentiments{Positive: 55, Neutral: 30, Negative: 15}
	default:
		return model.Sentiments{Positive: 40, Neutral: 35, Negative: 25}
	}
}

func highlight(reviews []model.Review) *string {
	for _, r := range reviews {
		if r.Rating >= 4 {
			text := r.Text
			return &text
		}
	}
	return nil
}

func competitorType(types []string, searchTerm string) string {
	if len(types) > 0 && types[0] != "" {
		return Humanize(types[0])
	}
	return searchTerm
}

// Humanize turns a category tag like "italian_restaurant" into
// "Italian restaurant".
func Humanize(tag string) string {
	s := strings.ReplaceAll(tag, "_", " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func priceLevel(level *int, match *model.ReviewRecord) string {
	if level != nil && *level > 0 {
		return strings.Repeat("$", min(*level, 4))
	}
	if match != nil && match.Price != "" {
		return match.Price
	}
	return defaultPriceLevel
}

func strengths(types []string, match *model.ReviewRecord) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		k := fold(s)
		if s == "" || seen[k] || len(out) >= maxStrengths {
			return
		}
		seen[k] = true
		out = append(out, s)
	}
	for _, t := range types {
		if !genericTags[t] {
			add(Humanize(t))
		}
	}
	if match != nil {
		for _, c := range match.Categories {
			add(c)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
