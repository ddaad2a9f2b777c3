package dashboard

import (
	"context"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/bizlens/internal/fallback"
	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/source"
	"github.com/sells-group/bizlens/internal/state"
)

// maxCategories caps the categories derived from trends.
const maxCategories = 4

// trendKeywords puts the search term ahead of the template keywords,
// without duplicates.
func trendKeywords(p model.Params, template []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, kw := range append([]string{searchTerm(p)}, template...) {
		k := cases.Fold().String(kw)
		if kw == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, kw)
	}
	return out
}

func (s *Service) collectTrends(ctx context.Context, f *fetch) ([]model.TrendItem, error) {
	p := f.params
	keywords := trendKeywords(p, s.fallback.Keywords(p.BusinessType, p.CuisineType))
	return s.sources.Trends.Interest(ctx, keywords, "", p.District)
}

// CategoriesFromTrends derives up to four categories from trend items. Each
// growth is the item's deviation from the mean interest, in percent.
func CategoriesFromTrends(items []model.TrendItem, color func(i int) string) []model.Category {
	if len(items) == 0 {
		return nil
	}
	var sum float64
	for _, it := range items {
		sum += it.Value
	}
	mean := sum / float64(len(items))

	title := cases.Title(language.Und)
	n := min(maxCategories, len(items))
	out := make([]model.Category, 0, n)
	for i, it := range items[:n] {
		growth := 0
		if mean > 0 {
			growth = int(math.Round((it.Value - mean) / mean * 100))
		}
		out = append(out, model.Category{
			Name:   title.String(it.Label),
			Growth: fallback.FormatGrowth(growth),
			Color:  color(i),
		})
	}
	return out
}

func (s *Service) trends(ctx context.Context, f *fetch) *result {
	items, err := s.collectTrends(ctx, f)
	if !f.current("fetch") {
		return nil
	}

	p := f.params
	prov := model.ProvenanceLive
	var cats []model.Category
	if err != nil {
		f.fellBack(source.NameTrends, err)
		items = s.fallback.Trends(p.BusinessType, p.District)
		cats = s.fallback.Categories(p.BusinessType)
		prov = model.ProvenanceSynthetic
	} else {
		cats = CategoriesFromTrends(items, s.fallback.Color)
	}
	if !f.current("categories") {
		return nil
	}

	return &result{
		provenance: prov,
		apply: func(st *state.Store) {
			st.SetTrends(items, cats, prov)
		},
		notice: func(ctx context.Context) {
			if prov == model.ProvenanceSynthetic {
				s.noticeFallback(ctx, model.OpTrends, "sui trend di ricerca")
				return
			}
			s.noticeSuccess(ctx, model.OpTrends, p, "Trend aggiornati",
				"Interesse di ricerca aggiornato per "+placeLabel(p))
		},
	}
}
