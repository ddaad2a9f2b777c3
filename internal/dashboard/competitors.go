package dashboard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bizlens/internal/fusion"
	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/source"
	"github.com/sells-group/bizlens/internal/state"
)

// searchTerm is the business type, prefixed by the cuisine when set.
func searchTerm(p model.Params) string {
	term := p.BusinessType
	if p.CuisineType != "" {
		term = strings.TrimSpace(p.CuisineType + " " + term)
	}
	return term
}

// searchLocation is the address and district, whichever are set.
func searchLocation(p model.Params) string {
	switch {
	case p.Address != "" && p.District != "":
		return p.Address + ", " + p.District
	case p.Address != "":
		return p.Address
	}
	return p.District
}

// collectCompetitors queries places and reviews in parallel and fuses them.
// Only a places failure fails the call; missing reviews leave the records
// unmatched.
func (s *Service) collectCompetitors(ctx context.Context, f *fetch) ([]model.Competitor, model.Provenance, error) {
	term, loc := searchTerm(f.params), searchLocation(f.params)

	var places []model.PlaceRecord
	var reviews []model.ReviewRecord
	var placesErr, reviewsErr error

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		places, placesErr = s.sources.Places.Search(gCtx, term, loc)
		return nil
	})
	g.Go(func() error {
		reviews, reviewsErr = s.sources.Reviews.Search(gCtx, term, loc)
		return nil
	})
	_ = g.Wait()

	if placesErr != nil {
		return nil, model.ProvenanceNone, placesErr
	}
	prov := model.ProvenanceFused
	if reviewsErr != nil {
		f.log.Debug("dashboard: reviews unavailable, places only",
			zap.String("source", source.NameReviews),
			zap.Error(reviewsErr),
		)
		prov = model.ProvenanceLive
	}
	return fusion.Merge(places, reviews, term), prov, nil
}

func (s *Service) competitors(ctx context.Context, f *fetch) *result {
	list, prov, err := s.collectCompetitors(ctx, f)
	if !f.current("fetch") {
		return nil
	}

	p := f.params
	if err != nil {
		f.fellBack(source.NamePlaces, err)
		list = s.fallback.Competitors(p.BusinessType, p.District, p.CuisineType)
		prov = model.ProvenanceSynthetic
	}
	if !f.current("merge") {
		return nil
	}

	return &result{
		provenance: prov,
		apply: func(st *state.Store) {
			st.SetCompetitors(list, prov)
		},
		notice: func(ctx context.Context) {
			if prov == model.ProvenanceSynthetic {
				s.noticeFallback(ctx, model.OpCompetitors, "sui concorrenti")
				return
			}
			s.noticeSuccess(ctx, model.OpCompetitors, p, "Concorrenti aggiornati",
				fmt.Sprintf("Trovati %d concorrenti per %s", len(list), placeLabel(p)))
		},
	}
}
