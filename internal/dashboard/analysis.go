package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/source"
	"github.com/sells-group/bizlens/internal/state"
	"github.com/sells-group/bizlens/internal/summary"
)

// collectInputs gathers census, competitor and trend data for the prompt.
// A failed source leaves its part empty.
func (s *Service) collectInputs(ctx context.Context, f *fetch) summary.Inputs {
	var in summary.Inputs

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := s.sources.Census.District(gCtx, f.params.District)
		if err != nil {
			f.log.Debug("dashboard: census unavailable", zap.String("source", source.NameCensus), zap.Error(err))
			return nil
		}
		in.Census = rec
		return nil
	})
	g.Go(func() error {
		list, _, err := s.collectCompetitors(gCtx, f)
		if err != nil {
			f.log.Debug("dashboard: competitors unavailable", zap.String("source", source.NamePlaces), zap.Error(err))
			return nil
		}
		in.Competitors = list
		return nil
	})
	g.Go(func() error {
		items, err := s.collectTrends(gCtx, f)
		if err != nil {
			f.log.Debug("dashboard: trends unavailable", zap.String("source", source.NameTrends), zap.Error(err))
			return nil
		}
		in.Trends = items
		return nil
	})
	_ = g.Wait()

	return in
}

func (s *Service) analysis(ctx context.Context, f *fetch) *result {
	c := summary.ContextFrom(f.params)

	in := s.collectInputs(ctx, f)
	if !f.current("inputs") {
		return nil
	}

	raw, err := s.sources.Summarizer.Summarize(ctx, summary.BuildPrompt(c, in))
	if !f.current("summarize") {
		return nil
	}

	var res model.AnalysisResult
	var prov model.Provenance
	switch {
	case errors.Is(err, source.ErrTimeout):
		f.log.Warn("dashboard: summarizer timed out", zap.String("source", source.NameSummarizer))
		res = summary.TimeoutResult(c)
		prov = model.ProvenanceTimeout
	case err != nil:
		f.fellBack(source.NameSummarizer, err)
		res = s.fallback.Analysis(c)
		prov = model.ProvenanceDefault
	default:
		res = summary.Parse(raw, c)
		prov = model.ProvenanceLive
	}
	if !f.current("parse") {
		return nil
	}

	p := f.params
	return &result{
		provenance: prov,
		apply: func(st *state.Store) {
			st.SetAnalysis(res, prov)
		},
		notice: func(ctx context.Context) {
			switch prov {
			case model.ProvenanceTimeout:
				s.noticeTimeout(ctx)
			case model.ProvenanceDefault:
				s.noticeFallback(ctx, model.OpAnalysis, "per l'analisi")
			default:
				s.noticeSuccess(ctx, model.OpAnalysis, p, "Analisi completata",
					"Analisi pronta per "+placeLabel(p))
			}
		},
	}
}
