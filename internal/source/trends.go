package source

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/pkg/trends"
)

// maxTrendQueries is the comparison limit of the trends backend.
const maxTrendQueries = 5

// GoogleTrends adapts the SerpApi trends client.
type GoogleTrends struct {
	client     trends.Client
	guard      *resilience.Guard
	defaultGeo string
}

// NewGoogleTrends wraps client. defaultGeo applies when a call passes no
// geo. A nil client makes every call return ErrUnavailable.
func NewGoogleTrends(client trends.Client, guard *resilience.Guard, defaultGeo string) *GoogleTrends {
	return &GoogleTrends{client: client, guard: guard, defaultGeo: defaultGeo}
}

// Interest queries "{keyword} {district}" for up to five keywords and
// returns one item per keyword, labeled with the keyword.
func (t *GoogleTrends) Interest(ctx context.Context, keywords []string, geo, district string) ([]model.TrendItem, error) {
	if t.client == nil {
		return nil, unavailable(NameTrends)
	}
	if geo == "" {
		geo = t.defaultGeo
	}

	place := model.NormalizeString(district).OrElse("")
	labels := map[string]string{}
	var queries []string
	for _, kw := range keywords {
		kw = model.NormalizeString(kw).OrElse("")
		if kw == "" {
			continue
		}
		q := kw
		if place != "" {
			q = kw + " " + place
		}
		if _, dup := labels[q]; dup {
			continue
		}
		labels[q] = kw
		queries = append(queries, q)
		if len(queries) == maxTrendQueries {
			break
		}
	}
	if len(queries) == 0 {
		return nil, empty(NameTrends)
	}

	res, err := guarded(ctx, t.guard, func(ctx context.Context) ([]trends.Interest, error) {
		return t.client.InterestOverTime(ctx, queries, geo)
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: trends interest")
	}
	if len(res) == 0 {
		return nil, empty(NameTrends)
	}

	out := make([]model.TrendItem, 0, len(res))
	for _, in := range res {
		label, ok := labels[in.Query]
		if !ok {
			label = in.Query
		}
		out = append(out, model.TrendItem{Label: label, Value: math.Min(100, math.Max(0, in.Value))})
	}
	return out, nil
}
