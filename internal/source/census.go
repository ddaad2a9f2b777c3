package source

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/pkg/census"
)

// ACSCensus adapts the ACS client. Districts are resolved to geographies
// through a fixed table; unknown districts use the fallback geography.
type ACSCensus struct {
	client    census.Client
	guard     *resilience.Guard
	districts map[string]census.Geography
	fallback  census.Geography
}

// NewACSCensus wraps client. District names in districts match
// case-insensitively. A nil client makes every call return ErrUnavailable.
func NewACSCensus(client census.Client, guard *resilience.Guard, districts map[string]census.Geography, fallback census.Geography) *ACSCensus {
	folded := make(map[string]census.Geography, len(districts))
	for name, geo := range districts {
		folded[foldName(name)] = geo
	}
	return &ACSCensus{client: client, guard: guard, districts: folded, fallback: fallback}
}

func foldName(s string) string {
	return cases.Fold().String(model.NormalizeString(s).OrElse(""))
}

// Geography returns the geography queried for district.
func (c *ACSCensus) Geography(district string) census.Geography {
	if geo, ok := c.districts[foldName(district)]; ok {
		return geo
	}
	return c.fallback
}

// District returns the demographic profile of district.
func (c *ACSCensus) District(ctx context.Context, district string) (*model.CensusRecord, error) {
	if c.client == nil {
		return nil, unavailable(NameCensus)
	}

	geo := c.Geography(district)
	p, err := guarded(ctx, c.guard, func(ctx context.Context) (*census.Profile, error) {
		return c.client.Profile(ctx, geo)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "source: census profile for %s", district)
	}
	if p == nil || p.Population == 0 {
		return nil, empty(NameCensus)
	}

	name := model.NormalizeString(district).OrElse(p.Name)
	return &model.CensusRecord{
		District:         name,
		Population:       p.Population,
		MedianAge:        p.MedianAge,
		MedianIncome:     p.MedianIncome,
		HouseholdSize:    p.HouseholdSize,
		OwnerOccupiedPct: p.OwnerOccupiedPct,
	}, nil
}
