package source

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/pkg/google"
)

// GooglePlaces adapts the Places Text Search client.
type GooglePlaces struct {
	client google.Client
	guard  *resilience.Guard
}

// NewGooglePlaces wraps client. A nil client makes every call return
// ErrUnavailable.
func NewGooglePlaces(client google.Client, guard *resilience.Guard) *GooglePlaces {
	return &GooglePlaces{client: client, guard: guard}
}

// Search runs "{query} in {location}" and returns the places found.
func (p *GooglePlaces) Search(ctx context.Context, query, location string) ([]model.PlaceRecord, error) {
	if p.client == nil {
		return nil, unavailable(NamePlaces)
	}

	text := query
	if location != "" {
		text = fmt.Sprintf("%s in %s", query, location)
	}

	resp, err := guarded(ctx, p.guard, func(ctx context.Context) (*google.TextSearchResponse, error) {
		return p.client.TextSearch(ctx, google.TextSearchRequest{TextQuery: text})
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: places search")
	}
	if resp == nil || len(resp.Places) == 0 {
		return nil, empty(NamePlaces)
	}

	out := make([]model.PlaceRecord, 0, len(resp.Places))
	for _, pl := range resp.Places {
		out = append(out, model.PlaceRecord{
			ID:               pl.ID,
			Name:             pl.DisplayName.Text,
			Types:            pl.Types,
			Address:          pl.FormattedAddress,
			Rating:           pl.Rating,
			UserRatingsTotal: pl.UserRatingCount,
			PriceLevel:       pl.PriceTier(),
		})
	}
	return out, nil
}
