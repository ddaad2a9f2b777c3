package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/pkg/yelp"
)

const (
	// maxReviewLookups caps how many search hits get a reviews call.
	maxReviewLookups          = 5
	reviewLookupLimit         = 3
	defaultReviewsPerBusiness = 3
)

// YelpReviews adapts the Yelp Fusion client.
type YelpReviews struct {
	client      yelp.Client
	guard       *resilience.Guard
	perBusiness int
}

// NewYelpReviews wraps client. perBusiness caps the review excerpts kept per
// business; zero keeps three. A nil client makes every call return
// ErrUnavailable.
func NewYelpReviews(client yelp.Client, guard *resilience.Guard, perBusiness int) *YelpReviews {
	if perBusiness <= 0 {
		perBusiness = defaultReviewsPerBusiness
	}
	return &YelpReviews{client: client, guard: guard, perBusiness: perBusiness}
}

// Search finds businesses matching term and attaches review excerpts to the
// first few. A failed reviews call leaves that business without reviews.
func (y *YelpReviews) Search(ctx context.Context, term, location string) ([]model.ReviewRecord, error) {
	if y.client == nil {
		return nil, unavailable(NameReviews)
	}

	resp, err := guarded(ctx, y.guard, func(ctx context.Context) (*yelp.SearchResponse, error) {
		return y.client.Search(ctx, term, location)
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: reviews search")
	}
	if resp == nil || len(resp.Businesses) == 0 {
		return nil, empty(NameReviews)
	}

	out := make([]model.ReviewRecord, len(resp.Businesses))
	for i, b := range resp.Businesses {
		out[i] = toReviewRecord(b)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reviewLookupLimit)
	for i := range min(maxReviewLookups, len(out)) {
		g.Go(func() error {
			rr, err := guarded(gCtx, y.guard, func(ctx context.Context) (*yelp.ReviewsResponse, error) {
				return y.client.Reviews(ctx, out[i].ID)
			})
			if err != nil {
				zap.L().Debug("source: reviews lookup failed",
					zap.String("source", NameReviews),
					zap.String("business", out[i].ID),
					zap.Error(err),
				)
				return nil
			}
			if rr == nil {
				return nil
			}
			for _, r := range rr.Reviews {
				if len(out[i].Reviews) == y.perBusiness {
					break
				}
				out[i].Reviews = append(out[i].Reviews, model.Review{Rating: r.Rating, Text: r.Text})
			}
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}

func toReviewRecord(b yelp.Business) model.ReviewRecord {
	loc := strings.Join(b.Location.DisplayAddress, ", ")
	if loc == "" {
		loc = b.Location.Address1
	}
	var cats []string
	for _, c := range b.Categories {
		if c.Title != "" {
			cats = append(cats, c.Title)
		}
	}
	return model.ReviewRecord{
		ID:          b.ID,
		Name:        b.Name,
		Rating:      b.Rating,
		ReviewCount: b.ReviewCount,
		Price:       b.Price,
		Location:    loc,
		Categories:  cats,
	}
}
