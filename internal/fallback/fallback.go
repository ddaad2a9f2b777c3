// Package fallback produces plausible synthetic data when no live source
// could supply competitors, trends or an analysis.
package fallback

import (
	_ "embed"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/summary"
)

//go:embed templates.yaml
var templatesYAML []byte

// CompetitorCount is the number of synthetic competitors per request.
const CompetitorCount = 3

// TrendCount is the number of synthetic trend points per request.
const TrendCount = 6

const defaultTemplate = "default"
const diningTemplate = "restaurant"

// Rand is the randomness source. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Range is an inclusive [Min, Max] pair decoded from a two-element list.
type Range struct {
	Min float64
	Max float64
}

// UnmarshalYAML decodes a [min, max] sequence.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return eris.Wrap(err, "fallback: decode range")
	}
	if len(pair) != 2 || pair[0] > pair[1] {
		return eris.Errorf("fallback: invalid range %v at line %d", pair, node.Line)
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// Tier bounds the numbers generated for one competitor variant.
type Tier struct {
	Rating   Range `yaml:"rating"`
	Reviews  Range `yaml:"reviews"`
	Positive Range `yaml:"positive"`
	Neutral  Range `yaml:"neutral"`
}

// Variant is one of the three competitors a template produces.
type Variant struct {
	Tier      string   `yaml:"tier"`
	Suffix    string   `yaml:"suffix"`
	Price     string   `yaml:"price"`
	Strengths []string `yaml:"strengths"`
}

// Template describes synthetic data for one business type.
type Template struct {
	Type     string               `yaml:"type"`
	Keywords []string             `yaml:"keywords"`
	Variants []Variant            `yaml:"variants"`
	Cuisines map[string]*Template `yaml:"cuisines"`
}

// Catalog is the decoded templates document.
type Catalog struct {
	Tiers     map[string]Tier      `yaml:"tiers"`
	Templates map[string]*Template `yaml:"templates"`
	Aliases   map[string]string    `yaml:"aliases"`
	Palette   []string             `yaml:"palette"`
}

// ParseCatalog decodes and validates a templates document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "fallback: parse templates")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if _, ok := c.Templates[defaultTemplate]; !ok {
		return eris.New("fallback: templates missing default")
	}
	if len(c.Palette) == 0 {
		return eris.New("fallback: empty palette")
	}
	for name, tier := range c.Tiers {
		if tier.Positive.Max+tier.Neutral.Max > 100 {
			return eris.Errorf("fallback: tier %s positive+neutral can exceed 100", name)
		}
	}
	check := func(name string, t *Template) error {
		if len(t.Variants) != CompetitorCount {
			return eris.Errorf("fallback: template %s has %d variants, want %d", name, len(t.Variants), CompetitorCount)
		}
		if len(t.Keywords) == 0 {
			return eris.Errorf("fallback: template %s has no keywords", name)
		}
		for _, v := range t.Variants {
			if _, ok := c.Tiers[v.Tier]; !ok {
				return eris.Errorf("fallback: template %s references unknown tier %q", name, v.Tier)
			}
		}
		return nil
	}
	for name, t := range c.Templates {
		if err := check(name, t); err != nil {
			return err
		}
		for cuisine, sub := range t.Cuisines {
			if err := check(name+"/"+cuisine, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

var builtin = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(templatesYAML)
})

// Generator produces synthetic records. It is safe for concurrent use.
type Generator struct {
	catalog *Catalog

	mu  sync.Mutex
	rnd Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the randomness source. The default is seeded from the clock.
func WithRand(r Rand) Option {
	return func(g *Generator) {
		g.rnd = r
	}
}

// WithCatalog replaces the embedded templates.
func WithCatalog(c *Catalog) Option {
	return func(g *Generator) {
		g.catalog = c
	}
}

// New creates a Generator backed by the embedded templates.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{}
	for _, o := range opts {
		o(g)
	}
	if g.catalog == nil {
		c, err := builtin()
		if err != nil {
			return nil, err
		}
		g.catalog = c
	}
	if g.rnd == nil {
		seed := uint64(time.Now().UnixNano())
		g.rnd = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	return g, nil
}

// key turns a free-text business or cuisine type into a template key.
func (g *Generator) key(s string) string {
	k := strings.ToLower(strings.Join(strings.Fields(s), "_"))
	if alias, ok := g.catalog.Aliases[k]; ok {
		return alias
	}
	return k
}

// template resolves the template for a business type and optional cuisine.
// Cuisine only applies to the dining template.
func (g *Generator) template(businessType, cuisine string) *Template {
	t, ok := g.catalog.Templates[g.key(businessType)]
	if !ok {
		return g.catalog.Templates[defaultTemplate]
	}
	if cuisine != "" && len(t.Cuisines) > 0 && g.key(businessType) == diningTemplate {
		if sub, ok := t.Cuisines[g.key(cuisine)]; ok {
			return sub
		}
	}
	return t
}

func (g *Generator) intIn(r Range) int {
	lo, hi := int(r.Min), int(r.Max)
	return lo + g.rnd.IntN(hi-lo+1)
}

// ratingIn draws a one-decimal rating in [Min, Max).
func (g *Generator) ratingIn(r Range) float64 {
	v := r.Min + g.rnd.Float64()*(r.Max-r.Min)
	return math.Floor(v*10) / 10
}

func (g *Generator) districtName(district string) string {
	d := model.NormalizeString(district).OrElse("")
	if d == "" {
		return "Centro"
	}
	return title(d)
}

// Competitors returns exactly three synthetic competitors, one per variant
// tier of the resolved template.
func (g *Generator) Competitors(businessType, district, cuisine string) []model.Competitor {
	t := g.template(businessType, cuisine)
	place := g.districtName(district)

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]model.Competitor, 0, CompetitorCount)
	for i, v := range t.Variants {
		tier := g.catalog.Tiers[v.Tier]

		pos := g.intIn(tier.Positive)
		neu := g.intIn(tier.Neutral)
		if pos+neu > 100 {
			neu = 100 - pos
		}

		out = append(out, model.Competitor{
			ID:          fmt.Sprintf("synthetic-%d-%d", i+1, g.rnd.IntN(1_000_000)),
			Name:        fmt.Sprintf("%s %s", v.Suffix, place),
			Type:        t.Type,
			Location:    place,
			Rating:      g.ratingIn(tier.Rating),
			ReviewCount: g.intIn(tier.Reviews),
			PriceLevel:  v.Price,
			Sentiments: model.Sentiments{
				Positive: pos,
				Neutral:  neu,
				Negative: 100 - pos - neu,
			},
			Strengths: append([]string(nil), v.Strengths...),
		})
	}
	return out
}

// Trends returns six synthetic search-interest points built from the
// template keywords, most popular first.
func (g *Generator) Trends(businessType, district string) []model.TrendItem {
	t := g.template(businessType, "")
	place := g.districtName(district)

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]model.TrendItem, 0, TrendCount)
	value := 100.0
	for i := range TrendCount {
		kw := t.Keywords[i%len(t.Keywords)]
		label := kw
		if i%2 == 1 {
			label = fmt.Sprintf("%s %s", kw, place)
		}
		out = append(out, model.TrendItem{Label: label, Value: value})
		value = math.Max(0, value-float64(5+g.rnd.IntN(15)))
	}
	return out
}

// Categories returns synthetic categories for the business type, each with a
// growth indicator and palette color.
func (g *Generator) Categories(businessType string) []model.Category {
	t := g.template(businessType, "")

	g.mu.Lock()
	defer g.mu.Unlock()

	n := min(4, len(t.Keywords))
	out := make([]model.Category, 0, n)
	for i := range n {
		growth := g.rnd.IntN(31) - 5
		out = append(out, model.Category{
			Name:   title(t.Keywords[i]),
			Growth: FormatGrowth(growth),
			Color:  g.Color(i),
		})
	}
	return out
}

// Keywords returns the search keywords of the resolved template.
func (g *Generator) Keywords(businessType, cuisine string) []string {
	return append([]string(nil), g.template(businessType, cuisine).Keywords...)
}

// Color returns the palette entry for index i, cycling.
func (g *Generator) Color(i int) string {
	p := g.catalog.Palette
	return p[i%len(p)]
}

// Analysis returns the default analysis record.
func (g *Generator) Analysis(c summary.Context) model.AnalysisResult {
	return summary.Defaults(c)
}

func title(s string) string {
	return cases.Title(language.Und).String(s)
}

// FormatGrowth renders a percentage change as "+12%" or "-3%".
func FormatGrowth(pct int) string {
	if pct >= 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}
