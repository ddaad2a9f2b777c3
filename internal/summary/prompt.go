package summary

import (
	"fmt"
	"strings"

	"github.com/sells-group/bizlens/internal/model"
)

// Inputs is the data collected for one analysis prompt. Any part may be
// empty.
type Inputs struct {
	Census      *model.CensusRecord
	Competitors []model.Competitor
	Trends      []model.TrendItem
}

// maxPromptCompetitors caps competitors listed in the prompt.
const maxPromptCompetitors = 10

// BuildPrompt renders the summarizer prompt. The model is asked for a single
// JSON object whose keys match the fields Parse reads.
func BuildPrompt(c Context, in Inputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Sei un analista di mercato. Analizza l'attività %q di tipo %q nel quartiere %q.\n\n",
		c.Name, c.businessType(), c.district())

	b.WriteString("## Dati demografici\n")
	if in.Census != nil {
		fmt.Fprintf(&b, "- Popolazione: %d\n", in.Census.Population)
		fmt.Fprintf(&b, "- Età mediana: %.1f\n", in.Census.MedianAge)
		fmt.Fprintf(&b, "- Reddito mediano: %d\n", in.Census.MedianIncome)
		fmt.Fprintf(&b, "- Dimensione media famiglia: %.1f\n", in.Census.HouseholdSize)
		fmt.Fprintf(&b, "- Abitazioni di proprietà: %.1f%%\n", in.Census.OwnerOccupiedPct)
	} else {
		b.WriteString("- Non disponibili\n")
	}

	b.WriteString("\n## Concorrenti\n")
	if len(in.Competitors) == 0 {
		b.WriteString("- Nessun dato\n")
	}
	for i, comp := range in.Competitors {
		if i >= maxPromptCompetitors {
			break
		}
		fmt.Fprintf(&b, "- %s (%s): valutazione %.1f su %d recensioni, prezzo %s, sentiment %d/%d/%d\n",
			comp.Name, comp.Type, comp.Rating, comp.ReviewCount, comp.PriceLevel,
			comp.Sentiments.Positive, comp.Sentiments.Neutral, comp.Sentiments.Negative)
	}

	b.WriteString("\n## Trend di ricerca\n")
	if len(in.Trends) == 0 {
		b.WriteString("- Nessun dato\n")
	}
	for _, t := range in.Trends {
		fmt.Fprintf(&b, "- %s: %.0f\n", t.Label, t.Value)
	}

	b.WriteString("\nRispondi solo con un oggetto JSON con queste chiavi: ")
	b.WriteString(strings.Join([]string{
		fieldSummary, fieldDemographic, fieldCompetition, fieldTrends,
		fieldKeywords, fieldOpportunities, fieldConsumer, fieldHighlights, fieldRecommend,
	}, ", "))
	fmt.Fprintf(&b, ". %s e %s sono liste di stringhe (almeno %d parole chiave); le altre sono stringhe.\n",
		fieldKeywords, fieldRecommend, MinDefaultKeywords)

	return b.String()
}
