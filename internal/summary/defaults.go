package summary

import (
	"fmt"
	"strings"

	"github.com/sells-group/bizlens/internal/model"
)

// MinDefaultKeywords is the minimum number of keywords in the default
// record. Decoded summarizer output is accepted with any non-zero count.
const MinDefaultKeywords = 8

const (
	placeholderDistrict = "la zona"
	placeholderType     = "attività"
)

func (c Context) district() string {
	if c.District == "" {
		return placeholderDistrict
	}
	return c.District
}

func (c Context) businessType() string {
	if c.BusinessType == "" {
		return placeholderType
	}
	return c.BusinessType
}

// Defaults returns the templated analysis used for every field the
// summarizer did not provide.
func Defaults(c Context) model.AnalysisResult {
	d, bt := c.district(), c.businessType()

	summary := fmt.Sprintf("Analisi per un'attività di tipo %s a %s.", bt, d)
	if c.Name != "" {
		summary = fmt.Sprintf("Analisi di %s (%s) a %s.", c.Name, bt, d)
	}

	return model.AnalysisResult{
		Summary:             summary,
		DemographicAnalysis: fmt.Sprintf("Analisi demografica non disponibile per %s", d),
		CompetitionAnalysis: fmt.Sprintf("Analisi della concorrenza non disponibile per %s a %s", bt, d),
		TrendsAnalysis:      fmt.Sprintf("Analisi dei trend non disponibile per %s", bt),
		RecommendedKeywords: defaultKeywords(c),
		MarketOpportunities: fmt.Sprintf("Opportunità di mercato da valutare per %s a %s", bt, d),
		ConsumerProfile:     fmt.Sprintf("Profilo del consumatore non disponibile per %s", d),
		LocalHighlights:     fmt.Sprintf("Punti di interesse locali non disponibili per %s", d),
		Recommendations: []string{
			fmt.Sprintf("Monitorare le recensioni dei concorrenti a %s", d),
			fmt.Sprintf("Rafforzare la presenza online per le ricerche di %s", bt),
			"Raccogliere feedback diretti dai clienti abituali",
			fmt.Sprintf("Valutare promozioni mirate ai residenti di %s", d),
			"Aggiornare orari, foto e menu sulle piattaforme di recensioni",
		},
	}
}

func defaultKeywords(c Context) []string {
	d, bt := c.district(), c.businessType()
	kw := []string{
		fmt.Sprintf("%s %s", bt, d),
		fmt.Sprintf("miglior %s %s", bt, d),
		fmt.Sprintf("%s vicino a me", bt),
		fmt.Sprintf("%s aperto ora", bt),
		fmt.Sprintf("recensioni %s %s", bt, d),
		fmt.Sprintf("%s economico %s", bt, d),
		fmt.Sprintf("nuovo %s %s", bt, d),
		fmt.Sprintf("%s centro %s", bt, d),
	}
	if c.Name != "" {
		kw = append([]string{c.Name, fmt.Sprintf("%s %s", c.Name, d)}, kw...)
	}
	return kw
}

// TimeoutResult is the fixed record committed when the summarizer exceeds its
// deadline. Parsing is skipped for it.
func TimeoutResult(c Context) model.AnalysisResult {
	r := Defaults(c)
	who := c.Name
	if who == "" {
		who = fmt.Sprintf("%s a %s", c.businessType(), c.district())
	}
	r.Summary = fmt.Sprintf("L'analisi per %s ha superato il tempo massimo di attesa. Riprova più tardi.", who)
	return r
}

// IsComplete reports whether every field of r is populated.
func IsComplete(r model.AnalysisResult) bool {
	for _, s := range []string{
		r.Summary, r.DemographicAnalysis, r.CompetitionAnalysis, r.TrendsAnalysis,
		r.MarketOpportunities, r.ConsumerProfile, r.LocalHighlights,
	} {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return len(r.RecommendedKeywords) > 0 && len(r.Recommendations) > 0
}
