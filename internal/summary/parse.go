// Package summary turns free-text summarizer output into a fully populated
// analysis record.
package summary

import (
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/bizlens/internal/model"
)

// Context carries the request values used by prompts and default texts.
type Context struct {
	Name         string `json:"name"`
	District     string `json:"district"`
	BusinessType string `json:"business_type"`
}

// ContextFrom builds a Context from display params.
func ContextFrom(p model.Params) Context {
	d := p.Display()
	return Context{Name: d.Name, District: d.District, BusinessType: d.BusinessType}
}

// Field names as requested in the prompt. Each also accepts its snake_case
// spelling.
const (
	fieldSummary       = "summary"
	fieldDemographic   = "demographicAnalysis"
	fieldCompetition   = "competitionAnalysis"
	fieldTrends        = "trendsAnalysis"
	fieldKeywords      = "recommendedKeywords"
	fieldOpportunities = "marketOpportunities"
	fieldConsumer      = "consumerProfile"
	fieldHighlights    = "localHighlights"
	fieldRecommend     = "recommendations"
)

// Parse extracts an AnalysisResult from raw. The JSON object, if any, is the
// span from the first '{' to the last '}'. Fields that are missing or of the
// wrong type take their default independently. Parse never fails.
func Parse(raw string, c Context) model.AnalysisResult {
	def := Defaults(c)

	obj, ok := extractObject(raw)
	if !ok {
		if text := strings.TrimSpace(raw); text != "" {
			def.Summary = text
		}
		return def
	}

	out := model.AnalysisResult{
		Summary:             stringField(obj, fieldSummary, def.Summary),
		DemographicAnalysis: stringField(obj, fieldDemographic, def.DemographicAnalysis),
		CompetitionAnalysis: stringField(obj, fieldCompetition, def.CompetitionAnalysis),
		TrendsAnalysis:      stringField(obj, fieldTrends, def.TrendsAnalysis),
		RecommendedKeywords: listField(obj, fieldKeywords, def.RecommendedKeywords),
		MarketOpportunities: stringOrListField(obj, fieldOpportunities, def.MarketOpportunities),
		ConsumerProfile:     stringField(obj, fieldConsumer, def.ConsumerProfile),
		LocalHighlights:     stringField(obj, fieldHighlights, def.LocalHighlights),
		Recommendations:     listField(obj, fieldRecommend, def.Recommendations),
	}
	return out
}

// extractObject returns the greedy {...} span of raw when it is a valid JSON
// object.
func extractObject(raw string) (gjson.Result, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return gjson.Result{}, false
	}
	span := raw[start : end+1]
	if !gjson.Valid(span) {
		zap.L().Debug("summary: embedded object is not valid json", zap.Int("span_len", len(span)))
		return gjson.Result{}, false
	}
	res := gjson.Parse(span)
	if !res.IsObject() {
		return gjson.Result{}, false
	}
	return res, true
}

// lookup finds name or its snake_case spelling.
func lookup(obj gjson.Result, name string) gjson.Result {
	if r := obj.Get(name); r.Exists() {
		return r
	}
	return obj.Get(snake(name))
}

func stringField(obj gjson.Result, name, def string) string {
	r := lookup(obj, name)
	if r.Type != gjson.String {
		return def
	}
	if s := strings.TrimSpace(r.Str); s != "" {
		return s
	}
	return def
}

func listField(obj gjson.Result, name string, def []string) []string {
	r := lookup(obj, name)
	if !r.IsArray() {
		return def
	}
	items := stringItems(r)
	if len(items) == 0 {
		return def
	}
	return items
}

// stringOrListField accepts a string or a list of strings; lists are joined
// with a blank line.
func stringOrListField(obj gjson.Result, name, def string) string {
	r := lookup(obj, name)
	if r.IsArray() {
		items := stringItems(r)
		if len(items) == 0 {
			return def
		}
		return strings.Join(items, "\n\n")
	}
	return stringField(obj, name, def)
}

func stringItems(arr gjson.Result) []string {
	var out []string
	for _, item := range arr.Array() {
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.Str); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func snake(camel string) string {
	var b strings.Builder
	for i, r := range camel {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
