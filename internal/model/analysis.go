package model

import "time"

// AnalysisResult is the structured business analysis. Every field is always
// populated.
type AnalysisResult struct {
	Summary             string   `json:"summary"`
	DemographicAnalysis string   `json:"demographicAnalysis"`
	CompetitionAnalysis string   `json:"competitionAnalysis"`
	TrendsAnalysis      string   `json:"trendsAnalysis"`
	RecommendedKeywords []string `json:"recommendedKeywords"`
	MarketOpportunities string   `json:"marketOpportunities"`
	ConsumerProfile     string   `json:"consumerProfile"`
	LocalHighlights     string   `json:"localHighlights"`
	Recommendations     []string `json:"recommendations"`
}

// Provenance records where a committed section of state came from.
type Provenance string

const (
	ProvenanceNone      Provenance = ""
	ProvenanceLive      Provenance = "live"
	ProvenanceFused     Provenance = "fused"
	ProvenanceSynthetic Provenance = "synthetic"
	ProvenanceDefault   Provenance = "default"
	ProvenanceTimeout   Provenance = "timeout"
)

// Variant is the visual weight of a notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantInfo        Variant = "info"
	VariantDestructive Variant = "destructive"
)

// Notification is a user-facing message.
type Notification struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	ShownAt     time.Time `json:"shown_at"`
}
