// Package state holds the shared results consumed by the API and CLI.
package state

import (
	"slices"
	"sync"
	"time"

	"github.com/sells-group/bizlens/internal/model"
)

// Section names a part of the store with its own provenance.
type Section string

const (
	SectionCompetitors Section = "competitors"
	SectionTrends      Section = "trends"
	SectionAnalysis    Section = "analysis"
)

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Key         model.RequestKey             `json:"key"`
	Params      model.Params                 `json:"params"`
	Competitors []model.Competitor           `json:"competitors"`
	Analysis    *model.AnalysisResult        `json:"analysis"`
	Trends      []model.TrendItem            `json:"trends"`
	Categories  []model.Category             `json:"categories"`
	IsLoading   bool                         `json:"is_loading"`
	Loading     map[model.Operation]bool     `json:"loading"`
	Sources     map[Section]model.Provenance `json:"sources"`
	UpdatedAt   map[Section]time.Time        `json:"updated_at"`
}

// Store is the shared state container. Writers replace lists wholesale.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	params      model.Params
	key         model.RequestKey
	competitors []model.Competitor
	analysis    *model.AnalysisResult
	trends      []model.TrendItem
	categories  []model.Category
	loading     map[model.Operation]bool
	sources     map[Section]model.Provenance
	updated     map[Section]time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:     time.Now,
		loading: make(map[model.Operation]bool),
		sources: make(map[Section]model.Provenance),
		updated: make(map[Section]time.Time),
	}
}

// SetParams records the current parameters and their request key.
func (s *Store) SetParams(p model.Params) model.RequestKey {
	key := model.NewRequestKey(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p.Display()
	s.key = key
	return key
}

// Params returns the current display parameters.
func (s *Store) Params() model.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Key returns the current request key.
func (s *Store) Key() model.RequestKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// SetLoading marks op as loading or idle.
func (s *Store) SetLoading(op model.Operation, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loading {
		s.loading[op] = true
		return
	}
	delete(s.loading, op)
}

// IsLoading reports whether any operation is loading.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loading) > 0
}

// SetCompetitors replaces the competitor list.
func (s *Store) SetCompetitors(list []model.Competitor, src model.Provenance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitors = slices.Clone(list)
	s.stamp(SectionCompetitors, src)
}

// SetTrends replaces trends and the categories derived from them.
func (s *Store) SetTrends(trends []model.TrendItem, categories []model.Category, src model.Provenance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trends = slices.Clone(trends)
	s.categories = slices.Clone(categories)
	s.stamp(SectionTrends, src)
}

// SetAnalysis replaces the analysis.
func (s *Store) SetAnalysis(r model.AnalysisResult, src model.Provenance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.RecommendedKeywords = slices.Clone(r.RecommendedKeywords)
	r.Recommendations = slices.Clone(r.Recommendations)
	s.analysis = &r
	s.stamp(SectionAnalysis, src)
}

func (s *Store) stamp(sec Section, src model.Provenance) {
	s.sources[sec] = src
	s.updated[sec] = s.now()
}

// Snapshot returns a deep copy of the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Key:         s.key,
		Params:      s.params,
		Competitors: slices.Clone(s.competitors),
		Trends:      slices.Clone(s.trends),
		Categories:  slices.Clone(s.categories),
		IsLoading:   len(s.loading) > 0,
		Loading:     make(map[model.Operation]bool, len(s.loading)),
		Sources:     make(map[Section]model.Provenance, len(s.sources)),
		UpdatedAt:   make(map[Section]time.Time, len(s.updated)),
	}
	if s.analysis != nil {
		a := *s.analysis
		a.RecommendedKeywords = slices.Clone(a.RecommendedKeywords)
		a.Recommendations = slices.Clone(a.Recommendations)
		snap.Analysis = &a
	}
	for k, v := range s.loading {
		snap.Loading[k] = v
	}
	for k, v := range s.sources {
		snap.Sources[k] = v
	}
	for k, v := range s.updated {
		snap.UpdatedAt[k] = v
	}
	return snap
}
