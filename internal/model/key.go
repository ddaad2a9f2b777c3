package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// Operation names a logical fetch whose requests are coordinated together.
type Operation string

const (
	OpCompetitors Operation = "competitors"
	OpTrends      Operation = "trends"
	OpAnalysis    Operation = "analysis"
)

// AllOperations lists every coordinated operation.
func AllOperations() []Operation {
	return []Operation{OpCompetitors, OpTrends, OpAnalysis}
}

// Params is the raw parameter set as submitted by a caller. Any field may be
// empty.
type Params struct {
	District     string `json:"district"`
	BusinessType string `json:"business_type"`
	CuisineType  string `json:"cuisine_type,omitempty"`
	Address      string `json:"address,omitempty"`
	// Name is the business being analyzed. It only feeds prompts and
	// default texts; it is not part of the request identity.
	Name string `json:"name,omitempty"`
}

// Display returns p with whitespace trimmed and collapsed in every field.
func (p Params) Display() Params {
	return Params{
		District:     NormalizeString(p.District).OrElse(""),
		BusinessType: NormalizeString(p.BusinessType).OrElse(""),
		CuisineType:  NormalizeString(p.CuisineType).OrElse(""),
		Address:      NormalizeString(p.Address).OrElse(""),
		Name:         NormalizeString(p.Name).OrElse(""),
	}
}

// RequestKey identifies what is being fetched. Two keys built from params
// that differ only in case or whitespace are equal.
type RequestKey struct {
	District     Opt[string] `json:"district"`
	BusinessType Opt[string] `json:"business_type"`
	CuisineType  Opt[string] `json:"cuisine_type"`
	Address      Opt[string] `json:"address"`
}

func foldOpt(o Opt[string]) Opt[string] {
	if v, ok := o.Get(); ok {
		return Some(cases.Fold().String(v))
	}
	return o
}

// NewRequestKey normalizes p into a RequestKey. District, business type and
// cuisine compare case-insensitively; the address only has whitespace
// normalized.
func NewRequestKey(p Params) RequestKey {
	return RequestKey{
		District:     foldOpt(NormalizeString(p.District)),
		BusinessType: foldOpt(NormalizeString(p.BusinessType)),
		CuisineType:  foldOpt(NormalizeString(p.CuisineType)),
		Address:      NormalizeString(p.Address),
	}
}

// Equal reports value equality of two keys.
func (k RequestKey) Equal(o RequestKey) bool {
	return k == o
}

// IsZero reports whether every field is unset.
func (k RequestKey) IsZero() bool {
	return k == RequestKey{}
}

// String returns a stable canonical form, with "-" for unset fields.
func (k RequestKey) String() string {
	parts := make([]string, 0, 4)
	for _, o := range []Opt[string]{k.District, k.BusinessType, k.CuisineType, k.Address} {
		parts = append(parts, o.OrElse("-"))
	}
	return strings.Join(parts, "|")
}
