// Package payload models the /llamaquery request body.
package payload

import "strings"

// Payload is the decoded request body.
type Payload struct {
	Query      string       `json:"query"`
	Filters    *FilterGroup `json:"filters,omitempty"`
	PreFilters *FilterGroup `json:"preFilters,omitempty"`
	Company    string       `json:"company,omitempty"`
}

// FilterGroup mirrors the metadata filter block sent by retrieval front-ends.
type FilterGroup struct {
	Filters   []Filter `json:"filters"`
	Condition string   `json:"condition,omitempty"`
}

// Filter is a single metadata filter. Only Value is consulted.
type Filter struct {
	Key      string `json:"key,omitempty"`
	Value    any    `json:"value"`
	Operator string `json:"operator,omitempty"`
}

// TrimmedQuery returns the query without surrounding whitespace.
func (p *Payload) TrimmedQuery() string {
	return strings.TrimSpace(p.Query)
}

// CompanyName resolves the company filter. Lookup order:
// filters.filters[0].value, preFilters.filters[0].value, company.
// Returns "" when none yields a non-blank string. The winning value is
// returned as sent; blank means empty after trimming whitespace.
func (p *Payload) CompanyName() string {
	if v := p.Filters.firstValue(); v != "" {
		return v
	}
	if v := p.PreFilters.firstValue(); v != "" {
		return v
	}
	if strings.TrimSpace(p.Company) == "" {
		return ""
	}
	return p.Company
}

func (g *FilterGroup) firstValue() string {
	if g == nil || len(g.Filters) == 0 {
		return ""
	}
	s, ok := g.Filters[0].Value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
