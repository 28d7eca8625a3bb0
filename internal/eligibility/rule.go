// Package eligibility decides whether an organization belongs in the public
// nyc.gov agency directory.
//
// Rules are plain values (name, category, applicable types, predicate) and a
// single evaluator runs them. The same table drives evaluation, the rule
// documentation printed by the CLI and API, and the tests.
package eligibility

import (
	"slices"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Category groups rules by the stage of evaluation they belong to.
type Category string

const (
	CategoryOverride     Category = "override"
	CategoryGatekeeper   Category = "gatekeeper"
	CategoryTypeSpecific Category = "type_specific"
	CategoryExemption    Category = "exemption"
)

// Outcome is what a predicate returns: pass/fail and an optional detail such
// as the exemption name that matched.
type Outcome struct {
	Passed bool
	Detail string
}

// Predicate evaluates one rule against a subject.
type Predicate func(s *Subject, cfg *Config) Outcome

// Rule is one entry of the rule table.
type Rule struct {
	Name        string
	Label       string
	Description string
	Category    Category

	// Types restricts type-specific and exemption rules to these
	// organization types. Must be empty for gatekeepers and overrides.
	Types []model.OrganizationType

	// Forces is the decision an override rule imposes when it matches.
	Forces bool

	Check Predicate
}

// AppliesTo reports whether the rule is relevant for organization type t.
func (r Rule) AppliesTo(t model.OrganizationType) bool {
	return len(r.Types) == 0 || slices.Contains(r.Types, t)
}

// staged reports whether the rule belongs to the "at least one must pass"
// stage that follows the gatekeepers.
func (r Rule) staged() bool {
	return r.Category == CategoryTypeSpecific || r.Category == CategoryExemption
}

// RuleResult records how one rule evaluated for one record.
type RuleResult struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Applicable  bool     `json:"applicable"`
	Passed      bool     `json:"passed"`
	Detail      string   `json:"detail,omitempty"`
	Forces      *bool    `json:"forces,omitempty"`
}

func newResult(r Rule, applicable bool, out Outcome) RuleResult {
	res := RuleResult{
		Name:        r.Name,
		Label:       r.Label,
		Description: r.Description,
		Category:    r.Category,
		Applicable:  applicable,
		Passed:      out.Passed,
		Detail:      out.Detail,
	}
	if r.Category == CategoryOverride {
		f := r.Forces
		res.Forces = &f
	}
	return res
}
