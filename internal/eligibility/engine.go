package eligibility

import (
	"github.com/rotisserie/eris"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Result is the eligibility decision for one record.
type Result struct {
	RecordID          string       `json:"record_id"`
	Eligible          bool         `json:"eligible"`
	Reasoning         string       `json:"reasoning"`
	ReasoningDetailed string       `json:"reasoning_detailed"`
	RuleResults       []RuleResult `json:"rule_results"`
	Warnings          []string     `json:"warnings,omitempty"`
}

// Engine evaluates records against a fixed rule table and configuration.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg         *Config
	rules       []Rule
	overrides   []Rule
	gatekeepers []Rule
	staged      []Rule
}

// NewEngine returns an engine over DefaultRules.
func NewEngine(cfg *Config) (*Engine, error) {
	return NewEngineWithRules(cfg, DefaultRules())
}

// NewEngineWithRules validates rules and returns an engine over them.
// Malformed rules are configuration errors and are reported here rather
// than during evaluation.
func NewEngineWithRules(cfg *Config, rules []Rule) (*Engine, error) {
	if cfg == nil {
		return nil, eris.New("eligibility: nil config")
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, rules: rules}
	for _, r := range rules {
		switch {
		case r.Category == CategoryOverride:
			e.overrides = append(e.overrides, r)
		case r.Category == CategoryGatekeeper:
			e.gatekeepers = append(e.gatekeepers, r)
		case r.staged():
			e.staged = append(e.staged, r)
		}
	}
	return e, nil
}

// ValidateRules checks a rule table for configuration errors.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return eris.New("eligibility: empty rule table")
	}
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return eris.Errorf("eligibility: rule %d has no name", i)
		}
		if seen[r.Name] {
			return eris.Errorf("eligibility: duplicate rule %q", r.Name)
		}
		seen[r.Name] = true
		if r.Check == nil {
			return eris.Errorf("eligibility: rule %q has no predicate", r.Name)
		}

		switch r.Category {
		case CategoryOverride, CategoryGatekeeper:
			if len(r.Types) > 0 {
				return eris.Errorf("eligibility: %s rule %q must not be restricted to organization types", r.Category, r.Name)
			}
		case CategoryTypeSpecific, CategoryExemption:
			if len(r.Types) == 0 {
				return eris.Errorf("eligibility: %s rule %q has no organization types", r.Category, r.Name)
			}
			for _, t := range r.Types {
				if _, ok := model.ParseOrganizationType(string(t)); !ok {
					return eris.Errorf("eligibility: rule %q references unknown organization type %q", r.Name, t)
				}
			}
		default:
			return eris.Errorf("eligibility: rule %q has unknown category %q", r.Name, r.Category)
		}
	}
	return nil
}

// Config returns the engine's rule configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Rules returns the rule table in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate decides eligibility for r. It never fails: absent or
// unparseable fields are treated as empty and surface as warnings.
func (e *Engine) Evaluate(r model.Record) *Result {
	s := NewSubject(r)
	res := &Result{
		RecordID: s.RecordID,
		Warnings: s.Warnings,
	}

	res.RuleResults = e.evaluate(s)
	res.Eligible = Decide(res.RuleResults)
	res.Reasoning = FormatReasoning(res.RuleResults)
	res.ReasoningDetailed = FormatReasoningDetailed(res.RuleResults)
	return res
}

func (e *Engine) evaluate(s *Subject) []RuleResult {
	var results []RuleResult

	for _, r := range e.overrides {
		rr := newResult(r, true, r.Check(s, e.cfg))
		results = append(results, rr)
		if rr.Passed {
			return results
		}
	}

	gatesPassed := true
	for _, r := range e.gatekeepers {
		rr := newResult(r, true, r.Check(s, e.cfg))
		results = append(results, rr)
		gatesPassed = gatesPassed && rr.Passed
	}
	if !gatesPassed {
		return results
	}

	for _, r := range e.staged {
		if !r.AppliesTo(s.Type) {
			results = append(results, newResult(r, false, Outcome{}))
			continue
		}
		results = append(results, newResult(r, true, r.Check(s, e.cfg)))
	}
	return results
}

// Decide derives the eligibility flag from rule results: a matched override
// wins; otherwise every gatekeeper must pass and at least one type-specific
// or exemption rule must pass.
func Decide(results []RuleResult) bool {
	gatesPassed, stagedPassed, sawStaged := true, false, false
	for _, rr := range results {
		switch rr.Category {
		case CategoryOverride:
			if rr.Passed && rr.Forces != nil {
				return *rr.Forces
			}
		case CategoryGatekeeper:
			gatesPassed = gatesPassed && rr.Passed
		case CategoryTypeSpecific, CategoryExemption:
			sawStaged = true
			stagedPassed = stagedPassed || (rr.Applicable && rr.Passed)
		}
	}
	return gatesPassed && sawStaged && stagedPassed
}
