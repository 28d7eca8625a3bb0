package eligibility

import (
	"fmt"
	"strings"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Rule names.
const (
	RuleForceTrue          = "manual_override_true"
	RuleForceFalse         = "manual_override_false"
	RuleActiveStatus       = "active_status"
	RuleNotStateURL        = "not_state_government_url"
	RuleHasContactInfo     = "has_contact_info"
	RuleAlwaysEligibleType = "always_eligible_type"
	RuleInOrgChart         = "in_org_chart"
	RuleMainNYCGovURL      = "main_nyc_gov_url"
	RuleNonprofitExemption = "nonprofit_exemption"
	RuleAdvisoryExemption  = "advisory_exemption"
	RuleStateGovtExemption = "state_government_exemption"
)

// DefaultRules returns the directory eligibility rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        RuleForceTrue,
			Label:       "Manual override",
			Description: "record_id is in the force-true override list",
			Category:    CategoryOverride,
			Forces:      true,
			Check: func(s *Subject, cfg *Config) Outcome {
				return Outcome{Passed: cfg.forceTrue[s.RecordID], Detail: "forced TRUE"}
			},
		},
		{
			Name:        RuleForceFalse,
			Label:       "Manual override",
			Description: "record_id is in the force-false override list",
			Category:    CategoryOverride,
			Forces:      false,
			Check: func(s *Subject, cfg *Config) Outcome {
				return Outcome{Passed: cfg.forceFalse[s.RecordID], Detail: "forced FALSE"}
			},
		},
		{
			Name:        RuleActiveStatus,
			Label:       "Active",
			Description: "operational_status is Active",
			Category:    CategoryGatekeeper,
			Check: func(s *Subject, _ *Config) Outcome {
				if s.Status == model.StatusActive {
					return Outcome{Passed: true}
				}
				return Outcome{Detail: "status: " + blankAs(string(s.Status), "(blank)")}
			},
		},
		{
			Name:        RuleNotStateURL,
			Label:       "Not state government URL",
			Description: "url is not a state-government domain outside the city domain, unless the name is a state-government exemption",
			Category:    CategoryGatekeeper,
			Check:       checkNotStateURL,
		},
		{
			Name:        RuleHasContactInfo,
			Label:       "Has contact info",
			Description: "at least one of url, principal_officer_full_name, principal_officer_contact_url is set",
			Category:    CategoryGatekeeper,
			Check: func(s *Subject, _ *Config) Outcome {
				var present []string
				if s.URL != "" {
					present = append(present, model.FieldURL)
				}
				if s.PrincipalOfficerName != "" {
					present = append(present, model.FieldPrincipalOfficerFullName)
				}
				if s.PrincipalOfficerContactURL != "" {
					present = append(present, model.FieldPrincipalOfficerContactURL)
				}
				if len(present) == 0 {
					return Outcome{Detail: "no url or principal officer"}
				}
				return Outcome{Passed: true, Detail: strings.Join(present, ", ")}
			},
		},
		{
			Name:        RuleAlwaysEligibleType,
			Label:       "Always-eligible type",
			Description: "organization type is listed whenever the gatekeepers pass",
			Category:    CategoryTypeSpecific,
			Types: []model.OrganizationType{
				model.TypeMayoralAgency,
				model.TypeMayoralOffice,
				model.TypeElectedOffice,
				model.TypePensionFund,
			},
			Check: func(s *Subject, _ *Config) Outcome {
				return Outcome{Passed: true, Detail: string(s.Type)}
			},
		},
		{
			Name:        RuleInOrgChart,
			Label:       "In org chart",
			Description: "in_org_chart is true",
			Category:    CategoryTypeSpecific,
			Types: []model.OrganizationType{
				model.TypeDivision,
				model.TypePublicBenefit,
				model.TypeNonprofit,
				model.TypeAdvisoryRegulatory,
			},
			Check: func(s *Subject, _ *Config) Outcome {
				return Outcome{Passed: s.InOrgChart}
			},
		},
		{
			Name:        RuleMainNYCGovURL,
			Label:       "Main nyc.gov URL",
			Description: "url is a canonical nyc.gov landing page",
			Category:    CategoryTypeSpecific,
			Types:       []model.OrganizationType{model.TypeAdvisoryRegulatory},
			Check: func(s *Subject, cfg *Config) Outcome {
				if s.URL != "" && cfg.mainURL.MatchString(s.URL) {
					return Outcome{Passed: true, Detail: s.URL}
				}
				return Outcome{}
			},
		},
		{
			Name:        RuleNonprofitExemption,
			Label:       "Nonprofit exemption",
			Description: "name is in the nonprofit exemption list",
			Category:    CategoryExemption,
			Types:       []model.OrganizationType{model.TypeNonprofit},
			Check: func(s *Subject, cfg *Config) Outcome {
				return exemptionOutcome(cfg.nonprofit, s.Name)
			},
		},
		{
			Name:        RuleAdvisoryExemption,
			Label:       "Advisory exemption",
			Description: "name is in the advisory/regulatory exemption list",
			Category:    CategoryExemption,
			Types:       []model.OrganizationType{model.TypeAdvisoryRegulatory},
			Check: func(s *Subject, cfg *Config) Outcome {
				return exemptionOutcome(cfg.advisory, s.Name)
			},
		},
		{
			Name:        RuleStateGovtExemption,
			Label:       "State government exemption",
			Description: "name is in the state-government exemption list",
			Category:    CategoryExemption,
			Types:       []model.OrganizationType{model.TypeStateGovernment},
			Check: func(s *Subject, cfg *Config) Outcome {
				return exemptionOutcome(cfg.stateGovernment, s.Name)
			},
		},
	}
}

// checkNotStateURL fails records whose url sits under the state domain but
// not the city domain. Hosts that cannot be parsed fall back to substring
// matching on the raw url.
func checkNotStateURL(s *Subject, cfg *Config) Outcome {
	if s.URL == "" {
		return Outcome{Passed: true}
	}

	var state, city bool
	if s.Host != "" {
		state = inDomain(s.Host, cfg.Patterns.StateDomain)
		city = inDomain(s.Host, cfg.Patterns.CityDomain)
	} else {
		raw := strings.ToLower(s.URL)
		state = strings.Contains(raw, "."+cfg.Patterns.StateDomain)
		city = strings.Contains(raw, cfg.Patterns.CityDomain)
	}

	if !state || city {
		return Outcome{Passed: true}
	}
	if name, ok := lookup(cfg.stateGovernment, s.Name); ok {
		return Outcome{Passed: true, Detail: "state exemption: " + name}
	}
	return Outcome{Detail: fmt.Sprintf("state url: %s", blankAs(s.Host, s.URL))}
}

func exemptionOutcome(set map[string]string, name string) Outcome {
	if matched, ok := lookup(set, name); ok {
		return Outcome{Passed: true, Detail: matched}
	}
	return Outcome{}
}

func blankAs(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
