package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

func newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func resultFor(t *testing.T, res *Result, name string) RuleResult {
	t.Helper()
	for _, rr := range res.RuleResults {
		if rr.Name == name {
			return rr
		}
	}
	t.Fatalf("rule %s not in results", name)
	return RuleResult{}
}

func hasResult(res *Result, name string) bool {
	for _, rr := range res.RuleResults {
		if rr.Name == name {
			return true
		}
	}
	return false
}

func TestEvaluate_MayoralAgencyEligible(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "NYC_GOID_000001",
		"operational_status": "Active",
		"organization_type":  "Mayoral Agency",
		"url":                "https://x.nyc.gov",
	})

	assert.True(t, res.Eligible)
	assert.Equal(t, "✓ Active | ✓ Not state government URL | ✓ Has contact info | ✓ Always-eligible type: Mayoral Agency", res.Reasoning)
	assert.True(t, resultFor(t, res, RuleActiveStatus).Passed)
	assert.True(t, resultFor(t, res, RuleNotStateURL).Passed)
	assert.True(t, resultFor(t, res, RuleHasContactInfo).Passed)
	assert.True(t, resultFor(t, res, RuleAlwaysEligibleType).Passed)
	assert.Empty(t, res.Warnings)
}

func TestEvaluate_DivisionNotInOrgChart(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "NYC_GOID_000002",
		"operational_status": "Active",
		"organization_type":  "Division",
		"in_org_chart":       "False",
		"url":                "https://x.nyc.gov",
	})

	assert.False(t, res.Eligible)
	assert.Contains(t, res.Reasoning, "✓ Has contact info")
	assert.Contains(t, res.Reasoning, "✗ No type-specific rule passed (In org chart)")

	rr := resultFor(t, res, RuleInOrgChart)
	assert.True(t, rr.Applicable)
	assert.False(t, rr.Passed)
	assert.False(t, resultFor(t, res, RuleAlwaysEligibleType).Applicable)
}

func TestEvaluate_InactiveShortCircuits(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "NYC_GOID_000003",
		"operational_status": "Inactive",
		"organization_type":  "Mayoral Agency",
		"url":                "https://x.nyc.gov",
	})

	assert.False(t, res.Eligible)
	assert.Equal(t, "✗ Active (status: Inactive) | ✓ Not state government URL | ✓ Has contact info", res.Reasoning)
	assert.False(t, hasResult(res, RuleAlwaysEligibleType), "type-specific rules must not be evaluated")
	assert.Contains(t, res.ReasoningDetailed, "not evaluated, a gatekeeper failed")
	assert.NotContains(t, res.ReasoningDetailed, RuleAlwaysEligibleType)
}

func TestEvaluate_AdvisoryExemption(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "NYC_GOID_000004",
		"operational_status": "Active",
		"organization_type":  "Advisory or Regulatory Organization",
		"name":               "Board of Elections",
		"in_org_chart":       "",
		"url":                "https://www.vote.nyc",
	})

	assert.True(t, res.Eligible)
	assert.Contains(t, res.Reasoning, "✓ Advisory exemption: Board of Elections")
	assert.False(t, resultFor(t, res, RuleInOrgChart).Passed)
	assert.Equal(t, "Board of Elections", resultFor(t, res, RuleAdvisoryExemption).Detail)
}

func TestEvaluate_AdvisoryExemptionStillNeedsContact(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "NYC_GOID_000004",
		"operational_status": "Active",
		"organization_type":  "Advisory or Regulatory Organization",
		"name":               "Board of Elections",
	})

	assert.False(t, res.Eligible)
	assert.False(t, resultFor(t, res, RuleHasContactInfo).Passed)
	assert.False(t, hasResult(res, RuleAdvisoryExemption), "type-specific rules must not be evaluated")
}

func TestEvaluate_NonprofitExemptionPrecedence(t *testing.T) {
	cfg, err := NewConfig(Exemptions{Nonprofit: []string{"Brooklyn Public Library"}}, Overrides{}, Patterns{})
	require.NoError(t, err)
	e := newTestEngine(t, cfg)

	res := e.Evaluate(model.Record{
		"record_id":                   "NYC_GOID_000005",
		"operational_status":          "Active",
		"organization_type":           "Nonprofit Organization",
		"name":                        "brooklyn  public library",
		"in_org_chart":                "false",
		"principal_officer_full_name": "Jane Doe",
	})

	assert.True(t, res.Eligible)
	assert.Contains(t, res.Reasoning, "Nonprofit exemption: Brooklyn Public Library")
}

func TestEvaluate_StateURLFailsRegardlessOfType(t *testing.T) {
	e := newTestEngine(t, nil)

	for _, typ := range model.OrganizationTypes {
		t.Run(string(typ), func(t *testing.T) {
			res := e.Evaluate(model.Record{
				"record_id":          "NYC_GOID_000006",
				"operational_status": "Active",
				"organization_type":  string(typ),
				"name":               "Board of Elections",
				"in_org_chart":       "True",
				"url":                "https://agency.ny.gov/about",
			})
			assert.False(t, res.Eligible)
			assert.False(t, resultFor(t, res, RuleNotStateURL).Passed)
			assert.Contains(t, res.Reasoning, "✗ Not state government URL (state url: agency.ny.gov)")
		})
	}
}

func TestEvaluate_StateGovernmentExemption(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
exemptions:
  state_government:
    - Example State Authority
`))
	require.NoError(t, err)
	e := newTestEngine(t, cfg)

	rec := model.Record{
		"record_id":          "NYC_GOID_000007",
		"operational_status": "Active",
		"organization_type":  "State Government Agency",
		"name":               "Example State Authority",
		"url":                "https://authority.ny.gov",
	}
	res := e.Evaluate(rec)
	assert.True(t, res.Eligible)
	assert.Equal(t, "state exemption: Example State Authority", resultFor(t, res, RuleNotStateURL).Detail)
	assert.True(t, resultFor(t, res, RuleStateGovtExemption).Passed)

	rec["name"] = "Some Other Authority"
	res = e.Evaluate(rec)
	assert.False(t, res.Eligible)
}

func TestEvaluate_CityURLIsNotState(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"operational_status": "Active",
		"organization_type":  "Mayoral Office",
		"url":                "https://www.nyc.gov/site/ny/index.page",
	})
	assert.True(t, resultFor(t, res, RuleNotStateURL).Passed)
	assert.True(t, res.Eligible)
}

func TestEvaluate_HasContactInfoGate(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "NYC_GOID_000008",
		"operational_status": "Active",
		"organization_type":  "Mayoral Agency",
	})
	assert.False(t, res.Eligible)
	assert.Contains(t, res.Reasoning, "✗ Has contact info (no url or principal officer)")

	res = e.Evaluate(model.Record{
		"record_id":                     "NYC_GOID_000008",
		"operational_status":            "Active",
		"organization_type":             "Mayoral Agency",
		"principal_officer_contact_url": "https://www.nyc.gov/contact",
	})
	assert.True(t, res.Eligible)
}

func TestEvaluate_AdvisoryMainURL(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"operational_status": "Active",
		"organization_type":  "Advisory or Regulatory Organization",
		"name":               "Some Commission",
		"url":                "https://www.nyc.gov/site/commission/index.page",
	})
	assert.True(t, res.Eligible)
	assert.True(t, resultFor(t, res, RuleMainNYCGovURL).Passed)
}

func TestEvaluate_UnknownTypeIneligibleWithWarning(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "NYC_GOID_000009",
		"operational_status": "Active",
		"organization_type":  "Borough President",
		"url":                "https://x.nyc.gov",
	})
	assert.False(t, res.Eligible)
	assert.Contains(t, res.Reasoning, "✗ No type-specific rule for this organization type")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "organization_type")
}

func TestEvaluate_EmptyRecordNeverPanics(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(nil)
	assert.False(t, res.Eligible)
	assert.NotEmpty(t, res.Reasoning)
	assert.NotEmpty(t, res.Warnings)
}

func TestEvaluate_ManualOverrides(t *testing.T) {
	cfg, err := NewConfig(Exemptions{}, Overrides{
		ForceTrue:  []string{"FORCE_T"},
		ForceFalse: []string{"FORCE_F"},
	}, Patterns{})
	require.NoError(t, err)
	e := newTestEngine(t, cfg)

	res := e.Evaluate(model.Record{
		"record_id":          "FORCE_T",
		"operational_status": "Dissolved",
		"organization_type":  "Nonprofit Organization",
		"url":                "https://agency.ny.gov",
	})
	assert.True(t, res.Eligible)
	assert.Equal(t, "Manual override: forced TRUE", res.Reasoning)
	assert.Len(t, res.RuleResults, 1)

	res = e.Evaluate(model.Record{
		"record_id":          "FORCE_F",
		"operational_status": "Active",
		"organization_type":  "Mayoral Agency",
		"url":                "https://x.nyc.gov",
	})
	assert.False(t, res.Eligible)
	assert.Equal(t, "Manual override: forced FALSE", res.Reasoning)
	assert.Contains(t, res.ReasoningDetailed, "All other rules bypassed.")
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := newTestEngine(t, nil)
	rec := model.Record{
		"record_id":          "NYC_GOID_000010",
		"operational_status": "active",
		"organization_type":  "Advisory or Regulatory Organization",
		"name":               "Board of Elections",
		"in_org_chart":       "yes",
		"url":                "https://www.nyc.gov/site/boe/index.page",
	}

	first := e.Evaluate(rec)
	second := e.Evaluate(rec)
	assert.Equal(t, first, second)
}

func TestEvaluate_GatekeeperFailureBeatsExemption(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"operational_status": "Reorganized",
		"organization_type":  "Advisory or Regulatory Organization",
		"name":               "Board of Elections",
		"url":                "https://www.vote.nyc",
	})
	assert.False(t, res.Eligible)
	assert.False(t, hasResult(res, RuleAdvisoryExemption))
}

func TestEvaluate_UnparseableInOrgChartWarns(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Evaluate(model.Record{
		"record_id":          "X",
		"operational_status": "Active",
		"organization_type":  "Division",
		"in_org_chart":       "sometimes",
		"url":                "https://x.nyc.gov",
	})
	assert.False(t, res.Eligible)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "in_org_chart")
}

func TestDecide(t *testing.T) {
	forced := true
	tests := []struct {
		name    string
		results []RuleResult
		want    bool
	}{
		{"empty", nil, false},
		{"override", []RuleResult{{Category: CategoryOverride, Passed: true, Forces: &forced}}, true},
		{"gates only", []RuleResult{{Category: CategoryGatekeeper, Passed: true}}, false},
		{"gate failed", []RuleResult{
			{Category: CategoryGatekeeper, Passed: false},
			{Category: CategoryTypeSpecific, Applicable: true, Passed: true},
		}, false},
		{"staged passed", []RuleResult{
			{Category: CategoryGatekeeper, Passed: true},
			{Category: CategoryExemption, Applicable: true, Passed: true},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.results))
		})
	}
}
