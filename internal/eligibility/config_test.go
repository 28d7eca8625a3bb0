package eligibility

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{"Board of Elections"}, cfg.Exemptions.Advisory)
	assert.Empty(t, cfg.Exemptions.StateGovernment)
	assert.Equal(t, DefaultMainURLPattern, cfg.Patterns.MainNYCGovURL)
	assert.Equal(t, "ny.gov", cfg.Patterns.StateDomain)
	assert.Equal(t, "nyc.gov", cfg.Patterns.CityDomain)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Exemptions, cfg.Exemptions)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `
exemptions:
  nonprofit: ["Queens Public Library"]
overrides:
  force_true: ["NYC_GOID_000123"]
patterns:
  main_nyc_gov_url: 'nyc\.gov/site/.+'
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Queens Public Library"}, cfg.Exemptions.Nonprofit)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, []string{"Board of Elections"}, cfg.Exemptions.Advisory)
	assert.Equal(t, "ny.gov", cfg.Patterns.StateDomain)
	assert.True(t, cfg.forceTrue["NYC_GOID_000123"])
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read rule config")
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "exemptions: [", "parse rule config"},
		{"bad pattern", "patterns:\n  main_nyc_gov_url: '('\n", "compile main_nyc_gov_url"},
		{"override conflict", "overrides:\n  force_true: [A]\n  force_false: [A]\n", "both force_true and force_false"},
		{"blank domain", "patterns:\n  city_domain: ''\n", "must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateRules(t *testing.T) {
	pass := func(*Subject, *Config) Outcome { return Outcome{Passed: true} }

	tests := []struct {
		name  string
		rules []Rule
		want  string
	}{
		{"empty", nil, "empty rule table"},
		{"no name", []Rule{{Category: CategoryGatekeeper, Check: pass}}, "has no name"},
		{"duplicate", []Rule{
			{Name: "a", Category: CategoryGatekeeper, Check: pass},
			{Name: "a", Category: CategoryGatekeeper, Check: pass},
		}, "duplicate rule"},
		{"no predicate", []Rule{{Name: "a", Category: CategoryGatekeeper}}, "no predicate"},
		{"type rule without types", []Rule{{Name: "a", Category: CategoryTypeSpecific, Check: pass}}, "has no organization types"},
		{"unknown type", []Rule{{
			Name: "a", Category: CategoryExemption, Check: pass,
			Types: []model.OrganizationType{"Borough President"},
		}}, "unknown organization type"},
		{"gatekeeper with types", []Rule{{
			Name: "a", Category: CategoryGatekeeper, Check: pass,
			Types: []model.OrganizationType{model.TypeDivision},
		}}, "must not be restricted"},
		{"unknown category", []Rule{{Name: "a", Category: "misc", Check: pass}}, "unknown category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRules(tt.rules)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			_, err = NewEngineWithRules(DefaultConfig(), tt.rules)
			require.Error(t, err)
		})
	}

	require.NoError(t, ValidateRules(DefaultRules()))
}

func TestNewEngine_NilConfig(t *testing.T) {
	_, err := NewEngine(nil)
	require.Error(t, err)
}
