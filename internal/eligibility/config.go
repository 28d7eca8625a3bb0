package eligibility

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultMainURLPattern loosely identifies a canonical nyc.gov landing page.
const DefaultMainURLPattern = `(?i)nyc\.gov/.*index\.page`

// Exemptions are organization names granted an exception to a rule.
type Exemptions struct {
	Nonprofit       []string `yaml:"nonprofit" json:"nonprofit"`
	Advisory        []string `yaml:"advisory" json:"advisory"`
	StateGovernment []string `yaml:"state_government" json:"state_government"`
}

// Overrides force the decision for specific record ids.
type Overrides struct {
	ForceTrue  []string `yaml:"force_true" json:"force_true"`
	ForceFalse []string `yaml:"force_false" json:"force_false"`
}

// Patterns holds the URL heuristics used by the rules.
type Patterns struct {
	MainNYCGovURL string `yaml:"main_nyc_gov_url" json:"main_nyc_gov_url"`
	StateDomain   string `yaml:"state_domain" json:"state_domain"`
	CityDomain    string `yaml:"city_domain" json:"city_domain"`
}

// Config is the read-only rule configuration. Build it with DefaultConfig
// or LoadConfig; both return a compiled, validated value.
type Config struct {
	Exemptions Exemptions `yaml:"exemptions" json:"exemptions"`
	Overrides  Overrides  `yaml:"overrides" json:"overrides"`
	Patterns   Patterns   `yaml:"patterns" json:"patterns"`

	mainURL         *regexp.Regexp
	nonprofit       map[string]string
	advisory        map[string]string
	stateGovernment map[string]string
	forceTrue       map[string]bool
	forceFalse      map[string]bool
}

func defaults() *Config {
	return &Config{
		Exemptions: Exemptions{
			Advisory: []string{"Board of Elections"},
		},
		Patterns: Patterns{
			MainNYCGovURL: DefaultMainURLPattern,
			StateDomain:   "ny.gov",
			CityDomain:    "nyc.gov",
		},
	}
}

// DefaultConfig returns the built-in rule configuration.
func DefaultConfig() *Config {
	cfg := defaults()
	if err := cfg.compile(); err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads a YAML rule configuration. Keys absent from the file keep
// their built-in values. An empty path yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "eligibility: read rule config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML rule configuration over the built-in defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrap(err, "eligibility: parse rule config")
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfig compiles a Config assembled in code.
func NewConfig(ex Exemptions, ov Overrides, p Patterns) (*Config, error) {
	d := defaults().Patterns
	if p.MainNYCGovURL == "" {
		p.MainNYCGovURL = d.MainNYCGovURL
	}
	if p.StateDomain == "" {
		p.StateDomain = d.StateDomain
	}
	if p.CityDomain == "" {
		p.CityDomain = d.CityDomain
	}
	cfg := &Config{Exemptions: ex, Overrides: ov, Patterns: p}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) compile() error {
	re, err := regexp.Compile(c.Patterns.MainNYCGovURL)
	if err != nil {
		return eris.Wrapf(err, "eligibility: compile main_nyc_gov_url pattern %q", c.Patterns.MainNYCGovURL)
	}
	c.mainURL = re

	if strings.TrimSpace(c.Patterns.StateDomain) == "" || strings.TrimSpace(c.Patterns.CityDomain) == "" {
		return eris.New("eligibility: state_domain and city_domain must be set")
	}

	c.nonprofit = nameSet(c.Exemptions.Nonprofit)
	c.advisory = nameSet(c.Exemptions.Advisory)
	c.stateGovernment = nameSet(c.Exemptions.StateGovernment)
	c.forceTrue = idSet(c.Overrides.ForceTrue)
	c.forceFalse = idSet(c.Overrides.ForceFalse)

	for id := range c.forceTrue {
		if c.forceFalse[id] {
			return eris.Errorf("eligibility: record %s is in both force_true and force_false", id)
		}
	}
	return nil
}

// normalizeName folds case and internal whitespace for list membership.
func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func nameSet(names []string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		if k := normalizeName(n); k != "" {
			m[k] = strings.TrimSpace(n)
		}
	}
	return m
}

func idSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			m[id] = true
		}
	}
	return m
}

// lookup returns the configured spelling of name if it is in set.
func lookup(set map[string]string, name string) (string, bool) {
	v, ok := set[normalizeName(name)]
	return v, ok
}
