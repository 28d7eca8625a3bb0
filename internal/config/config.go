package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the dataset, run bundles, and published artifacts.
type PathsConfig struct {
	Golden       string `yaml:"golden" mapstructure:"golden"`
	Edits        string `yaml:"edits" mapstructure:"edits"`
	RunsDir      string `yaml:"runs_dir" mapstructure:"runs_dir"`
	PublishedDir string `yaml:"published_dir" mapstructure:"published_dir"`
	Ledger       string `yaml:"ledger" mapstructure:"ledger"`
}

// RulesConfig points at the eligibility rule configuration. An empty file
// means the built-in configuration.
type RulesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// PipelineConfig configures a curation run.
type PipelineConfig struct {
	Descriptor     string   `yaml:"descriptor" mapstructure:"descriptor"`
	DirectoryField string   `yaml:"directory_field" mapstructure:"directory_field"`
	TrackedFields  []string `yaml:"tracked_fields" mapstructure:"tracked_fields"`
	BooleanFields  []string `yaml:"boolean_fields" mapstructure:"boolean_fields"`
	Operator       string   `yaml:"operator" mapstructure:"operator"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ORGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.golden", "data/golden/golden_dataset.csv")
	v.SetDefault("paths.edits", "")
	v.SetDefault("paths.runs_dir", "data/runs")
	v.SetDefault("paths.published_dir", "data/published")
	v.SetDefault("paths.ledger", "data/changelog.csv")
	v.SetDefault("rules.file", "")
	v.SetDefault("pipeline.descriptor", "run")
	v.SetDefault("pipeline.directory_field", "listed_in_nyc_gov_agency_directory")
	v.SetDefault("pipeline.tracked_fields", []string{})
	v.SetDefault("pipeline.boolean_fields", []string{"in_org_chart", "listed_in_nyc_gov_agency_directory"})
	v.SetDefault("pipeline.operator", "pipeline")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be one of sqlite, postgres, none", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}

	switch mode {
	case "run":
		if c.Paths.Golden == "" {
			errs = append(errs, "paths.golden is required")
		}
		if c.Paths.RunsDir == "" {
			errs = append(errs, "paths.runs_dir is required")
		}
		if c.Pipeline.DirectoryField == "" {
			errs = append(errs, "pipeline.directory_field is required")
		}
	case "publish":
		if c.Paths.PublishedDir == "" {
			errs = append(errs, "paths.published_dir is required")
		}
		if c.Paths.Ledger == "" {
			errs = append(errs, "paths.ledger is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	case "":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
