// Package store persists pipeline run history.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/nyc-orr/governance-orgs/internal/model"
	"github.com/nyc-orr/governance-orgs/internal/resilience"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	GetRunByVersion(ctx context.Context, version string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"

	defaultSQLitePath = "orgs.db"
	defaultListLimit  = 100
)

// Config selects and locates the run history database.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Open connects to the configured store and migrates it, retrying
// transient failures with the default resilience policy. The "none" driver
// returns a nil Store and no error; callers then skip run history.
func Open(ctx context.Context, cfg Config) (Store, error) {
	return OpenWithPolicy(ctx, cfg, resilience.DefaultPolicy())
}

// OpenWithPolicy is Open with an explicit retry policy.
func OpenWithPolicy(ctx context.Context, cfg Config, policy resilience.Policy) (Store, error) {
	var connect func(ctx context.Context) (Store, error)
	switch cfg.Driver {
	case DriverNone:
		return nil, nil
	case DriverSQLite, "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		connect = func(context.Context) (Store, error) { return NewSQLite(dsn) }
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires store.database_url")
		}
		connect = func(ctx context.Context) (Store, error) { return NewPostgres(ctx, cfg.DatabaseURL, nil) }
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetry("store", "open "+cfg.Driver)
	}
	return resilience.DoVal(ctx, policy, func(ctx context.Context) (Store, error) {
		s, err := connect(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil
	})
}

func listLimit(filter RunFilter) int {
	if filter.Limit <= 0 {
		return defaultListLimit
	}
	return filter.Limit
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
