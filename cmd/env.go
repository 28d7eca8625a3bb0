package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/nyc-orr/governance-orgs/internal/eligibility"
	"github.com/nyc-orr/governance-orgs/internal/store"
)

// initStore opens the run history store. A nil store with a nil error means
// history is disabled (store.driver=none).
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initEngine builds the eligibility engine from rules.file, falling back to
// the built-in configuration.
func initEngine() (*eligibility.Engine, error) {
	rc, err := eligibility.LoadConfig(cfg.Rules.File)
	if err != nil {
		return nil, err
	}
	return eligibility.NewEngine(rc)
}

func closeStore(st store.Store) {
	if st != nil {
		_ = st.Close()
	}
}
