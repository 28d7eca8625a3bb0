package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "orgs-cli",
	Short: "Curate and publish the NYC governance organizations dataset",
	Long:  "Applies analyst edits to the golden dataset, decides nyc.gov directory eligibility, records every field change in an append-only changelog, and promotes reviewed runs to the published location.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
