package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/model"
	"github.com/nyc-orr/governance-orgs/internal/publish"
	"github.com/nyc-orr/governance-orgs/internal/store"
)

var (
	publishDir    string
	publishLedger string
)

var publishCmd = &cobra.Command{
	Use:   "publish <run-dir>",
	Short: "Promote a reviewed run to latest and append its changelog to the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if publishDir != "" {
			cfg.Paths.PublishedDir = publishDir
		}
		if publishLedger != "" {
			cfg.Paths.Ledger = publishLedger
		}
		if err := cfg.Validate("publish"); err != nil {
			return err
		}

		res, err := publish.Publish(ctx, publish.Options{
			RunDir:       args[0],
			PublishedDir: cfg.Paths.PublishedDir,
			LedgerPath:   cfg.Paths.Ledger,
		})
		if err != nil {
			return eris.Wrap(err, "publish")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)
		markPublished(ctx, st, res)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// markPublished records the promotion in run history. The published
// artifacts are already in place, so failures here are only logged.
func markPublished(ctx context.Context, st store.Store, res *publish.Result) {
	if st == nil {
		return
	}
	log := zap.L().With(zap.String("component", "publish"), zap.String("version", res.Version))

	run, err := st.GetRunByVersion(ctx, res.Version)
	if err != nil {
		log.Warn("publish: run not found in history", zap.Error(err))
		return
	}
	if err := st.UpdateRunResult(ctx, run.ID, model.RunStatusPublished, res.Summary); err != nil {
		log.Warn("publish: failed to record publication", zap.Error(err))
	}
}

func init() {
	publishCmd.Flags().StringVar(&publishDir, "published-dir", "", "published directory (default from config)")
	publishCmd.Flags().StringVar(&publishLedger, "ledger", "", "master changelog ledger (default from config)")
	rootCmd.AddCommand(publishCmd)
}
