package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nyc-orr/governance-orgs/internal/pipeline"
)

var (
	runGolden     string
	runEdits      string
	runRunsDir    string
	runDescriptor string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one curation pass and bundle the pre-release outputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyRunFlags()
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		engine, err := initEngine()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		p, err := pipeline.New(engine, st, pipeline.Options{
			GoldenPath:     cfg.Paths.Golden,
			EditsPath:      cfg.Paths.Edits,
			RunsDir:        cfg.Paths.RunsDir,
			Descriptor:     cfg.Pipeline.Descriptor,
			DirectoryField: cfg.Pipeline.DirectoryField,
			TrackedFields:  cfg.Pipeline.TrackedFields,
			BooleanFields:  cfg.Pipeline.BooleanFields,
			Operator:       cfg.Pipeline.Operator,
		})
		if err != nil {
			return err
		}

		res, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Summary)
	},
}

// applyRunFlags lets explicit flags win over config values.
func applyRunFlags() {
	if runGolden != "" {
		cfg.Paths.Golden = runGolden
	}
	if runEdits != "" {
		cfg.Paths.Edits = runEdits
	}
	if runRunsDir != "" {
		cfg.Paths.RunsDir = runRunsDir
	}
	if runDescriptor != "" {
		cfg.Pipeline.Descriptor = runDescriptor
	}
}

func init() {
	runCmd.Flags().StringVar(&runGolden, "golden", "", "golden dataset CSV (default from config)")
	runCmd.Flags().StringVar(&runEdits, "edits", "", "analyst edits file, CSV or XLSX (default from config)")
	runCmd.Flags().StringVar(&runRunsDir, "runs-dir", "", "directory that receives run bundles (default from config)")
	runCmd.Flags().StringVar(&runDescriptor, "descriptor", "", "short label appended to the run version")
	rootCmd.AddCommand(runCmd)
}
