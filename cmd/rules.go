package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyc-orr/governance-orgs/internal/eligibility"
)

var rulesJSON bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the directory eligibility rule table",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := initEngine()
		if err != nil {
			return err
		}
		if rulesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(eligibility.Document(engine.Rules()))
		}
		return eligibility.WriteRuleTable(os.Stdout, engine.Rules())
	},
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "print the rule table as JSON")
	rootCmd.AddCommand(rulesCmd)
}
