package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nyc-orr/governance-orgs/internal/eligibility"
	"github.com/nyc-orr/governance-orgs/internal/model"
)

var (
	evalFields []string
	evalText   bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Decide directory eligibility for a single record",
	Example: `  orgs-cli evaluate --field record_id=X1 --field name="Department of Sanitation" \
    --field operational_status=Active --field organization_type="Mayoral Agency" \
    --field url=https://www.nyc.gov/site/dsny/index.page`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := parseFields(evalFields)
		if err != nil {
			return err
		}
		engine, err := initEngine()
		if err != nil {
			return err
		}
		return writeEvaluation(os.Stdout, engine.Evaluate(rec), evalText)
	},
}

// parseFields turns repeated key=value flags into a record.
func parseFields(pairs []string) (model.Record, error) {
	if len(pairs) == 0 {
		return nil, eris.New("evaluate: at least one --field is required")
	}
	rec := make(model.Record, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, eris.Errorf("evaluate: field %q is not key=value", p)
		}
		rec[k] = v
	}
	return rec, nil
}

func writeEvaluation(w io.Writer, res *eligibility.Result, text bool) error {
	if !text {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, _ = fmt.Fprintf(w, "record_id: %s\neligible: %s\nreasoning: %s\n\n%s", res.RecordID, model.FormatBool(res.Eligible), res.Reasoning, res.ReasoningDetailed)
	for _, warn := range res.Warnings {
		_, _ = fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}

func init() {
	evaluateCmd.Flags().StringArrayVar(&evalFields, "field", nil, "record field as key=value (repeatable)")
	evaluateCmd.Flags().BoolVar(&evalText, "text", false, "print reasoning as text instead of JSON")
	rootCmd.AddCommand(evaluateCmd)
}
