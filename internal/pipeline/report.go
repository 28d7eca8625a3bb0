package pipeline

import (
	"strings"

	"github.com/nyc-orr/governance-orgs/internal/dataset"
	"github.com/nyc-orr/governance-orgs/internal/eligibility"
	"github.com/nyc-orr/governance-orgs/internal/model"
)

var eligibilityReportHeader = []string{
	"record_id", "name", "eligible", "reasoning", "reasoning_detailed", "warnings",
}

var directoryChangesHeader = []string{
	"record_id", "name", "old_value", "new_value", "reason", "reasoning",
}

// writeEligibilityReport writes one row per record, in dataset order.
// results is parallel to snap.Records.
func writeEligibilityReport(path string, snap *model.Snapshot, results []*eligibility.Result) error {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		rows = append(rows, []string{
			r.RecordID,
			snap.Records[i].Get(model.FieldName),
			model.FormatBool(r.Eligible),
			r.Reasoning,
			r.ReasoningDetailed,
			strings.Join(r.Warnings, "; "),
		})
	}
	return dataset.WriteTable(path, eligibilityReportHeader, rows)
}

// writeDirectoryChanges writes the subset of entries that touch the
// directory flag.
func writeDirectoryChanges(path, field string, snap *model.Snapshot, entries []model.ChangelogEntry) error {
	idx := snap.Index()
	var rows [][]string
	for _, e := range entries {
		if e.Field != field {
			continue
		}
		name := ""
		if i, ok := idx[e.RecordID]; ok {
			name = snap.Records[i].Get(model.FieldName)
		}
		rows = append(rows, []string{e.RecordID, name, e.OldValue, e.NewValue, e.Reason, e.Notes})
	}
	return dataset.WriteTable(path, directoryChangesHeader, rows)
}
