package model

// Change reasons recorded when the pipeline, not an analyst, produced a change.
const (
	ReasonRuleApplication = "automatic rule application"
	ReasonManualOverride  = "manual override"
	ReasonAnalystEdit     = "analyst edit"
)

// ChangeRecord is one detected field-level difference between two snapshots.
type ChangeRecord struct {
	RecordID    string `json:"record_id"`
	Field       string `json:"field"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
	Reason      string `json:"reason,omitempty"`
	EvidenceURL string `json:"evidence_url,omitempty"`
	SourceRef   string `json:"source_ref,omitempty"`
	Operator    string `json:"operator,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// ChangelogEntry is one row of the append-only changelog ledger. Column
// order is the ledger's on-disk header order.
type ChangelogEntry struct {
	EventID     string `csv:"event_id" json:"event_id"`
	Timestamp   string `csv:"timestamp" json:"timestamp"`
	RunID       string `csv:"run_id" json:"run_id"`
	RecordID    string `csv:"record_id" json:"record_id"`
	Field       string `csv:"field" json:"field"`
	OldValue    string `csv:"old_value" json:"old_value"`
	NewValue    string `csv:"new_value" json:"new_value"`
	Reason      string `csv:"reason" json:"reason"`
	EvidenceURL string `csv:"evidence_url" json:"evidence_url"`
	SourceRef   string `csv:"source_ref" json:"source_ref"`
	Operator    string `csv:"operator" json:"operator"`
	Notes       string `csv:"notes" json:"notes"`
}

// ChangelogColumns is the ledger header.
var ChangelogColumns = []string{
	"event_id", "timestamp", "run_id", "record_id", "field",
	"old_value", "new_value", "reason", "evidence_url", "source_ref",
	"operator", "notes",
}
