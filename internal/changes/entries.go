package changes

import (
	"net/url"
	"strings"
	"time"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// SanitizeEvidenceURL returns raw when it is a well-formed http(s) URL and
// "" otherwise. A missing evidence URL never rejects a change.
func SanitizeEvidenceURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return raw
}

// BuildEntries converts detected changes into ledger entries for runID.
// Changes that hash to the same event id within the batch are collapsed to
// the first occurrence.
func BuildEntries(runID string, at time.Time, changes []model.ChangeRecord) []model.ChangelogEntry {
	ts := at.UTC().Format(time.RFC3339)
	seen := make(map[string]bool, len(changes))

	entries := make([]model.ChangelogEntry, 0, len(changes))
	for _, c := range changes {
		id := ComputeEventID(c.RecordID, c.Field, c.OldValue, c.NewValue)
		if seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, model.ChangelogEntry{
			EventID:     id,
			Timestamp:   ts,
			RunID:       runID,
			RecordID:    c.RecordID,
			Field:       c.Field,
			OldValue:    c.OldValue,
			NewValue:    c.NewValue,
			Reason:      c.Reason,
			EvidenceURL: SanitizeEvidenceURL(c.EvidenceURL),
			SourceRef:   c.SourceRef,
			Operator:    c.Operator,
			Notes:       c.Notes,
		})
	}
	return entries
}
