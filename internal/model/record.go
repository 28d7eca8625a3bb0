package model

import (
	"slices"
	"strings"
)

// Golden dataset columns referenced by the pipeline.
const (
	FieldRecordID                   = "record_id"
	FieldName                       = "name"
	FieldOperationalStatus          = "operational_status"
	FieldOrganizationType           = "organization_type"
	FieldURL                        = "url"
	FieldPrincipalOfficerFullName   = "principal_officer_full_name"
	FieldPrincipalOfficerContactURL = "principal_officer_contact_url"
	FieldInOrgChart                 = "in_org_chart"
	FieldDirectoryListed            = "listed_in_nyc_gov_agency_directory"
)

// Record is one row of the governance organizations dataset, keyed by column
// name. Every field is optional; absent fields read as the empty string.
type Record map[string]string

// Get returns the trimmed value of field, or "" when absent.
func (r Record) Get(field string) string {
	return strings.TrimSpace(r[field])
}

// ID returns the record's stable identifier.
func (r Record) ID() string {
	return r.Get(FieldRecordID)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Snapshot is an ordered record set together with its column order.
type Snapshot struct {
	Header  []string `json:"header"`
	Records []Record `json:"records"`
}

// Clone deep-copies the snapshot so callers can mutate rows freely.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Header:  slices.Clone(s.Header),
		Records: make([]Record, len(s.Records)),
	}
	for i, r := range s.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// HasColumn reports whether the snapshot header contains col.
func (s *Snapshot) HasColumn(col string) bool {
	return slices.Contains(s.Header, col)
}

// EnsureColumn appends col to the header if it is missing.
func (s *Snapshot) EnsureColumn(col string) {
	if !s.HasColumn(col) {
		s.Header = append(s.Header, col)
	}
}

// Index maps record_id to position. Rows without an id are skipped; on
// duplicate ids the first occurrence wins.
func (s *Snapshot) Index() map[string]int {
	idx := make(map[string]int, len(s.Records))
	for i, r := range s.Records {
		id := r.ID()
		if id == "" {
			continue
		}
		if _, dup := idx[id]; !dup {
			idx[id] = i
		}
	}
	return idx
}

// ParseBool interprets the free-text booleans found in the source data.
// ok is false when s is neither a recognised true nor false spelling.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y":
		return true, true
	case "false", "f", "0", "no", "n":
		return false, true
	}
	return false, false
}

// FormatBool renders a boolean the way the dataset stores it.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
