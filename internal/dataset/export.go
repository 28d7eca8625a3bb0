package dataset

import (
	"github.com/nyc-orr/governance-orgs/internal/model"
)

// ColumnMapping maps a golden dataset column to its published name.
type ColumnMapping struct {
	Source string
	Public string
}

// PublicColumns is the ordered column set of the published dataset. Golden
// columns not listed here are internal and never published.
var PublicColumns = []ColumnMapping{
	{Source: model.FieldRecordID, Public: "record_id"},
	{Source: model.FieldName, Public: "name"},
	{Source: "name_alphabetized", Public: "name_alphabetized"},
	{Source: model.FieldOperationalStatus, Public: "operational_status"},
	{Source: model.FieldOrganizationType, Public: "organization_type"},
	{Source: model.FieldURL, Public: "url"},
	{Source: "alternate_or_former_names", Public: "alternate_or_former_names"},
	{Source: "acronym", Public: "acronym"},
	{Source: "alternate_or_former_acronyms", Public: "alternate_or_former_acronyms"},
	{Source: "description", Public: "description"},
	{Source: "principal_officer_title", Public: "principal_officer_title"},
	{Source: model.FieldPrincipalOfficerFullName, Public: "principal_officer_name"},
	{Source: model.FieldPrincipalOfficerContactURL, Public: "principal_officer_contact_link"},
	{Source: "parent_organization", Public: "reports_to"},
	{Source: "jan_2025_org_chart", Public: "jan_2025_org_chart"},
	{Source: model.FieldInOrgChart, Public: "in_org_chart"},
	{Source: model.FieldDirectoryListed, Public: "listed_in_nyc_gov_agency_directory"},
}

// Export builds the public view of golden: columns are filtered and renamed
// by mapping, in mapping order. A mapped column absent from golden is
// published blank.
func Export(golden *model.Snapshot, mapping []ColumnMapping) *model.Snapshot {
	out := &model.Snapshot{
		Header:  make([]string, len(mapping)),
		Records: make([]model.Record, len(golden.Records)),
	}
	for i, m := range mapping {
		out.Header[i] = m.Public
	}
	for i, rec := range golden.Records {
		pub := make(model.Record, len(mapping))
		for _, m := range mapping {
			pub[m.Public] = rec[m.Source]
		}
		out.Records[i] = pub
	}
	return out
}

// ExportPublic applies PublicColumns.
func ExportPublic(golden *model.Snapshot) *model.Snapshot {
	return Export(golden, PublicColumns)
}
