package model

import "strings"

// OperationalStatus is the lifecycle state of an organization.
type OperationalStatus string

// Operational status values.
const (
	StatusActive              OperationalStatus = "Active"
	StatusInactive            OperationalStatus = "Inactive"
	StatusDissolved           OperationalStatus = "Dissolved"
	StatusReorganized         OperationalStatus = "Reorganized"
	StatusVerificationPending OperationalStatus = "Verification Pending"
	StatusExcluded            OperationalStatus = "Excluded"
)

// OperationalStatuses lists every known status in display order.
var OperationalStatuses = []OperationalStatus{
	StatusActive,
	StatusInactive,
	StatusDissolved,
	StatusReorganized,
	StatusVerificationPending,
	StatusExcluded,
}

// ParseOperationalStatus matches s case-insensitively against the known statuses.
func ParseOperationalStatus(s string) (OperationalStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range OperationalStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return OperationalStatus(s), false
}

// OrganizationType categorizes an organization.
type OrganizationType string

// Organization types.
const (
	TypeMayoralAgency      OrganizationType = "Mayoral Agency"
	TypeMayoralOffice      OrganizationType = "Mayoral Office"
	TypeElectedOffice      OrganizationType = "Elected Office"
	TypePensionFund        OrganizationType = "Pension Fund"
	TypeDivision           OrganizationType = "Division"
	TypePublicBenefit      OrganizationType = "Public Benefit or Development Organization"
	TypeNonprofit          OrganizationType = "Nonprofit Organization"
	TypeAdvisoryRegulatory OrganizationType = "Advisory or Regulatory Organization"
	TypeStateGovernment    OrganizationType = "State Government Agency"
)

// OrganizationTypes lists every known organization type.
var OrganizationTypes = []OrganizationType{
	TypeMayoralAgency,
	TypeMayoralOffice,
	TypeElectedOffice,
	TypePensionFund,
	TypeDivision,
	TypePublicBenefit,
	TypeNonprofit,
	TypeAdvisoryRegulatory,
	TypeStateGovernment,
}

// ParseOrganizationType matches s case-insensitively against the known types.
func ParseOrganizationType(s string) (OrganizationType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range OrganizationTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return OrganizationType(s), false
}
