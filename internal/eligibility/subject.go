package eligibility

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Subject is the typed view of a record that rules evaluate. Free-text
// fields are parsed once here; anything unparseable is recorded as a
// warning and treated as absent.
type Subject struct {
	RecordID                   string
	Name                       string
	Status                     model.OperationalStatus
	Type                       model.OrganizationType
	URL                        string
	Host                       string
	PrincipalOfficerName       string
	PrincipalOfficerContactURL string
	InOrgChart                 bool
	Warnings                   []string
}

// NewSubject builds a Subject from a raw record.
func NewSubject(r model.Record) *Subject {
	s := &Subject{
		RecordID:                   r.ID(),
		Name:                       r.Get(model.FieldName),
		URL:                        r.Get(model.FieldURL),
		PrincipalOfficerName:       r.Get(model.FieldPrincipalOfficerFullName),
		PrincipalOfficerContactURL: r.Get(model.FieldPrincipalOfficerContactURL),
	}

	if s.RecordID == "" {
		s.warn("missing %s", model.FieldRecordID)
	}

	status, ok := model.ParseOperationalStatus(r.Get(model.FieldOperationalStatus))
	s.Status = status
	if !ok {
		s.warn("unrecognized %s %q", model.FieldOperationalStatus, status)
	}

	typ, ok := model.ParseOrganizationType(r.Get(model.FieldOrganizationType))
	s.Type = typ
	if !ok {
		s.warn("unrecognized %s %q", model.FieldOrganizationType, typ)
	}

	if raw := r.Get(model.FieldInOrgChart); raw != "" {
		v, ok := model.ParseBool(raw)
		if !ok {
			s.warn("unparseable %s %q, treated as false", model.FieldInOrgChart, raw)
		}
		s.InOrgChart = v
	}

	if s.URL != "" {
		host, err := hostOf(s.URL)
		if err != nil {
			s.warn("unparseable %s %q", model.FieldURL, s.URL)
		}
		s.Host = host
	}

	return s
}

func (s *Subject) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// hostOf returns the lowercased hostname of raw. Scheme-less values such as
// "www.nyc.gov/site" are accepted.
func hostOf(raw string) (string, error) {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return "", eris.Errorf("no host in %q", raw)
	}
	return host, nil
}

// inDomain reports whether host is domain or one of its subdomains.
func inDomain(host, domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	return host == domain || strings.HasSuffix(host, "."+domain)
}
