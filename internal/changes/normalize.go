// Package changes detects field-level differences between two snapshots of
// the record set and turns them into changelog entries keyed by a
// deterministic event id.
package changes

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// DefaultBooleanFields are the columns whose values are compared as booleans.
var DefaultBooleanFields = []string{
	model.FieldInOrgChart,
	model.FieldDirectoryListed,
}

// Normalizer canonicalizes field values for comparison and display.
type Normalizer struct {
	booleans map[string]bool
}

// NewNormalizer treats booleanFields as boolean-typed columns.
func NewNormalizer(booleanFields []string) *Normalizer {
	n := &Normalizer{booleans: make(map[string]bool, len(booleanFields))}
	for _, f := range booleanFields {
		n.booleans[f] = true
	}
	return n
}

// IsBoolean reports whether field is compared as a boolean.
func (n *Normalizer) IsBoolean(field string) bool {
	return n.booleans[field]
}

// Display returns the canonical form of value: trimmed and NFC-composed,
// and for boolean columns rendered as "True"/"False" when recognisable.
func (n *Normalizer) Display(field, value string) string {
	v := norm.NFC.String(strings.TrimSpace(value))
	if n.booleans[field] {
		if b, ok := model.ParseBool(v); ok {
			return model.FormatBool(b)
		}
	}
	return v
}

// Equal reports whether a and b are the same value of field after
// normalization.
func (n *Normalizer) Equal(field, a, b string) bool {
	return n.Display(field, a) == n.Display(field, b)
}

// foldKey is the event-id normalization: trim, Unicode NFC, lowercase.
func foldKey(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
