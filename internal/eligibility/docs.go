package eligibility

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// RuleDoc is the documentation view of a rule.
type RuleDoc struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Types       []string `json:"types,omitempty"`
	Description string   `json:"description"`
}

// Document lists rules in evaluation order.
func Document(rules []Rule) []RuleDoc {
	docs := make([]RuleDoc, 0, len(rules))
	for _, r := range rules {
		d := RuleDoc{Name: r.Name, Category: r.Category, Description: r.Description}
		for _, t := range r.Types {
			d.Types = append(d.Types, string(t))
		}
		docs = append(docs, d)
	}
	return docs
}

// WriteRuleTable writes the rule table as aligned text.
func WriteRuleTable(out io.Writer, rules []Rule) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RULE\tCATEGORY\tTYPES\tDESCRIPTION")
	for _, d := range Document(rules) {
		types := "all"
		if len(d.Types) > 0 {
			types = strings.Join(d.Types, "; ")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Category, types, d.Description)
	}
	return w.Flush()
}
