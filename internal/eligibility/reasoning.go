package eligibility

import (
	"fmt"
	"strings"
)

const (
	markPass = "✓"
	markFail = "✗"
	markSkip = "·"
)

// FormatReasoning renders a one-line, pipe-joined explanation: gatekeeper
// marks followed by the type-specific rules that passed.
func FormatReasoning(results []RuleResult) string {
	if rr, ok := matchedOverride(results); ok {
		return "Manual override: " + rr.Detail
	}

	var parts []string
	gatesPassed := true
	for _, rr := range results {
		if rr.Category != CategoryGatekeeper {
			continue
		}
		if rr.Passed {
			parts = append(parts, markPass+" "+rr.Label)
			continue
		}
		gatesPassed = false
		parts = append(parts, fmt.Sprintf("%s %s (%s)", markFail, rr.Label, rr.Detail))
	}
	if !gatesPassed {
		return strings.Join(parts, " | ")
	}

	var applicable []string
	passed := false
	for _, rr := range results {
		if !isStaged(rr) || !rr.Applicable {
			continue
		}
		if rr.Passed {
			passed = true
			parts = append(parts, withDetail(markPass+" "+rr.Label, rr.Detail))
		} else {
			applicable = append(applicable, rr.Label)
		}
	}

	if !passed {
		if len(applicable) == 0 {
			parts = append(parts, markFail+" No type-specific rule for this organization type")
		} else {
			parts = append(parts, fmt.Sprintf("%s No type-specific rule passed (%s)", markFail, strings.Join(applicable, ", ")))
		}
	}
	return strings.Join(parts, " | ")
}

// FormatReasoningDetailed renders a multi-section explanation listing every
// gatekeeper and every type-specific rule.
func FormatReasoningDetailed(results []RuleResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eligible: %s\n", yesNo(Decide(results)))

	if rr, ok := matchedOverride(results); ok {
		fmt.Fprintf(&b, "Manual override (%s): %s\n", rr.Name, rr.Detail)
		b.WriteString("All other rules bypassed.")
		return b.String()
	}

	b.WriteString("Gatekeeper rules (all must pass):\n")
	gatesPassed := true
	for _, rr := range results {
		if rr.Category != CategoryGatekeeper {
			continue
		}
		gatesPassed = gatesPassed && rr.Passed
		fmt.Fprintf(&b, "  %s %s: %s\n", mark(rr), rr.Name, withDetail(rr.Description, rr.Detail))
	}

	b.WriteString("Type-specific rules (at least one must pass):")
	if !gatesPassed {
		b.WriteString("\n  not evaluated, a gatekeeper failed")
		return b.String()
	}
	for _, rr := range results {
		if !isStaged(rr) {
			continue
		}
		line := withDetail(rr.Description, rr.Detail)
		if !rr.Applicable {
			line += " [not applicable]"
		}
		fmt.Fprintf(&b, "\n  %s %s (%s): %s", mark(rr), rr.Name, rr.Category, line)
	}
	return b.String()
}

func matchedOverride(results []RuleResult) (RuleResult, bool) {
	for _, rr := range results {
		if rr.Category == CategoryOverride && rr.Passed {
			return rr, true
		}
	}
	return RuleResult{}, false
}

func isStaged(rr RuleResult) bool {
	return rr.Category == CategoryTypeSpecific || rr.Category == CategoryExemption
}

func mark(rr RuleResult) string {
	switch {
	case !rr.Applicable:
		return markSkip
	case rr.Passed:
		return markPass
	default:
		return markFail
	}
}

func withDetail(s, detail string) string {
	if detail == "" {
		return s
	}
	return s + ": " + detail
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
