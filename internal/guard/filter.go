// Package guard implements the input and output guardrails of the
// analysis pipeline. Guardrail failures are recorded as warnings, never
// returned as errors.
package guard

import (
	"regexp"

	"clausecheck/internal/types"
)

// filteredPlaceholder replaces every occurrence of a matched injection
// pattern. Replacement is irreversible; re-sanitizing filtered text yields
// no new matches.
const filteredPlaceholder = "[filtered]"

// injectionPatterns is the fixed ordered set of prompt-injection
// indicators scanned against raw contract text.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (the )?(previous|above) instructions`),
	regexp.MustCompile(`(?i)system prompt`),
	regexp.MustCompile(`(?i)pretend to be`),
	regexp.MustCompile(`(?i)exfiltrate`),
	regexp.MustCompile(`(?i)unrelated task`),
}

// Sanitize scans text against the injection patterns. Each matching
// pattern produces one content_filter warning naming the pattern, and all
// occurrences of that pattern are replaced with the placeholder. Patterns
// are evaluated independently; a text may accumulate several warnings.
func Sanitize(text string) (string, []types.GuardrailWarning) {
	var warnings []types.GuardrailWarning
	sanitized := text
	for _, pattern := range injectionPatterns {
		if !pattern.MatchString(text) {
			continue
		}
		warnings = append(warnings, types.GuardrailWarning{
			Type:        types.WarningContentFilter,
			Message:     "Detected potential prompt injection content; sanitized input.",
			TriggeredBy: pattern.String(),
		})
		sanitized = pattern.ReplaceAllString(sanitized, filteredPlaceholder)
	}
	return sanitized, warnings
}

// Validate emits a validation warning per incomplete finding field:
// one for empty source text, one for missing retrieved chunks. A finding
// may produce zero, one, or two warnings. Runs before the drop step so
// the drop is observable.
func Validate(findings []types.Finding) []types.GuardrailWarning {
	var warnings []types.GuardrailWarning
	for _, f := range findings {
		if f.SourceText == "" {
			warnings = append(warnings, types.GuardrailWarning{
				Type:        types.WarningValidation,
				Message:     "Dropped finding without contract source text.",
				TriggeredBy: string(f.ClauseType),
			})
		}
		if len(f.RetrievedChunks) == 0 {
			warnings = append(warnings, types.GuardrailWarning{
				Type:        types.WarningValidation,
				Message:     "Dropped finding without retrieved playbook chunks.",
				TriggeredBy: string(f.ClauseType),
			})
		}
	}
	return warnings
}
