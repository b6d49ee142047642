// Package extract scans contract text for known risk patterns. Extraction
// is deliberately rule-based and auditable: a fixed table of regular
// expressions, no semantic model.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"clausecheck/internal/types"
)

// contextWindow is the number of characters of surrounding contract text
// captured on each side of a match for the candidate's source text.
const contextWindow = 50

type clauseRule struct {
	clauseType types.ClauseType
	pattern    *regexp.Regexp
	unit       string
}

// rules is the fixed detection table. Output follows table order, then
// match order within each rule. The same contract clause can be matched by
// more than one rule; duplicates are resolved later by the merger.
var rules = []clauseRule{
	{types.ClausePaymentTerms, regexp.MustCompile(`(?i)within\s+(\d+)\s+days`), "days"},
	{types.ClauseRetainage, regexp.MustCompile(`(?i)retain(?:age)?\s+(\d+)%`), "%"},
	{types.ClauseNoticePeriod, regexp.MustCompile(`(?i)within\s+(\d+)\s+(?:calendar\s+)?days.*notice`), "days"},
	{types.ClauseIndemnification, regexp.MustCompile(`(?i)indemnif\w+.*?(regardless of fault|any and all)`), ""},
	{types.ClauseTerminationNotice, regexp.MustCompile(`(?i)terminate.*?(\d+)\s+calendar\s+days`), "days"},
	{types.ClauseDisputeResolution, regexp.MustCompile(`(?i)arbitration.*?in\s+([A-Za-z\s]+)`), "location"},
	{types.ClauseLiquidatedDamages, regexp.MustCompile(`(?i)€?([\d,\.]+)\s*per\s*(?:calendar\s*)?day`), "currency"},
}

// Extract returns every non-overlapping rule match in the contract text as
// a clause candidate. It never deduplicates.
func Extract(contractText string) []types.ClauseCandidate {
	var candidates []types.ClauseCandidate
	for _, rule := range rules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(contractText, -1) {
			value := contractText[loc[0]:loc[1]]
			if rule.pattern.NumSubexp() > 0 && loc[2] >= 0 {
				value = contractText[loc[2]:loc[3]]
			}
			candidates = append(candidates, types.ClauseCandidate{
				ClauseType:     rule.clauseType,
				ExtractedValue: strings.TrimSpace(value + " " + rule.unit),
				SourceText:     contextSlice(contractText, loc[0], loc[1]),
			})
		}
	}
	return candidates
}

// contextSlice returns the match plus contextWindow characters on each
// side, clamped to the text bounds and trimmed of surrounding whitespace.
// The window counts runes, not bytes, so it never cuts a multibyte
// character in half.
func contextSlice(text string, start, end int) string {
	from := start
	for i := 0; i < contextWindow && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < contextWindow && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return strings.TrimSpace(text[from:to])
}
