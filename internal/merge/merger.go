// Package merge collapses duplicate findings. Extraction deliberately
// over-produces; this is where one verdict per clause type is settled.
package merge

import "clausecheck/internal/types"

// Merge deduplicates findings by clause type, one output per distinct
// type, in insertion order of first occurrence. When two findings share a
// type, the higher-risk finding becomes the base; ties keep the first
// seen. Citations are unioned by chunk id preserving base order first;
// the longer source text wins; standard, deviation, and extracted value
// are filled from the other finding only when the base's value is empty.
func Merge(findings []types.Finding) []types.Finding {
	merged := make(map[types.ClauseType]types.Finding)
	var order []types.ClauseType

	for _, finding := range findings {
		existing, ok := merged[finding.ClauseType]
		if !ok {
			merged[finding.ClauseType] = finding
			order = append(order, finding.ClauseType)
			continue
		}

		base, other := existing, finding
		if finding.RiskLevel.Index() > existing.RiskLevel.Index() {
			base, other = finding, existing
		}

		base.RetrievedChunks = unionChunks(base.RetrievedChunks, other.RetrievedChunks)
		if len(other.SourceText) > len(base.SourceText) {
			base.SourceText = other.SourceText
		}
		if base.PlaybookStandard == "" {
			base.PlaybookStandard = other.PlaybookStandard
		}
		if base.Deviation == "" {
			base.Deviation = other.Deviation
		}
		if base.ExtractedValue == "" {
			base.ExtractedValue = other.ExtractedValue
		}
		merged[finding.ClauseType] = base
	}

	out := make([]types.Finding, 0, len(order))
	for _, clauseType := range order {
		out = append(out, merged[clauseType])
	}
	return out
}

// unionChunks appends the chunks from extra whose ids are not already
// cited, preserving base order. The result is a fresh slice; inputs are
// never mutated.
func unionChunks(base, extra []types.ReferenceChunk) []types.ReferenceChunk {
	out := make([]types.ReferenceChunk, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base))
	for _, chunk := range base {
		seen[chunk.ChunkID] = true
		out = append(out, chunk)
	}
	for _, chunk := range extra {
		if !seen[chunk.ChunkID] {
			seen[chunk.ChunkID] = true
			out = append(out, chunk)
		}
	}
	return out
}

// OverallRisk returns the maximum severity across findings, or unknown
// for an empty set.
func OverallRisk(findings []types.Finding) types.RiskLevel {
	overall := types.RiskUnknown
	for _, finding := range findings {
		if finding.RiskLevel.Index() > overall.Index() {
			overall = finding.RiskLevel
		}
	}
	return overall
}
