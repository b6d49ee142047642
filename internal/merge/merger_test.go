package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"clausecheck/internal/types"
)

func chunk(id string) types.ReferenceChunk {
	return types.ReferenceChunk{ChunkID: id, Content: "c-" + id, Source: "playbook", VersionID: "v1"}
}

func TestMerge_HigherRiskBecomesBase(t *testing.T) {
	findings := []types.Finding{
		{
			ClauseType:       types.ClausePaymentTerms,
			ExtractedValue:   "45 days",
			PlaybookStandard: "30-60 days",
			Deviation:        "Within standard",
			RiskLevel:        types.RiskLow,
			SourceText:       "short",
			RetrievedChunks:  []types.ReferenceChunk{chunk("a"), chunk("b")},
		},
		{
			ClauseType:       types.ClausePaymentTerms,
			ExtractedValue:   "95 days",
			PlaybookStandard: "30-60 days",
			Deviation:        ">90 days vs standard",
			RiskLevel:        types.RiskCritical,
			SourceText:       "a much longer source excerpt",
			RetrievedChunks:  []types.ReferenceChunk{chunk("b"), chunk("c")},
		},
	}

	merged := Merge(findings)
	if len(merged) != 1 {
		t.Fatalf("merged=%d, want 1", len(merged))
	}
	got := merged[0]
	if got.RiskLevel != types.RiskCritical || got.ExtractedValue != "95 days" {
		t.Fatalf("base should be the critical finding: %+v", got)
	}
	// Base citations first, then the other's new ids.
	wantIDs := []string{"b", "c", "a"}
	var gotIDs []string
	for _, c := range got.RetrievedChunks {
		gotIDs = append(gotIDs, c.ChunkID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Fatalf("citation order mismatch (-want +got):\n%s", diff)
	}
	if got.SourceText != "a much longer source excerpt" {
		t.Fatalf("longer source text should win: %q", got.SourceText)
	}
}

func TestMerge_CitationUnionExactlyOnce(t *testing.T) {
	findings := []types.Finding{
		{ClauseType: types.ClauseRetainage, RiskLevel: types.RiskMedium, SourceText: "x",
			RetrievedChunks: []types.ReferenceChunk{chunk("1"), chunk("2")}},
		{ClauseType: types.ClauseRetainage, RiskLevel: types.RiskMedium, SourceText: "y",
			RetrievedChunks: []types.ReferenceChunk{chunk("2"), chunk("3"), chunk("1")}},
	}
	merged := Merge(findings)
	if len(merged) != 1 {
		t.Fatalf("merged=%d, want 1", len(merged))
	}
	counts := map[string]int{}
	for _, c := range merged[0].RetrievedChunks {
		counts[c.ChunkID]++
	}
	for _, id := range []string{"1", "2", "3"} {
		if counts[id] != 1 {
			t.Fatalf("chunk %s appears %d times, want exactly once", id, counts[id])
		}
	}
}

func TestMerge_TieKeepsFirstSeen(t *testing.T) {
	findings := []types.Finding{
		{ClauseType: types.ClauseNoticePeriod, ExtractedValue: "first", RiskLevel: types.RiskHigh,
			SourceText: "same", RetrievedChunks: []types.ReferenceChunk{chunk("a")}},
		{ClauseType: types.ClauseNoticePeriod, ExtractedValue: "second", RiskLevel: types.RiskHigh,
			SourceText: "same", RetrievedChunks: []types.ReferenceChunk{chunk("b")}},
	}
	merged := Merge(findings)
	if merged[0].ExtractedValue != "first" {
		t.Fatalf("tie should keep first-seen as base, got %q", merged[0].ExtractedValue)
	}
}

func TestMerge_FillsEmptyFieldsOnly(t *testing.T) {
	findings := []types.Finding{
		{ClauseType: types.ClauseDisputeResolution, RiskLevel: types.RiskHigh,
			SourceText: "base text", RetrievedChunks: []types.ReferenceChunk{chunk("a")}},
		{ClauseType: types.ClauseDisputeResolution, RiskLevel: types.RiskMedium,
			PlaybookStandard: "Neutral venue", Deviation: "Check neutrality", ExtractedValue: "Vienna location",
			SourceText: "x", RetrievedChunks: []types.ReferenceChunk{chunk("b")}},
	}
	merged := Merge(findings)
	got := merged[0]
	if got.PlaybookStandard != "Neutral venue" || got.Deviation != "Check neutrality" || got.ExtractedValue != "Vienna location" {
		t.Fatalf("empty base fields should be filled from other: %+v", got)
	}

	// A populated base field is never overwritten.
	findings[0].Deviation = "Owner's venue"
	merged = Merge(findings)
	if merged[0].Deviation != "Owner's venue" {
		t.Fatalf("populated base deviation overwritten: %q", merged[0].Deviation)
	}
}

func TestMerge_OutputInsertionOrder(t *testing.T) {
	findings := []types.Finding{
		{ClauseType: types.ClausePaymentTerms, RiskLevel: types.RiskLow},
		{ClauseType: types.ClauseRetainage, RiskLevel: types.RiskHigh},
		{ClauseType: types.ClausePaymentTerms, RiskLevel: types.RiskCritical},
		{ClauseType: types.ClauseNoticePeriod, RiskLevel: types.RiskMedium},
	}
	merged := Merge(findings)
	want := []types.ClauseType{types.ClausePaymentTerms, types.ClauseRetainage, types.ClauseNoticePeriod}
	if len(merged) != len(want) {
		t.Fatalf("merged=%d, want %d", len(merged), len(want))
	}
	for i, w := range want {
		if merged[i].ClauseType != w {
			t.Fatalf("merged[%d]=%s, want %s", i, merged[i].ClauseType, w)
		}
	}
}

func TestOverallRisk(t *testing.T) {
	if got := OverallRisk(nil); got != types.RiskUnknown {
		t.Fatalf("empty set: %s, want unknown", got)
	}
	findings := []types.Finding{
		{RiskLevel: types.RiskLow},
		{RiskLevel: types.RiskHigh},
		{RiskLevel: types.RiskMedium},
	}
	if got := OverallRisk(findings); got != types.RiskHigh {
		t.Fatalf("overall=%s, want high", got)
	}
	findings = append(findings, types.Finding{RiskLevel: types.RiskCritical})
	if got := OverallRisk(findings); got != types.RiskCritical {
		t.Fatalf("overall=%s, want critical", got)
	}
	if got := OverallRisk([]types.Finding{{RiskLevel: types.RiskAcceptable}}); got != types.RiskAcceptable {
		t.Fatalf("overall=%s, want acceptable", got)
	}
}
