package compare

import (
	"fmt"
	"testing"

	"clausecheck/internal/types"
)

func chunks(content string) []types.ReferenceChunk {
	return []types.ReferenceChunk{
		{ChunkID: "v1-0", Content: content, Source: "playbook", VersionID: "v1"},
	}
}

func TestCompare_PaymentTermsBoundaries(t *testing.T) {
	cases := []struct {
		days int
		risk types.RiskLevel
	}{
		{120, types.RiskCritical},
		{91, types.RiskCritical},
		// Exactly 90 falls through to the >60 branch. Branch order is part
		// of the contract; do not "fix" to >=90.
		{90, types.RiskHigh},
		{61, types.RiskHigh},
		{60, types.RiskLow},
		{45, types.RiskLow},
		{30, types.RiskLow},
	}
	c := New(nil)
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_days", tc.days), func(t *testing.T) {
			candidate := types.ClauseCandidate{
				ClauseType:     types.ClausePaymentTerms,
				ExtractedValue: fmt.Sprintf("%d days", tc.days),
				SourceText:     fmt.Sprintf("pay within %d days", tc.days),
			}
			got := c.Compare(candidate, chunks("Payment due within 30-60 days of invoice."))
			if got.Risk != tc.risk {
				t.Fatalf("risk=%s, want %s", got.Risk, tc.risk)
			}
			if got.Standard != "30-60 days" {
				t.Fatalf("standard=%q, want 30-60 days", got.Standard)
			}
		})
	}
}

func TestCompare_PaymentTermsMediumBand(t *testing.T) {
	// Above the playbook range's high bound but not above 60.
	c := New(nil)
	candidate := types.ClauseCandidate{
		ClauseType:     types.ClausePaymentTerms,
		ExtractedValue: "50 days",
		SourceText:     "pay within 50 days",
	}
	got := c.Compare(candidate, chunks("Standard payment terms are 30-45 days."))
	if got.Risk != types.RiskMedium {
		t.Fatalf("risk=%s, want medium", got.Risk)
	}
	if got.Deviation != "50 vs 30-45 days" {
		t.Fatalf("deviation=%q", got.Deviation)
	}
}

func TestCompare_PaymentTermsNoRangeInReference(t *testing.T) {
	c := New(nil)
	candidate := types.ClauseCandidate{
		ClauseType:     types.ClausePaymentTerms,
		ExtractedValue: "120 days",
	}
	got := c.Compare(candidate, chunks("No numbers here."))
	if got.Standard != "See playbook reference" || got.Deviation != "No deviation detected" || got.Risk != types.RiskMedium {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestCompare_RetainageBoundaries(t *testing.T) {
	cases := []struct {
		pct  int
		risk types.RiskLevel
	}{
		{20, types.RiskCritical},
		{16, types.RiskCritical},
		{15, types.RiskHigh},
		{11, types.RiskHigh},
		{10, types.RiskMedium},
		{6, types.RiskMedium},
		{5, types.RiskLow},
		{3, types.RiskLow},
	}
	c := New(nil)
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_pct", tc.pct), func(t *testing.T) {
			candidate := types.ClauseCandidate{
				ClauseType:     types.ClauseRetainage,
				ExtractedValue: fmt.Sprintf("%d %%", tc.pct),
			}
			got := c.Compare(candidate, chunks("Retainage shall not exceed 5% of contract value."))
			if got.Risk != tc.risk {
				t.Fatalf("risk=%s, want %s", got.Risk, tc.risk)
			}
			if got.Standard != "5%" {
				t.Fatalf("standard=%q, want 5%%", got.Standard)
			}
		})
	}
}

func TestCompare_NoticePeriodBoundaries(t *testing.T) {
	cases := []struct {
		days int
		risk types.RiskLevel
	}{
		{3, types.RiskCritical},
		{1, types.RiskCritical},
		{4, types.RiskHigh},
		{6, types.RiskHigh},
		{7, types.RiskMedium},
		{13, types.RiskMedium},
		{14, types.RiskLow},
		{21, types.RiskLow},
	}
	c := New(nil)
	for _, tc := range cases {
		candidate := types.ClauseCandidate{
			ClauseType:     types.ClauseNoticePeriod,
			ExtractedValue: fmt.Sprintf("%d days", tc.days),
		}
		got := c.Compare(candidate, chunks("Notice periods of 14-21 days are standard."))
		if got.Risk != tc.risk {
			t.Fatalf("%d days: risk=%s, want %s", tc.days, got.Risk, tc.risk)
		}
		if got.Standard != "14-21 days" {
			t.Fatalf("standard=%q, want 14-21 days", got.Standard)
		}
	}
}

func TestCompare_NoticePeriodStandardFallback(t *testing.T) {
	c := New(nil)
	candidate := types.ClauseCandidate{ClauseType: types.ClauseNoticePeriod, ExtractedValue: "10 days"}
	got := c.Compare(candidate, chunks("Reasonable notice is expected."))
	if got.Standard != "See playbook" {
		t.Fatalf("standard=%q, want See playbook", got.Standard)
	}
}

func TestCompare_IndemnificationAlwaysFlagged(t *testing.T) {
	c := New(nil)

	broad := types.ClauseCandidate{
		ClauseType: types.ClauseIndemnification,
		SourceText: "indemnify Owner regardless of fault",
	}
	got := c.Compare(broad, chunks("Indemnity should be limited."))
	if got.Risk != types.RiskCritical || got.Standard != "Limit to proportionate fault" {
		t.Fatalf("broad form: got %+v", got)
	}

	narrow := types.ClauseCandidate{
		ClauseType: types.ClauseIndemnification,
		SourceText: "indemnify Owner against third-party claims",
	}
	got = c.Compare(narrow, chunks("Indemnity should be limited."))
	if got.Risk != types.RiskHigh {
		t.Fatalf("narrow form: risk=%s, want high (never low/medium)", got.Risk)
	}
}

func TestCompare_TerminationNoticeBoundaries(t *testing.T) {
	cases := []struct {
		days int
		risk types.RiskLevel
	}{
		{5, types.RiskCritical},
		{6, types.RiskCritical},
		{7, types.RiskHigh},
		{13, types.RiskHigh},
		{14, types.RiskMedium},
		{29, types.RiskMedium},
		{30, types.RiskLow},
		{60, types.RiskLow},
	}
	c := New(nil)
	for _, tc := range cases {
		candidate := types.ClauseCandidate{
			ClauseType:     types.ClauseTerminationNotice,
			ExtractedValue: fmt.Sprintf("%d days", tc.days),
		}
		got := c.Compare(candidate, chunks("Termination requires 30 days prior written notice."))
		if got.Risk != tc.risk {
			t.Fatalf("%d days: risk=%s, want %s", tc.days, got.Risk, tc.risk)
		}
		if got.Standard != "30+ days" {
			t.Fatalf("standard=%q, want 30+ days", got.Standard)
		}
	}
}

func TestCompare_DisputeResolutionVenue(t *testing.T) {
	c := New(nil)

	ownerSide := types.ClauseCandidate{
		ClauseType: types.ClauseDisputeResolution,
		SourceText: "arbitration in the Owner's home jurisdiction",
	}
	if got := c.Compare(ownerSide, chunks("Prefer neutral venues.")); got.Risk != types.RiskHigh {
		t.Fatalf("owner venue: risk=%s, want high", got.Risk)
	}

	neutral := types.ClauseCandidate{
		ClauseType: types.ClauseDisputeResolution,
		SourceText: "arbitration in Geneva",
	}
	got := c.Compare(neutral, chunks("Prefer neutral venues."))
	if got.Risk != types.RiskMedium || got.Standard != "Neutral venue" {
		t.Fatalf("neutral venue: got %+v", got)
	}
}

func TestCompare_LiquidatedDamagesFigure(t *testing.T) {
	c := New(nil)

	high := types.ClauseCandidate{
		ClauseType:     types.ClauseLiquidatedDamages,
		ExtractedValue: "€75,000 currency",
	}
	if got := c.Compare(high, chunks("LDs capped at 0.2%/day.")); got.Risk != types.RiskHigh {
		t.Fatalf("75k: risk=%s, want high", got.Risk)
	}

	// Same figure without the comma still matches.
	highNoComma := types.ClauseCandidate{
		ClauseType:     types.ClauseLiquidatedDamages,
		ExtractedValue: "75000 currency",
	}
	if got := c.Compare(highNoComma, chunks("LDs capped at 0.2%/day.")); got.Risk != types.RiskHigh {
		t.Fatalf("75000: risk=%s, want high", got.Risk)
	}

	modest := types.ClauseCandidate{
		ClauseType:     types.ClauseLiquidatedDamages,
		ExtractedValue: "1,500 currency",
	}
	got := c.Compare(modest, chunks("LDs capped at 0.2%/day."))
	if got.Risk != types.RiskLow || got.Standard != "0.1-0.2%/day with cap" {
		t.Fatalf("modest LD: got %+v", got)
	}
}

func TestCompare_UnknownClauseType(t *testing.T) {
	c := New(nil)
	got := c.Compare(types.ClauseCandidate{ClauseType: "exotic_clause"}, chunks("anything"))
	if got.Deviation != "Needs review" || got.Risk != types.RiskMedium {
		t.Fatalf("unknown type: got %+v", got)
	}
}

func TestCompare_NonNumericValueFallsBack(t *testing.T) {
	c := New(nil)
	candidate := types.ClauseCandidate{
		ClauseType:     types.ClausePaymentTerms,
		ExtractedValue: "promptly days",
	}
	got := c.Compare(candidate, chunks("30-60 days"))
	if got.Risk != types.RiskMedium || got.Standard != "See playbook reference" {
		t.Fatalf("non-numeric value should produce defaults, got %+v", got)
	}
}
