// Package types holds the shared records of the clause analysis pipeline
// and the interfaces of its injected collaborators.
package types

import "time"

// RiskLevel is the ordinal severity classification attached to a finding
// and to the overall report.
type RiskLevel string

const (
	RiskUnknown    RiskLevel = "unknown"
	RiskAcceptable RiskLevel = "acceptable"
	RiskLow        RiskLevel = "low"
	RiskMedium     RiskLevel = "medium"
	RiskHigh       RiskLevel = "high"
	RiskCritical   RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskUnknown:    0,
	RiskAcceptable: 1,
	RiskLow:        2,
	RiskMedium:     3,
	RiskHigh:       4,
	RiskCritical:   5,
}

// Index returns the severity rank of the level. Unrecognized levels rank
// lowest, same as unknown.
func (r RiskLevel) Index() int {
	return riskOrder[r]
}

// ClauseType identifies which extraction rule produced a candidate.
type ClauseType string

const (
	ClausePaymentTerms      ClauseType = "payment_terms"
	ClauseRetainage         ClauseType = "retainage"
	ClauseNoticePeriod      ClauseType = "notice_period"
	ClauseIndemnification   ClauseType = "indemnification"
	ClauseTerminationNotice ClauseType = "termination_notice"
	ClauseDisputeResolution ClauseType = "dispute_resolution"
	ClauseLiquidatedDamages ClauseType = "liquidated_damages"
)

// ClauseCandidate is one pattern match from the extractor. Immutable once
// created; duplicates across clause types are expected before merge.
type ClauseCandidate struct {
	ClauseType     ClauseType `json:"clause_type"`
	ExtractedValue string     `json:"extracted_value"`
	SourceText     string     `json:"source_text"`
}

// ReferenceChunk is a retrievable slice of playbook text. Findings cite
// chunks by reference; they are never copied and mutated.
type ReferenceChunk struct {
	ChunkID   string `json:"chunk_id"`
	Content   string `json:"content"`
	Source    string `json:"source"`
	VersionID string `json:"playbook_version_id"`
}

// Finding is the per-clause verdict: extracted value, playbook standard,
// deviation, risk, recommendation, citations.
type Finding struct {
	ClauseType       ClauseType       `json:"clause_type"`
	ExtractedValue   string           `json:"extracted_value"`
	PlaybookStandard string           `json:"playbook_standard"`
	Deviation        string           `json:"deviation"`
	RiskLevel        RiskLevel        `json:"risk_level"`
	Recommendation   string           `json:"recommendation"`
	SourceText       string           `json:"source_text"`
	RetrievedChunks  []ReferenceChunk `json:"retrieved_chunks"`
}

// Valid reports whether the finding is complete enough to survive the
// post-merge drop: non-empty source text and at least one citation.
func (f Finding) Valid() bool {
	return f.SourceText != "" && len(f.RetrievedChunks) > 0
}

// WarningType classifies a guardrail warning.
type WarningType string

const (
	WarningContentFilter WarningType = "content_filter"
	WarningValidation    WarningType = "validation"
	WarningNoFindings    WarningType = "no_findings"
)

// GuardrailWarning records a non-fatal safety or validity check failure.
// Warnings are append-only across a run.
type GuardrailWarning struct {
	Type        WarningType `json:"type"`
	Message     string      `json:"message"`
	TriggeredBy string      `json:"triggered_by"`
}

// Usage is the token and cost accounting for one run.
type Usage struct {
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// AnalysisType selects the recommendation branch of the pipeline.
type AnalysisType string

const (
	AnalysisRisks       AnalysisType = "risks"
	AnalysisSummary     AnalysisType = "summary"
	AnalysisObligations AnalysisType = "obligations"
)

// AnalysisStatus is the run state machine.
type AnalysisStatus string

const (
	StatusQueued     AnalysisStatus = "queued"
	StatusExtracting AnalysisStatus = "extracting"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// AnalysisResult is the terminal artifact of one pipeline run. Immutable
// once returned.
type AnalysisResult struct {
	AnalysisID        string             `json:"analysis_id"`
	Timestamp         time.Time          `json:"timestamp"`
	OverallRiskScore  RiskLevel          `json:"overall_risk_score"`
	Findings          []Finding          `json:"findings"`
	GuardrailWarnings []GuardrailWarning `json:"guardrail_warnings"`
	ConfidenceScore   float64            `json:"confidence_score"`
	PlaybookVersionID string             `json:"playbook_version_id,omitempty"`
	Usage             *Usage             `json:"usage,omitempty"`
}

// Analysis is the persisted run record.
type Analysis struct {
	ID                string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	AnalysisType      AnalysisType
	ContractText      string
	Status            AnalysisStatus
	ResultJSON        string
	PlaybookVersionID string
	WarningsJSON      string
	UsageJSON         string
}

// PlaybookVersion is one stored revision of the reference playbook.
type PlaybookVersion struct {
	ID           string
	CreatedAt    time.Time
	Content      string
	ChangeNote   string
	VersionLabel string
}
