// Package pipeline runs the clause analysis: sanitize, extract, retrieve,
// compare, recommend, merge, and score, emitting progress events along
// the way.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"clausecheck/internal/compare"
	"clausecheck/internal/extract"
	"clausecheck/internal/guard"
	"clausecheck/internal/llm"
	"clausecheck/internal/merge"
	"clausecheck/internal/playbook"
	"clausecheck/internal/types"
)

// retrievalK is the number of playbook chunks retrieved per candidate.
const retrievalK = 3

// overrideVersionID is the synthetic version used when a run supplies
// its own playbook content instead of a stored version.
const overrideVersionID = "in-memory"

// Confidence levels reported on the result: one value when findings
// survived, a lower one when none did.
const (
	confidenceWithFindings = 0.62
	confidenceNoFindings   = 0.4
)

// ChunkIndexer rebuilds the retrieval index for a version. Used for the
// in-memory playbook override.
type ChunkIndexer interface {
	ReplaceChunks(ctx context.Context, versionID, source string, texts []string) error
}

// Request describes one analysis run.
type Request struct {
	AnalysisID              string
	AnalysisType            types.AnalysisType
	ContractText            string
	PlaybookVersionID       string
	PlaybookContentOverride string

	// InitialWarnings carries guardrail warnings raised before the run
	// started, such as sanitization at request admission.
	InitialWarnings []types.GuardrailWarning
}

// Orchestrator wires the pipeline stages together. Retriever and
// completer are required; versions, indexer, and events are optional and
// degrade gracefully when absent.
type Orchestrator struct {
	retriever  types.Retriever
	completer  types.CompletionClient
	versions   types.VersionSource
	indexer    ChunkIndexer
	events     types.EventSink
	comparator *compare.Comparator
	rates      llm.CostRates
	logger     *zap.Logger
}

// Options carries the optional collaborators of an Orchestrator.
type Options struct {
	Versions types.VersionSource
	Indexer  ChunkIndexer
	Events   types.EventSink
	Rates    *llm.CostRates
	Logger   *zap.Logger
}

func New(retriever types.Retriever, completer types.CompletionClient, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rates := llm.DefaultCostRates()
	if opts.Rates != nil {
		rates = *opts.Rates
	}
	return &Orchestrator{
		retriever:  retriever,
		completer:  completer,
		versions:   opts.Versions,
		indexer:    opts.Indexer,
		events:     opts.Events,
		comparator: compare.New(logger),
		rates:      rates,
		logger:     logger,
	}
}

// Run executes one analysis and returns the terminal result. Persistence
// is the caller's concern; a returned error means the run failed and
// should be recorded as such.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*types.AnalysisResult, error) {
	warnings := append([]types.GuardrailWarning(nil), req.InitialWarnings...)

	// Sanitization replaces flagged segments before anything else sees
	// the text; the raw input is never used downstream.
	sanitized, filterWarnings := guard.Sanitize(req.ContractText)
	warnings = append(warnings, filterWarnings...)

	candidates := extract.Extract(sanitized)
	o.publish(req.AnalysisID, "status", map[string]any{
		"analysis_id": req.AnalysisID,
		"status":      string(types.StatusExtracting),
		"message":     "Extracted clauses",
	})
	o.logger.Info("clauses extracted",
		zap.String("analysis_id", req.AnalysisID),
		zap.Int("candidates", len(candidates)))

	versionID, err := o.resolveVersion(ctx, req)
	if err != nil {
		return nil, err
	}

	var acc llm.Accumulator
	var findings []types.Finding
	for _, candidate := range candidates {
		var retrieved []types.ReferenceChunk
		if versionID != "" {
			retrieved, err = o.retriever.Query(ctx, versionID, candidate.SourceText, retrievalK)
			if err != nil {
				return nil, fmt.Errorf("retrieval failed for %s: %w", candidate.ClauseType, err)
			}
		}
		if len(retrieved) == 0 {
			continue
		}

		comparison := o.comparator.Compare(candidate, retrieved)
		finding, err := o.buildFinding(ctx, req.AnalysisType, candidate, comparison, retrieved, &acc)
		if err != nil {
			return nil, err
		}
		findings = append(findings, finding)
		o.publish(req.AnalysisID, "partial_finding", map[string]any{
			"analysis_id": req.AnalysisID,
			"finding":     finding,
		})
	}

	merged := merge.Merge(findings)
	warnings = append(warnings, guard.Validate(merged)...)
	valid := merged[:0]
	for _, finding := range merged {
		if finding.Valid() {
			valid = append(valid, finding)
		}
	}
	merged = valid

	overall := merge.OverallRisk(merged)
	confidence := confidenceWithFindings
	if len(merged) == 0 {
		confidence = confidenceNoFindings
		warnings = append(warnings, types.GuardrailWarning{
			Type:        types.WarningNoFindings,
			Message:     "No valid findings produced; overall risk set to unknown.",
			TriggeredBy: "deduplication",
		})
	}

	usage := acc.Snapshot(o.rates)
	usage.EstimatedCostUSD = math.Round(usage.EstimatedCostUSD*1e6) / 1e6

	result := &types.AnalysisResult{
		AnalysisID:        req.AnalysisID,
		Timestamp:         time.Now().UTC(),
		OverallRiskScore:  overall,
		Findings:          merged,
		GuardrailWarnings: warnings,
		ConfidenceScore:   confidence,
		PlaybookVersionID: versionID,
		Usage:             &usage,
	}
	o.publish(req.AnalysisID, "final", map[string]any{
		"analysis_id": req.AnalysisID,
		"result":      result,
	})
	return result, nil
}

// resolveVersion picks the playbook version for the run: explicit id,
// else the in-memory override (indexed on the fly under the synthetic
// id), else the latest stored version. Empty means no playbook is
// available and every candidate will be skipped.
func (o *Orchestrator) resolveVersion(ctx context.Context, req Request) (string, error) {
	versionID := req.PlaybookVersionID
	if versionID == "" && req.PlaybookContentOverride != "" {
		versionID = overrideVersionID
		if o.indexer != nil {
			chunks := playbook.ChunkText(req.PlaybookContentOverride, playbook.DefaultChunkSize)
			if err := o.indexer.ReplaceChunks(ctx, versionID, overrideVersionID, chunks); err != nil {
				return "", fmt.Errorf("failed to index playbook override: %w", err)
			}
		}
	}
	if versionID == "" && o.versions != nil {
		latest, err := o.versions.LatestVersion(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to resolve latest playbook version: %w", err)
		}
		if latest != nil {
			versionID = latest.ID
		}
	}
	return versionID, nil
}

// buildFinding produces the per-clause verdict. Summary and obligations
// runs template the recommendation and estimate token usage; risks runs
// issue one completion call whose reported usage is accumulated. The
// completion text itself does not shape the finding.
func (o *Orchestrator) buildFinding(
	ctx context.Context,
	analysisType types.AnalysisType,
	candidate types.ClauseCandidate,
	comparison compare.Comparison,
	retrieved []types.ReferenceChunk,
	acc *llm.Accumulator,
) (types.Finding, error) {
	citationIDs := formatCitationIDs(retrieved)
	promptText := fmt.Sprintf("Clause type: %s. Extracted: %s. Playbook excerpts: %s",
		candidate.ClauseType, candidate.ExtractedValue, joinChunkContent(retrieved))

	finding := types.Finding{
		ClauseType:       candidate.ClauseType,
		ExtractedValue:   candidate.ExtractedValue,
		PlaybookStandard: comparison.Standard,
		Deviation:        comparison.Deviation,
		RiskLevel:        comparison.Risk,
		SourceText:       candidate.SourceText,
		RetrievedChunks:  retrieved,
	}

	switch analysisType {
	case types.AnalysisSummary:
		summaryText := fmt.Sprintf("%s: %s", friendlyClauseLabel(candidate.ClauseType), candidate.ExtractedValue)
		finding.Recommendation = fmt.Sprintf("Summary: %s. Cite chunks: %s.", summaryText, citationIDs)
		acc.Add(llm.EstimateTokens(promptText), llm.EstimateTokens(finding.Recommendation))

	case types.AnalysisObligations:
		obligationText := fmt.Sprintf("Ensure compliance with %s (%s).",
			strings.ToLower(friendlyClauseLabel(candidate.ClauseType)), candidate.ExtractedValue)
		finding.Recommendation = fmt.Sprintf("Action: %s Cite chunks: %s for playbook guidance.", obligationText, citationIDs)
		acc.Add(llm.EstimateTokens(promptText), llm.EstimateTokens(finding.Recommendation))

	default:
		prompt := fmt.Sprintf(
			"You are validating construction contract clause alignment to the playbook. "+
				"Clause type: %s. Extracted: %s. Playbook guidance: %s",
			candidate.ClauseType, candidate.ExtractedValue, truncate(retrieved[0].Content, 500))
		_, usage, err := o.completer.Complete(ctx, prompt, 256)
		if err != nil {
			return types.Finding{}, fmt.Errorf("completion failed for %s: %w", candidate.ClauseType, err)
		}
		acc.Add(usage.InputTokens, usage.OutputTokens)
		finding.Recommendation = fmt.Sprintf("Negotiate toward playbook guidance. Cite chunks: %s.", citationIDs)
	}

	return finding, nil
}

func (o *Orchestrator) publish(analysisID, event string, data any) {
	if o.events != nil {
		o.events.Publish(analysisID, event, data)
	}
}

func formatCitationIDs(retrieved []types.ReferenceChunk) string {
	ids := make([]string, len(retrieved))
	for i, chunk := range retrieved {
		ids[i] = chunk.ChunkID
	}
	return strings.Join(ids, "; ")
}

func joinChunkContent(retrieved []types.ReferenceChunk) string {
	parts := make([]string, len(retrieved))
	for i, chunk := range retrieved {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, " ")
}

var clauseLabels = map[types.ClauseType]string{
	types.ClausePaymentTerms:      "Payment timing",
	types.ClauseRetainage:         "Retainage",
	types.ClauseNoticePeriod:      "Notice period",
	types.ClauseIndemnification:   "Indemnification scope",
	types.ClauseTerminationNotice: "Termination notice",
	types.ClauseDisputeResolution: "Dispute resolution",
	types.ClauseLiquidatedDamages: "Liquidated damages",
}

func friendlyClauseLabel(clauseType types.ClauseType) string {
	if label, ok := clauseLabels[clauseType]; ok {
		return label
	}
	words := strings.Split(string(clauseType), "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// truncate limits text to n runes.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
