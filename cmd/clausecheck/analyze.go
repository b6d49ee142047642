package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clausecheck/internal/guard"
	"clausecheck/internal/pipeline"
	"clausecheck/internal/types"
)

var (
	analysisType      string
	playbookVersionID string
	playbookFile      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <contract-file>",
	Short: "Run one analysis and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analysisType, "type", "t", "risks", "analysis type: risks, summary, or obligations")
	analyzeCmd.Flags().StringVar(&playbookVersionID, "playbook-version", "", "playbook version id (default: latest)")
	analyzeCmd.Flags().StringVar(&playbookFile, "playbook", "", "analyze against this playbook file instead of the stored versions")
	analyzeCmd.MarkFlagsMutuallyExclusive("playbook", "playbook-version")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	switch types.AnalysisType(analysisType) {
	case types.AnalysisRisks, types.AnalysisSummary, types.AnalysisObligations:
	default:
		return fmt.Errorf("unknown analysis type %q", analysisType)
	}

	contractText, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read contract: %w", err)
	}

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	// An ad-hoc playbook file is indexed for this run only; the stored
	// versions are neither read nor seeded.
	var playbookOverride string
	if playbookFile != "" {
		content, err := os.ReadFile(playbookFile)
		if err != nil {
			return fmt.Errorf("failed to read playbook: %w", err)
		}
		playbookOverride = string(content)
	} else if _, err := a.playbook.Seed(ctx, cfg.PlaybookSeed); err != nil {
		return fmt.Errorf("playbook seeding failed: %w", err)
	}

	sanitized, warnings := guard.Sanitize(string(contractText))
	result, err := a.orchestrator.Run(ctx, pipeline.Request{
		AnalysisID:              uuid.NewString(),
		AnalysisType:            types.AnalysisType(analysisType),
		ContractText:            sanitized,
		PlaybookVersionID:       playbookVersionID,
		PlaybookContentOverride: playbookOverride,
		InitialWarnings:         warnings,
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
