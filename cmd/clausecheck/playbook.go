package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var changeNote string

var playbookCmd = &cobra.Command{
	Use:   "playbook",
	Short: "Inspect and manage playbook versions",
}

var playbookShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the latest playbook version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := a.store.LatestVersion(cmd.Context())
		if err != nil {
			return err
		}
		if version == nil {
			return fmt.Errorf("no playbook version stored")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Version %s (%s)\nCreated: %s\nNote: %s\n\n%s\n",
			version.VersionLabel, version.ID, version.CreatedAt.Format("2006-01-02 15:04:05"),
			version.ChangeNote, version.Content)
		return nil
	},
}

var playbookVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List playbook versions as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.store.ListVersions(cmd.Context())
		if err != nil {
			return err
		}
		summaries := make([]map[string]string, 0, len(versions))
		for _, v := range versions {
			summaries = append(summaries, map[string]string{
				"id":            v.ID,
				"created_at":    v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				"version_label": v.VersionLabel,
				"change_note":   v.ChangeNote,
			})
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(summaries)
	},
}

var playbookUpdateCmd = &cobra.Command{
	Use:   "update <playbook-file>",
	Short: "Store a playbook file as a new version and reindex it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read playbook: %w", err)
		}

		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := a.playbook.Update(cmd.Context(), string(content), changeNote)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored version %s (%s)\n", version.VersionLabel, version.ID)
		return nil
	},
}

var playbookReindexCmd = &cobra.Command{
	Use:   "reindex [version-id]",
	Short: "Rebuild the retrieval index for a version (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		versionID := ""
		if len(args) == 1 {
			versionID = args[0]
		}
		version, err := a.playbook.Reindex(cmd.Context(), versionID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reindexed version %s (%s)\n", version.VersionLabel, version.ID)
		return nil
	},
}

func init() {
	playbookUpdateCmd.Flags().StringVar(&changeNote, "note", "", "change note for the new version")
	playbookCmd.AddCommand(playbookShowCmd)
	playbookCmd.AddCommand(playbookVersionsCmd)
	playbookCmd.AddCommand(playbookUpdateCmd)
	playbookCmd.AddCommand(playbookReindexCmd)
}
