package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/calyptra/memtide/memory"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Collapse duplicate memory records left behind by retry storms.",
	RunE: func(cmd *cobra.Command, args []string) error {
		runProfile, err := buildProfile()
		if err != nil {
			return err
		}

		opts := memory.CleanupOptions{}
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.Force, _ = cmd.Flags().GetBool("force")
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")

		st, err := openStore(runProfile)
		if err != nil {
			return err
		}
		defer st.Close()

		pipeline := memory.NewCleanupPipeline(runProfile, st)
		report, err := pipeline.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}

		slog.Info("cleanup finished",
			"dry_run", report.DryRun,
			"groups", report.GroupsAffected,
			"redundant", report.ToRemove,
			"deleted", report.Deleted,
			"truncated", report.Truncated,
		)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Bool("dry-run", false, "report duplicate groups without deleting")
	cleanupCmd.Flags().Bool("force", false, "skip the confirmation prompt")
	cleanupCmd.Flags().Bool("verbose", false, "print one line per duplicate group")
}
