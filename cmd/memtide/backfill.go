package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/calyptra/memtide/ai"
	"github.com/calyptra/memtide/memory"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Rebuild memory records from the conversation log for a time range.",
	RunE: func(cmd *cobra.Command, args []string) error {
		runProfile, err := buildProfile()
		if err != nil {
			return err
		}

		opts := memory.BackfillOptions{}
		opts.From, _ = cmd.Flags().GetString("from")
		opts.To, _ = cmd.Flags().GetString("to")
		opts.PersonalityID, _ = cmd.Flags().GetString("personality-id")
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.Force, _ = cmd.Flags().GetBool("force")

		// A dry run never touches the embedding service, so it must not
		// require embedding credentials.
		var embedder ai.EmbeddingService
		if !opts.DryRun {
			embedder, err = ai.NewEmbeddingService(&ai.EmbeddingConfig{
				Provider:   runProfile.EmbeddingProvider,
				Model:      runProfile.EmbeddingModel,
				APIKey:     runProfile.EmbeddingAPIKey,
				BaseURL:    runProfile.EmbeddingBaseURL,
				Dimensions: runProfile.EmbeddingDimensions,
			})
			if err != nil {
				return err
			}
			defer embedder.Close()
		}

		st, err := openStore(runProfile)
		if err != nil {
			return err
		}
		defer st.Close()

		pipeline := memory.NewBackfillPipeline(runProfile, st, embedder)
		report, err := pipeline.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}

		slog.Info("backfill finished",
			"dry_run", report.DryRun,
			"candidates", report.Candidates,
			"inserted", report.Inserted,
			"already_present", report.Skipped,
			"failed", report.Failed,
		)
		return nil
	},
}

func init() {
	backfillCmd.Flags().String("from", "", "range start, date (YYYY-MM-DD) or RFC 3339 (required)")
	backfillCmd.Flags().String("to", "", "range end, exclusive (required)")
	backfillCmd.Flags().String("personality-id", "", "restrict the backfill to one personality")
	backfillCmd.Flags().Bool("dry-run", false, "preview candidates without mutating anything")
	backfillCmd.Flags().Bool("force", false, "skip the production confirmation prompt")

	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
}
