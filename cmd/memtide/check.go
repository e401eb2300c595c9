package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/calyptra/memtide/ai"
)

// checkCmd is a preflight for automation: verify the store and the embedding
// service are reachable, then exit.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify store and embedding-service connectivity.",
	RunE: func(cmd *cobra.Command, args []string) error {
		runProfile, err := buildProfile()
		if err != nil {
			return err
		}

		st, err := openStore(runProfile)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Ping(cmd.Context()); err != nil {
			return err
		}
		slog.Info("store reachable", "driver", runProfile.Driver)

		embedder, err := ai.NewEmbeddingService(&ai.EmbeddingConfig{
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

		if err := embedder.Init(cmd.Context()); err != nil {
			return err
		}
		slog.Info("embedding service reachable", "model", runProfile.EmbeddingModel)
		return nil
	},
}
