package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calyptra/memtide/internal/profile"
	"github.com/calyptra/memtide/internal/version"
	"github.com/calyptra/memtide/store"
	"github.com/calyptra/memtide/store/db"
)

var rootCmd = &cobra.Command{
	Use:     "memtide",
	Short:   "Offline recovery and deduplication for the long-term memory store.",
	Version: version.String(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Try to load .env from the current directory; absence is fine.
		_ = godotenv.Load()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `target environment, one of "local", "dev", "prod"`)
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(backfillCmd, cleanupCmd, checkCmd)
}

// buildProfile assembles the run configuration from flags and environment.
func buildProfile() (*profile.Profile, error) {
	runProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.Version,
	}
	runProfile.FromEnv()
	if err := runProfile.Validate(); err != nil {
		return nil, err
	}
	return runProfile, nil
}

// openStore connects to the datastore. The caller owns the connection for
// the duration of one run and must close it on every path.
func openStore(runProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(runProfile)
	if err != nil {
		return nil, err
	}
	return store.New(dbDriver, runProfile), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}
