package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/petermazzocco/bboard/internal/config"
	"github.com/petermazzocco/bboard/internal/logging"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	// Global flags
	envFile string

	cfg    config.Config
	logger zerolog.Logger
)

var errMissingDSN = errors.New("DSN is required")

var rootCmd = &cobra.Command{
	Use:   "bboard",
	Short: "bboard - classifieds bulletin board",
	Long: `bboard serves a bulletin board where users post listings under rubrics,
attach images and exchange comments.

Configuration comes from the environment, optionally seeded from an env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var loaded bool
		var err error
		cfg, loaded, err = config.Load(envFile)
		logger = logging.New(os.Stderr, cfg.LogLevel, cfg.LogPretty)
		if !loaded {
			logger.Debug().Str("file", envFile).Msg("no env file loaded")
		}
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File to load environment variables from")
}

// openDB connects and brings the schema up to date.
func openDB() (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errMissingDSN
	}
	db, err := store.Open(cfg.DSN, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
