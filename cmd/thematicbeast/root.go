package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/config"
	logpkg "github.com/overlordausritter/thematicbeast/internal/logger"
	"github.com/overlordausritter/thematicbeast/internal/version"
)

var (
	cfgFile string
	envName string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "thematicbeast",
	Short: "Company-filtered retrieval over the LlamaCloud thematic index",
	Long: `thematicbeast forwards natural-language queries to a LlamaCloud index and
optionally keeps only the chunks that mention a given company.

Example usage:
  thematicbeast serve                                  # Run the HTTP service
  thematicbeast query -q "AI capex" --company "Acme"   # One-off filtered query`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if envName == "" {
			envName = config.GetEnv()
		}

		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFile(cfgFile)
		} else {
			cfg, err = config.Load(envName)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = logpkg.NewLogger(envName, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name (default is $ENV or local)")
}
