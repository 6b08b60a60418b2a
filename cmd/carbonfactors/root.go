package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/config"
	logpkg "github.com/kailas-cloud/carbonfactors/internal/logger"
)

var (
	globalEnv    string
	globalConfig config.Config
	globalLogger *zap.Logger

	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "carbonfactors",
	Short: "Emission factor semantic search and emissions calculation",
	Long: `carbonfactors matches free-text activity descriptions against an
emission factor catalog with precomputed embeddings and turns them into
scope-attributed emissions reports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		globalEnv = config.GetEnv()
		var err error
		if configPath != "" {
			globalConfig, err = config.LoadFile(configPath)
		} else {
			globalConfig, err = config.Load(globalEnv)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := globalConfig.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		globalLogger, err = logpkg.NewLogger(globalEnv, level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if globalLogger != nil {
			_ = globalLogger.Sync()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default: config/$ENV.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override the configured log level (debug, info, warn, error)")
}
