package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/config"
	"github.com/meowafisha/eventmap/pkg/vk"
)

// Process exit codes.
const (
	exitFailure      = 1
	exitUnauthorized = 2
)

var (
	cfg       *config.Config
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:          "eventmap",
	Short:        "Event map ingestion for the MeowAfisha wall",
	Long:         "Fetches MeowAfisha wall posts, extracts events, geocodes their locations through a provider cascade and publishes them for the map.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyLogFlags(cmd, &c.Log)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyLogFlags lets --log-level and --log-format override the config file
// and environment for one invocation.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("log-level") {
		lc.Level = logLevel
	}
	if flags.Changed("log-format") {
		lc.Format = logFormat
	}
}

// exitCode maps a command error to the process exit status. A rejected
// post-source token gets its own code so schedulers can tell it apart from
// transient failures.
func exitCode(err error) int {
	if errors.Is(err, vk.ErrUnauthorized) {
		return exitUnauthorized
	}
	return exitFailure
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format: json or console")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := exitCode(err)
		if code == exitUnauthorized {
			zap.L().Error("post source rejected the access token, aborting", zap.Error(err))
		}
		_ = zap.L().Sync()
		os.Exit(code)
	}
}
