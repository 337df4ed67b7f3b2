package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchMaxPosts int

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch new posts, geocode their events and update the event store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if fetchMaxPosts > 0 {
			cfg.Source.MaxPosts = fetchMaxPosts
		}

		env, err := initPipeline(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("fetch complete",
			zap.String("run_id", result.RunID),
			zap.Int("new_events", result.NewEvents),
			zap.Int("total_events", result.TotalEvents),
			zap.Int("unresolved", len(result.Unresolved)),
			zap.Duration("duration", result.Duration),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchMaxPosts, "max-posts", 0, "posts to scan (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
