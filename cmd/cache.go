package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meowafisha/eventmap/pkg/geocode"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the geocode cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show resolved and unresolved cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cache, err := geocode.LoadCache(ctx, st, cfg.Store.CacheKey)
		if err != nil {
			return eris.Wrap(err, "load geocode cache")
		}

		s := cache.Stats()
		fmt.Printf("Addresses:  %d\n", cache.Len())
		fmt.Printf("Resolved:   %d\n", s.Resolved)
		fmt.Printf("Unresolved: %d\n", s.Unresolved)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cached unresolved addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cache, err := geocode.LoadCache(ctx, st, cfg.Store.CacheKey)
		if err != nil {
			return eris.Wrap(err, "load geocode cache")
		}

		n := cache.PruneUnresolved()
		if _, err := cache.Save(ctx, st, cfg.Store.CacheKey); err != nil {
			return eris.Wrap(err, "save geocode cache")
		}

		fmt.Printf("Pruned %d unresolved addresses, %d remain\n", n, cache.Len())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
