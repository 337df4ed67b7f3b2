package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meowafisha/eventmap/internal/model"
	"github.com/meowafisha/eventmap/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve one address through the cache and provider cascade",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		providers, cascadeOpts, err := buildProviders(cfg.Geocode)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cache, err := geocode.LoadCache(ctx, st, cfg.Store.CacheKey)
		if err != nil {
			return eris.Wrap(err, "load geocode cache")
		}

		cascade := geocode.NewCascadeClient(cache, nil, providers, cascadeOpts...)
		address := geocode.NormalizeAddress(strings.Join(args, " "))
		coords := cascade.Resolve(ctx, address)

		if _, err := cache.Save(ctx, st, cfg.Store.CacheKey); err != nil {
			return eris.Wrap(err, "save geocode cache")
		}

		out := struct {
			Address     string                     `json:"address"`
			Coordinates model.Coordinates          `json:"coordinates"`
			Providers   map[string]geocode.Outcome `json:"providers,omitempty"`
		}{
			Address:     address,
			Coordinates: coords,
			Providers:   cascade.Log().Get(address),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
